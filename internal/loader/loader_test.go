package loader

import (
	"testing"

	"github.com/qualphys/reasoner/internal/pack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapNode(id, domainName, typ, stateType string, aliases ...string) pack.Node {
	return pack.Node{
		ID:        id,
		Label:     id,
		Domain:    domainName,
		Type:      typ,
		StateType: stateType,
		Aliases:   aliases,
	}
}

func TestMerge_SimpleGraph(t *testing.T) {
	docs := []pack.Document{
		{
			Nodes: []pack.Node{
				mapNode("cardio.hemodynamics.map", "cardio", "variable", "qualitative", "MAP", "mean arterial pressure"),
				mapNode("neuro.ans.sympathetic_tone", "neuro", "variable", "qualitative"),
			},
			Edges: []pack.Edge{
				{Source: "MAP", Target: "neuro.ans.sympathetic_tone", Rel: "decreases", Weight: 0.8, Delay: "immediate"},
			},
		},
	}

	g, diags, err := Merge(docs)
	require.NoError(t, err)
	assert.Empty(t, diags)

	_, ok := g.Node("cardio.hemodynamics.map")
	require.True(t, ok)

	id, ok := g.Resolve("mean arterial pressure")
	require.True(t, ok)
	assert.Equal(t, "cardio.hemodynamics.map", id)

	edges := g.OutEdges("cardio.hemodynamics.map")
	require.Len(t, edges, 1)
	assert.Equal(t, "neuro.ans.sympathetic_tone", edges[0].Target)
}

func TestMerge_CompatibleDuplicateNodesMergeAliases(t *testing.T) {
	docs := []pack.Document{
		{Nodes: []pack.Node{mapNode("cardio.hemodynamics.map", "cardio", "variable", "qualitative", "MAP")}},
		{Nodes: []pack.Node{mapNode("cardio.hemodynamics.map", "cardio", "variable", "qualitative", "mean arterial pressure")}},
	}

	g, diags, err := Merge(docs)
	require.NoError(t, err)
	assert.Empty(t, diags)

	for _, alias := range []string{"MAP", "mean arterial pressure"} {
		id, ok := g.Resolve(alias)
		require.True(t, ok, alias)
		assert.Equal(t, "cardio.hemodynamics.map", id)
	}
}

func TestMerge_IncompatibleDuplicateNodeIsFatal(t *testing.T) {
	docs := []pack.Document{
		{Nodes: []pack.Node{mapNode("cardio.hemodynamics.map", "cardio", "variable", "qualitative")}},
		{Nodes: []pack.Node{mapNode("cardio.hemodynamics.map", "renal", "variable", "qualitative")}},
	}

	g, diags, err := Merge(docs)
	require.Error(t, err)
	assert.Nil(t, g)
	require.NotEmpty(t, diags)
	assert.True(t, diags[0].Fatal)
}

func TestMerge_AliasCollisionAcrossNodesIsFatal(t *testing.T) {
	docs := []pack.Document{
		{Nodes: []pack.Node{
			mapNode("cardio.hemodynamics.map", "cardio", "variable", "qualitative", "pressure"),
			mapNode("cardio.hemodynamics.svr", "cardio", "variable", "qualitative", "pressure"),
		}},
	}

	_, diags, err := Merge(docs)
	require.Error(t, err)
	require.NotEmpty(t, diags)
	assert.True(t, diags[len(diags)-1].Fatal)
}

func TestMerge_EdgeWithMissingEndpointIsFatal(t *testing.T) {
	docs := []pack.Document{
		{
			Nodes: []pack.Node{mapNode("cardio.hemodynamics.map", "cardio", "variable", "qualitative")},
			Edges: []pack.Edge{{Source: "cardio.hemodynamics.map", Target: "does.not.exist", Rel: "increases", Weight: 0.5, Delay: "immediate"}},
		},
	}

	g, diags, err := Merge(docs)
	require.Error(t, err)
	assert.Nil(t, g)
	require.NotEmpty(t, diags)
}

func TestMerge_DuplicateEdgeLaterWeightWins(t *testing.T) {
	docs := []pack.Document{
		{
			Nodes: []pack.Node{
				mapNode("a.one", "cardio", "variable", "qualitative"),
				mapNode("a.two", "cardio", "variable", "qualitative"),
			},
			Edges: []pack.Edge{
				{Source: "a.one", Target: "a.two", Rel: "increases", Weight: 0.3, Delay: "immediate", Description: "first"},
				{Source: "a.one", Target: "a.two", Rel: "increases", Weight: 0.9, Delay: "immediate", Description: "second"},
			},
		},
	}

	g, diags, err := Merge(docs)
	require.NoError(t, err)
	assert.Empty(t, diags)

	edges := g.OutEdges("a.one")
	require.Len(t, edges, 1)
	assert.Equal(t, 0.9, edges[0].Weight)
	assert.Equal(t, "first; second", edges[0].Description)
}

func TestMerge_RuleReferencingUnknownNodeIsDroppedAsWarning(t *testing.T) {
	docs := []pack.Document{
		{
			Nodes: []pack.Node{mapNode("a.one", "cardio", "variable", "qualitative")},
			Rules: []pack.Rule{
				{ID: "bad-rule", When: "does.not.exist.up", Then: map[string]string{"a.one": "increase"}},
			},
		},
	}

	g, diags, err := Merge(docs)
	require.NoError(t, err)
	require.NotEmpty(t, diags)
	assert.False(t, diags[0].Fatal)
	assert.Empty(t, g.Rules())
}

func TestMerge_ValidRuleIsKept(t *testing.T) {
	docs := []pack.Document{
		{
			Nodes: []pack.Node{
				mapNode("a.one", "cardio", "variable", "qualitative"),
				mapNode("a.two", "cardio", "variable", "qualitative"),
			},
			Rules: []pack.Rule{
				{ID: "r1", When: "a.one.up", Then: map[string]string{"a.two": "decrease"}},
			},
		},
	}

	g, diags, err := Merge(docs)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, g.Rules(), 1)
	assert.Equal(t, "r1", g.Rules()[0].ID)
}

func TestMerge_MalformedThenClauseDropsRule(t *testing.T) {
	docs := []pack.Document{
		{
			Nodes: []pack.Node{mapNode("a.one", "cardio", "variable", "qualitative")},
			Rules: []pack.Rule{
				{ID: "bad", When: "true", Then: map[string]string{"a.one": "set not-a-number"}},
			},
		},
	}

	g, diags, err := Merge(docs)
	require.NoError(t, err)
	require.NotEmpty(t, diags)
	assert.Empty(t, g.Rules())
}
