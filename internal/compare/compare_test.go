package compare_test

import (
	"testing"

	"github.com/qualphys/reasoner/internal/compare"
	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/loader"
	"github.com/qualphys/reasoner/internal/pack"
	"github.com/qualphys/reasoner/internal/propagation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string) pack.Node {
	return pack.Node{ID: id, Label: id, Domain: "cardio", Type: "variable", StateType: "qualitative"}
}

func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, diags, err := loader.Merge([]pack.Document{{
		Nodes: []pack.Node{node("cardio.hemodynamics.heart_rate"), node("neuro.ans.sympathetic_tone")},
		Edges: []pack.Edge{
			{Source: "neuro.ans.sympathetic_tone", Target: "cardio.hemodynamics.heart_rate", Rel: "increases", Weight: 0.8, Delay: "immediate",
				Context: map[string]bool{"beta_blocker": false}},
		},
	}})
	require.NoError(t, err)
	require.Empty(t, diags)
	return g
}

func changedFor(t *testing.T, result *compare.Result, nodeID string) domain.ComparedNode {
	t.Helper()
	for _, c := range result.ChangedNodes {
		if c.NodeID == nodeID {
			return c
		}
	}
	require.Failf(t, "node missing", "node %q not present in changed set", nodeID)
	return domain.ComparedNode{}
}

func TestRun_AddingBetaBlockerResolvesHeartRateEffect(t *testing.T) {
	g := buildGraph(t)

	req := compare.Request{
		Baseline: propagation.Request{
			Perturbations: []domain.Perturbation{{NodeID: "neuro.ans.sympathetic_tone", Op: domain.OpIncrease}},
			Context:       map[string]bool{"beta_blocker": false},
			Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
		},
		Intervention: propagation.Request{
			Perturbations: []domain.Perturbation{{NodeID: "neuro.ans.sympathetic_tone", Op: domain.OpIncrease}},
			Context:       map[string]bool{"beta_blocker": true},
			Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
		},
	}

	result, err := compare.Run(g, req)
	require.NoError(t, err)

	hr := changedFor(t, result, "cardio.hemodynamics.heart_rate")
	assert.Equal(t, domain.ChangeResolved, hr.Class)
}

func TestRun_UnchangedWithinEpsilon(t *testing.T) {
	g := buildGraph(t)

	base := propagation.Request{
		Perturbations: []domain.Perturbation{{NodeID: "neuro.ans.sympathetic_tone", Op: domain.OpIncrease}},
		Context:       map[string]bool{"beta_blocker": false},
		Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
	}

	result, err := compare.Run(g, compare.Request{Baseline: base, Intervention: base})
	require.NoError(t, err)

	hr := changedFor(t, result, "cardio.hemodynamics.heart_rate")
	assert.Equal(t, domain.ChangeUnchanged, hr.Class)
	assert.Less(t, hr.ConfidenceDelta, compare.DefaultEpsilon)
}
