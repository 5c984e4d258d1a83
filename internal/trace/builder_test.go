package trace_test

import (
	"testing"

	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/loader"
	"github.com/qualphys/reasoner/internal/pack"
	"github.com/qualphys/reasoner/internal/propagation"
	"github.com/qualphys/reasoner/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id, label string) pack.Node {
	return pack.Node{ID: id, Label: label, Domain: "cardio", Type: "variable", StateType: "qualitative"}
}

func TestBuild_ReconstructsPathAndOrdersByConfidence(t *testing.T) {
	g, diags, err := loader.Merge([]pack.Document{{
		Nodes: []pack.Node{
			node("cardio.hemodynamics.map", "MAP"),
			node("neuro.ans.sympathetic_tone", "Sympathetic tone"),
			node("renal.raas.renin", "Renin"),
		},
		Edges: []pack.Edge{
			{Source: "cardio.hemodynamics.map", Target: "neuro.ans.sympathetic_tone", Rel: "decreases", Weight: 0.8, Delay: "immediate"},
			{Source: "neuro.ans.sympathetic_tone", Target: "renal.raas.renin", Rel: "increases", Weight: 0.7, Delay: "minutes"},
			{Source: "cardio.hemodynamics.map", Target: "renal.raas.renin", Rel: "decreases", Weight: 0.6, Delay: "minutes"},
		},
	}})
	require.NoError(t, err)
	require.Empty(t, diags)

	result, err := propagation.Simulate(g, propagation.Request{
		Perturbations: []domain.Perturbation{{NodeID: "cardio.hemodynamics.map", Op: domain.OpDecrease}},
		Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
	})
	require.NoError(t, err)

	traces := trace.Build(g, result, trace.DefaultTopK)

	reninTraces, ok := traces["renal.raas.renin"]
	require.True(t, ok)
	require.NotEmpty(t, reninTraces)

	// Two distinct paths reach renin; they must be ordered by descending confidence.
	for i := 1; i < len(reninTraces); i++ {
		assert.GreaterOrEqual(t, reninTraces[i-1].Confidence, reninTraces[i].Confidence)
	}

	top := reninTraces[0]
	assert.Equal(t, "cardio.hemodynamics.map", top.Path[0])
	assert.Equal(t, "renal.raas.renin", top.Path[len(top.Path)-1])
	assert.NotEmpty(t, top.Steps)
}

func TestBuild_MacroSummaryMatchesRAASTemplate(t *testing.T) {
	g, diags, err := loader.Merge([]pack.Document{{
		Nodes: []pack.Node{
			node("cardio.hemodynamics.map", "MAP"),
			node("renal.raas.renin", "Renin"),
			node("renal.raas.angiotensin_ii", "Angiotensin II"),
		},
		Edges: []pack.Edge{
			{Source: "cardio.hemodynamics.map", Target: "renal.raas.renin", Rel: "decreases", Weight: 0.7, Delay: "minutes"},
			{Source: "renal.raas.renin", Target: "renal.raas.angiotensin_ii", Rel: "increases", Weight: 0.9, Delay: "minutes"},
		},
	}})
	require.NoError(t, err)
	require.Empty(t, diags)

	result, err := propagation.Simulate(g, propagation.Request{
		Perturbations: []domain.Perturbation{{NodeID: "cardio.hemodynamics.map", Op: domain.OpDecrease}},
		Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
	})
	require.NoError(t, err)

	traces := trace.Build(g, result, trace.DefaultTopK)
	angTraces := traces["renal.raas.angiotensin_ii"]
	require.NotEmpty(t, angTraces)
	assert.Equal(t, "RAAS activation", angTraces[0].Macro)
}
