package narrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualphys/reasoner/internal/domain"
)

func TestNoop_ReturnsEmptyWithoutError(t *testing.T) {
	out, err := (Noop{}).Narrate(context.Background(), Input{
		AffectedNodes: []domain.AffectedNode{{NodeID: "cardio.hemodynamics.map", Direction: domain.Up}},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBuildPrompt_UsesLabelsAndListsAffectedNodes(t *testing.T) {
	in := Input{
		Perturbations: []domain.Perturbation{{NodeID: "cardio.hemodynamics.map", Op: domain.OpDecrease}},
		AffectedNodes: []domain.AffectedNode{
			{NodeID: "neuro.ans.sympathetic_tone", Direction: domain.Up, Confidence: 0.8, Magnitude: domain.MagnitudeMedium},
		},
		Labels: map[string]string{
			"cardio.hemodynamics.map":       "Mean Arterial Pressure",
			"neuro.ans.sympathetic_tone":    "Sympathetic Tone",
		},
	}

	prompt := buildPrompt(in)

	assert.Contains(t, prompt, "Mean Arterial Pressure")
	assert.Contains(t, prompt, "Sympathetic Tone")
	assert.Contains(t, prompt, "0.80")
}

func TestBuildPrompt_FallsBackToNodeIDWithoutLabel(t *testing.T) {
	in := Input{
		AffectedNodes: []domain.AffectedNode{{NodeID: "pulm.gasexchange.paco2", Direction: domain.Up}},
	}
	assert.Contains(t, buildPrompt(in), "pulm.gasexchange.paco2")
}
