package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/propagation"
)

func TestMemStore_ScenarioRoundTrip(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	saved, err := s.SaveScenario(ctx, Scenario{
		Name:        "ace-inhibitor",
		Description: "ACE inhibitor blocks RAAS",
		Perturbations: []domain.Perturbation{
			{NodeID: "renal.raas.angiotensin_converting_enzyme", Op: domain.OpBlock},
		},
		Context:         map[string]bool{"on_ace_inhibitor": true},
		Options:         propagation.Options{MaxHops: 4, MinConfidence: 0.1, TimeWindow: domain.WindowAll},
		ConflictEpsilon: 0.1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	got, err := s.GetScenario(ctx, "ace-inhibitor")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "ACE inhibitor blocks RAAS", got.Description)
	require.Len(t, got.Perturbations, 1)
	assert.Equal(t, "renal.raas.angiotensin_converting_enzyme", got.Perturbations[0].NodeID)
	assert.True(t, got.Context["on_ace_inhibitor"])
	assert.Equal(t, 4, got.Options.MaxHops)
	assert.Equal(t, 0.1, got.ConflictEpsilon)
}

func TestMemStore_SaveScenarioUpsertsByName(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	first, err := s.SaveScenario(ctx, Scenario{Name: "baseline", Description: "v1"})
	require.NoError(t, err)

	second, err := s.SaveScenario(ctx, Scenario{Name: "baseline", Description: "v2"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	list, err := s.ListScenarios(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "v2", list[0].Description)
}

func TestMemStore_GetScenarioNotFound(t *testing.T) {
	s := NewMemStore()
	_, err := s.GetScenario(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStore_DeleteScenario(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, err := s.SaveScenario(ctx, Scenario{Name: "to-delete"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteScenario(ctx, "to-delete"))

	_, err = s.GetScenario(ctx, "to-delete")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteScenario(ctx, "to-delete"), ErrNotFound)
}

func TestMemStore_RecordAndListPackLoads(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.RecordPackLoad(ctx, PackLoad{
		Paths: []string{"testdata/packs/cardio.yaml"}, NodeCount: 3, EdgeCount: 2, Success: true,
	}))
	require.NoError(t, s.RecordPackLoad(ctx, PackLoad{
		Paths: []string{"testdata/packs/broken.yaml"}, Success: false, ErrorMessage: "malformed edge",
	}))

	loads, err := s.ListPackLoads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.False(t, loads[0].Success)
	assert.True(t, loads[1].Success)
}
