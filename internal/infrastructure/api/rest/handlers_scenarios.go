package rest

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/qualphys/reasoner/internal/infrastructure/auth"
	"github.com/qualphys/reasoner/internal/infrastructure/storage"
	"github.com/qualphys/reasoner/internal/propagation"
)

func scenarioToResponse(s storage.Scenario) ScenarioResponse {
	return ScenarioResponse{
		ID:              s.ID.String(),
		Name:            s.Name,
		Description:     s.Description,
		Perturbations:   s.Perturbations,
		Context:         s.Context,
		Options:         s.Options,
		ConflictEpsilon: s.ConflictEpsilon,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// handleCreateScenario saves a named, reusable simulation input
// (spec §6: POST /scenarios). Saving never touches the propagation
// engine.
func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	options := req.Options
	if options == (propagation.Options{}) {
		options = propagation.DefaultOptions()
	}

	saved, err := s.store.SaveScenario(r.Context(), storage.Scenario{
		ID:              uuid.New(),
		Name:            req.Name,
		Description:     req.Description,
		Perturbations:   req.Perturbations,
		Context:         req.Context,
		Options:         options,
		ConflictEpsilon: req.ConflictEpsilon,
		CreatedBy:       auth.Subject(r),
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, scenarioToResponse(saved))
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.store.ListScenarios(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	responses := make([]ScenarioResponse, len(scenarios))
	for i, sc := range scenarios {
		responses[i] = scenarioToResponse(sc)
	}
	respondJSON(w, http.StatusOK, responses)
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	scenario, err := s.store.GetScenario(r.Context(), name)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scenarioToResponse(scenario))
}

func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.store.DeleteScenario(r.Context(), name); err != nil {
		respondEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRunScenario re-runs a saved scenario against the currently
// loaded graph; a scenario is pure data, so nothing about a prior run
// is cached or replayed (spec §4.6, §9 Open Questions).
func (s *Server) handleRunScenario(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	scenario, err := s.store.GetScenario(r.Context(), name)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	g := s.activeGraph()
	if g == nil {
		respondError(w, http.StatusServiceUnavailable, "graph not loaded")
		return
	}

	result, err := propagation.Simulate(g, scenario.Request())
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SimulateResponse{
		AffectedNodes: result.AffectedNodes,
		MaxTicks:      result.MaxTicks,
	})
}
