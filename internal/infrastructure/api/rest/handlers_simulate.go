package rest

import (
	"net/http"

	"github.com/qualphys/reasoner/internal/compare"
	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/infrastructure/narrator"
	"github.com/qualphys/reasoner/internal/infrastructure/tracing"
	"github.com/qualphys/reasoner/internal/propagation"
	"github.com/qualphys/reasoner/internal/trace"
)

const defaultTraceTopK = trace.DefaultTopK

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "simulate")
	defer span.End()

	var req SimulateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	g := s.activeGraph()
	if g == nil {
		respondError(w, http.StatusServiceUnavailable, "graph not loaded")
		return
	}

	result, traces, err := runSimulation(g, req)
	if err != nil {
		tracing.RecordError(ctx, err)
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SimulateResponse{
		AffectedNodes: result.AffectedNodes,
		Traces:        traces,
		MaxTicks:      result.MaxTicks,
	})
}

// runSimulation runs one propagation request and, when requested,
// reconstructs a trace for every affected node (spec §4.5).
func runSimulation(g *graph.Graph, req SimulateRequest) (*propagation.Result, map[string][]domain.TraceStep, error) {
	result, err := propagation.Simulate(g, req.toEngineRequest())
	if err != nil {
		return nil, nil, err
	}

	var traces map[string][]domain.TraceStep
	if req.IncludeTraces {
		topK := req.TraceTopK
		if topK <= 0 {
			topK = defaultTraceTopK
		}
		traces = trace.Build(g, result, topK)
	}
	return result, traces, nil
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "compare")
	defer span.End()

	var req CompareRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	g := s.activeGraph()
	if g == nil {
		respondError(w, http.StatusServiceUnavailable, "graph not loaded")
		return
	}

	result, err := compare.Run(g, req.toEngineRequest())
	if err != nil {
		tracing.RecordError(ctx, err)
		respondEngineError(w, err)
		return
	}

	var baselineTraces, interventionTraces map[string][]domain.TraceStep
	if req.Baseline.IncludeTraces {
		baselineTraces = trace.Build(g, result.Baseline, traceTopK(req.Baseline))
	}
	if req.Intervention.IncludeTraces {
		interventionTraces = trace.Build(g, result.Intervention, traceTopK(req.Intervention))
	}

	respondJSON(w, http.StatusOK, CompareResponse{
		Baseline: SimulateResponse{
			AffectedNodes: result.Baseline.AffectedNodes,
			Traces:        baselineTraces,
			MaxTicks:      result.Baseline.MaxTicks,
		},
		Intervention: SimulateResponse{
			AffectedNodes: result.Intervention.AffectedNodes,
			Traces:        interventionTraces,
			MaxTicks:      result.Intervention.MaxTicks,
		},
		ChangedNodes: result.ChangedNodes,
	})
}

func traceTopK(req SimulateRequest) int {
	if req.TraceTopK <= 0 {
		return defaultTraceTopK
	}
	return req.TraceTopK
}

// handleNarrate runs a simulation and asks the configured Narrator to
// describe it in prose. Narration is best-effort and strictly
// downstream of the deterministic result (spec.md Non-goals).
func (s *Server) handleNarrate(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.narrator.(narrator.Noop); ok {
		respondError(w, http.StatusNotImplemented, "narration is disabled")
		return
	}

	var req NarrateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	g := s.activeGraph()
	if g == nil {
		respondError(w, http.StatusServiceUnavailable, "graph not loaded")
		return
	}

	req.IncludeTraces = true
	result, traces, err := runSimulation(g, req.SimulateRequest)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	labels := req.Labels
	if labels == nil {
		labels = labelsFromGraph(g, result.AffectedNodes)
	}

	text, err := s.narrator.Narrate(r.Context(), narrator.Input{
		Perturbations: req.Perturbations,
		AffectedNodes: result.AffectedNodes,
		Traces:        traces,
		Labels:        labels,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, "narration failed")
		return
	}

	respondJSON(w, http.StatusOK, NarrateResponse{Narrative: text})
}

func labelsFromGraph(g *graph.Graph, affected []domain.AffectedNode) map[string]string {
	labels := make(map[string]string, len(affected))
	for _, a := range affected {
		if n, ok := g.Node(a.NodeID); ok {
			labels[a.NodeID] = n.Label
		}
	}
	return labels
}
