package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/qualphys/reasoner/internal/infrastructure/auth"
	"github.com/qualphys/reasoner/internal/infrastructure/storage"
	"github.com/qualphys/reasoner/internal/infrastructure/tracing"
)

// handleReload re-reads the knowledge pack and, only if it merges
// cleanly, swaps the active graph in one atomic pointer store; a
// failed reload leaves the previously loaded graph serving traffic
// (spec §5, §7).
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "reload")
	defer span.End()

	var req ReloadRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	paths := req.PackPaths
	if len(paths) == 0 {
		paths = s.defaultPackPaths
	}

	newGraph, diagnostics, err := s.reload(paths)

	load := storage.PackLoad{
		ID:       uuid.New(),
		Paths:    paths,
		Success:  err == nil,
		LoadedBy: auth.Subject(r),
		LoadedAt: time.Now(),
	}
	if newGraph != nil {
		stats := newGraph.Stats()
		load.NodeCount, load.EdgeCount, load.RuleCount = stats.NodeCount, stats.EdgeCount, stats.RuleCount
	}
	if err != nil {
		load.ErrorMessage = err.Error()
	}
	if len(diagnostics) > 0 {
		load.Diagnostics = joinLines(diagnostics)
	}
	if recordErr := s.store.RecordPackLoad(r.Context(), load); recordErr != nil {
		log.Error().Err(recordErr).Msg("failed to record pack load audit entry")
	}

	if err != nil {
		tracing.RecordError(ctx, err)
		respondEngineError(w, err)
		return
	}

	s.graph.Store(newGraph)
	now := time.Now()
	s.lastReloadAt.Store(&now)

	respondJSON(w, http.StatusOK, ReloadResponse{
		Success:     true,
		Stats:       newGraph.Stats(),
		Diagnostics: diagnostics,
	})
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
