package rest

import (
	"net/http"
	"time"
)

// handleGraph serves the currently loaded node/edge/rule set plus
// summary stats (spec §6: GET /graph).
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g := s.activeGraph()
	if g == nil {
		respondError(w, http.StatusServiceUnavailable, "graph not loaded")
		return
	}
	lastReload := time.Time{}
	if t := s.lastReloadAt.Load(); t != nil {
		lastReload = *t
	}
	respondJSON(w, http.StatusOK, graphToResponse(g, lastReload))
}
