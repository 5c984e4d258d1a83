package rest

import "net/http"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports 503 while no graph is loaded or while the store
// is unreachable, so an orchestrator never routes traffic to an
// instance with nothing to simulate against or no place to record it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.activeGraph() == nil {
		respondError(w, http.StatusServiceUnavailable, "graph not loaded")
		return
	}
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
