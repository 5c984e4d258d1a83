// Package rest implements the HTTP surface (spec §5, §6, §7):
// graph inspection, simulation, comparison, scenarios, pack reload and
// narration, plus the GET /ws/simulate upgrade, all grounded on the
// teacher's internal/infrastructure/api/rest server (stdlib
// http.ServeMux with Go 1.22+ method-pattern routes, a middleware
// chain, and JSON request/response DTOs) rather than the gin-based
// sibling package, since gin is not part of this module's dependency
// set.
package rest

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/infrastructure/auth"
	"github.com/qualphys/reasoner/internal/infrastructure/narrator"
	"github.com/qualphys/reasoner/internal/infrastructure/storage"
	"github.com/qualphys/reasoner/internal/infrastructure/websocket"
)

// Reloader builds a fresh graph from the given pack paths. It does not
// touch the server; handleReload swaps the returned graph into the
// active handle in one atomic store.
type Reloader func(paths []string) (*graph.Graph, []string, error)

// Server wires the graph, storage, auth, narrator and websocket
// collaborators behind a single http.Handler.
type Server struct {
	mux *http.ServeMux

	graph        atomic.Pointer[graph.Graph]
	lastReloadAt atomic.Pointer[time.Time]

	store     storage.Store
	narrator  narrator.Narrator
	auth      auth.Authenticator
	reload    Reloader
	wsHandler *websocket.Handler

	defaultPackPaths []string
}

// NewServer builds a Server with its routes already mounted. initial
// is the graph loaded at startup (spec §5: the process never serves
// requests against a nil graph).
func NewServer(initial *graph.Graph, store storage.Store, authenticator auth.Authenticator, n narrator.Narrator, reload Reloader, packPaths []string) *Server {
	s := &Server{
		mux:              http.NewServeMux(),
		store:            store,
		narrator:         n,
		auth:             authenticator,
		reload:           reload,
		defaultPackPaths: packPaths,
	}
	s.graph.Store(initial)
	now := time.Now()
	s.lastReloadAt.Store(&now)

	hub := websocket.NewHub()
	s.wsHandler = websocket.NewHandler(hub, s.activeGraph, authenticator)

	s.routes()
	return s
}

func (s *Server) activeGraph() *graph.Graph {
	return s.graph.Load()
}

func (s *Server) routes() {
	mw := chain(recoveryMiddleware, loggingMiddleware)

	s.mux.Handle("GET /health", mw(http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("GET /ready", mw(http.HandlerFunc(s.handleReady)))

	authed := chain(recoveryMiddleware, loggingMiddleware, auth.Middleware(s.auth))

	s.mux.Handle("GET /graph", authed(http.HandlerFunc(s.handleGraph)))
	s.mux.Handle("POST /simulate", authed(http.HandlerFunc(s.handleSimulate)))
	s.mux.Handle("POST /simulate/compare", authed(http.HandlerFunc(s.handleCompare)))
	s.mux.Handle("POST /simulate/narrate", authed(http.HandlerFunc(s.handleNarrate)))
	s.mux.Handle("POST /reload", authed(http.HandlerFunc(s.handleReload)))

	s.mux.Handle("POST /scenarios", authed(http.HandlerFunc(s.handleCreateScenario)))
	s.mux.Handle("GET /scenarios", authed(http.HandlerFunc(s.handleListScenarios)))
	s.mux.Handle("GET /scenarios/{name}", authed(http.HandlerFunc(s.handleGetScenario)))
	s.mux.Handle("DELETE /scenarios/{name}", authed(http.HandlerFunc(s.handleDeleteScenario)))
	s.mux.Handle("POST /scenarios/{name}/run", authed(http.HandlerFunc(s.handleRunScenario)))

	s.mux.Handle("GET /ws/simulate", mw(s.wsHandler))
}

// ServeHTTP applies CORS headers (and answers preflight requests
// directly) ahead of routing, since a browser's OPTIONS preflight
// never carries the verb the target route is registered under and
// would otherwise 405 before any per-route middleware runs.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
