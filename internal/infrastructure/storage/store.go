// Package storage persists the two things this reasoner keeps durable:
// the knowledge-pack load audit trail, and named scenarios a caller
// can re-run. Simulation results are never persisted (spec.md
// Non-goals) — a Scenario is an input, not an answer.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PackLoad records one attempt to (re)load the knowledge pack.
type PackLoad struct {
	ID           uuid.UUID
	Paths        []string
	NodeCount    int
	EdgeCount    int
	RuleCount    int
	Success      bool
	Diagnostics  string
	ErrorMessage string
	LoadedBy     string
	LoadedAt     time.Time
}

// Store is the persistence boundary the REST layer depends on. Both
// the bun-backed and in-memory implementations satisfy it so the
// server can run against Postgres in production and in memory in
// tests and local dev without a database.
type Store interface {
	RecordPackLoad(ctx context.Context, load PackLoad) error
	ListPackLoads(ctx context.Context, limit int) ([]PackLoad, error)

	SaveScenario(ctx context.Context, s Scenario) (Scenario, error)
	GetScenario(ctx context.Context, name string) (Scenario, error)
	ListScenarios(ctx context.Context) ([]Scenario, error)
	DeleteScenario(ctx context.Context, name string) error

	// Ping reports whether the store can currently serve requests,
	// consulted by GET /ready.
	Ping(ctx context.Context) error
	// Close releases any resources held by the store, called once
	// during graceful shutdown.
	Close() error
}

// ErrNotFound is returned by Get/Delete when no row matches.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }
