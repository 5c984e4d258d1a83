package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and local development
// without a database; cmd/server selects it with the -in-memory flag.
type MemStore struct {
	mu        sync.RWMutex
	loads     []PackLoad
	scenarios map[string]Scenario
}

func NewMemStore() *MemStore {
	return &MemStore{scenarios: map[string]Scenario{}}
}

func (s *MemStore) RecordPackLoad(_ context.Context, load PackLoad) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	load.ID = uuid.New()
	load.LoadedAt = time.Now()
	s.loads = append(s.loads, load)
	return nil
}

func (s *MemStore) ListPackLoads(_ context.Context, limit int) ([]PackLoad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]PackLoad, len(s.loads))
	copy(out, s.loads)
	sort.Slice(out, func(i, j int) bool { return out[i].LoadedAt.After(out[j].LoadedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) SaveScenario(_ context.Context, sc Scenario) (Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	existing, ok := s.scenarios[sc.Name]
	if ok {
		sc.ID = existing.ID
		sc.CreatedAt = existing.CreatedAt
	} else {
		sc.ID = uuid.New()
		sc.CreatedAt = now
	}
	sc.UpdatedAt = now
	s.scenarios[sc.Name] = sc
	return sc, nil
}

func (s *MemStore) GetScenario(_ context.Context, name string) (Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenarios[name]
	if !ok {
		return Scenario{}, ErrNotFound
	}
	return sc, nil
}

func (s *MemStore) ListScenarios(_ context.Context) ([]Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Scenario, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) DeleteScenario(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scenarios[name]; !ok {
		return ErrNotFound
	}
	delete(s.scenarios, name)
	return nil
}

// Ping always succeeds: there is no connection to lose.
func (s *MemStore) Ping(_ context.Context) error { return nil }

// Close is a no-op: there is nothing to release.
func (s *MemStore) Close() error { return nil }
