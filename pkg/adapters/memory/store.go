// Package memory provides an in-memory ports.RunStore, suitable for
// tests and single-process hosts.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/graft/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]*domain.Run
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string]*domain.Run)}
}

// Save persists a copy of the run snapshot.
func (s *Store) Save(ctx context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run.ID] = run.Clone()
	return nil
}

// Load retrieves a copy of the snapshot, so callers cannot mutate the
// stored one by pointer.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run.Clone(), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns the stored run IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
