package memory

import (
	"context"
	"sync"

	"github.com/ajayshanks/datagpt/pkg/domain"
)

// Store implements ports.ContextStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.PipelineContext
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.PipelineContext),
	}
}

// Save persists the context in memory.
func (s *Store) Save(ctx context.Context, runID string, pc *domain.PipelineContext) error {
	// Copy on write so later mutations by the caller do not leak in.
	copied := pc.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[runID] = copied
	return nil
}

// Load retrieves the context from memory.
func (s *Store) Load(ctx context.Context, runID string) (*domain.PipelineContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pc, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return pc.Clone(), nil
}

// Delete removes the context.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns stored runs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	return runs, nil
}
