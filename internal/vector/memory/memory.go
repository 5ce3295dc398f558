// Package memory is an in-process vector.Repository, used in tests and for
// the "memory" backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/efebarandurmaz/pramaanx/internal/vector"
)

// Store keeps entries in insertion order. Writers build a new slice and swap
// it in, so readers never observe a partial batch.
type Store struct {
	mu      sync.RWMutex
	entries []vector.Entry
	ids     map[string]struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{ids: make(map[string]struct{})}
}

func (s *Store) Insert(_ context.Context, entries []vector.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]struct{}, len(s.ids)+len(entries))
	for id := range s.ids {
		ids[id] = struct{}{}
	}
	next := make([]vector.Entry, len(s.entries), len(s.entries)+len(entries))
	copy(next, s.entries)

	for _, e := range entries {
		if _, dup := ids[e.ID]; dup {
			return fmt.Errorf("%w: %s", vector.ErrDuplicateID, e.ID)
		}
		ids[e.ID] = struct{}{}
		next = append(next, e)
	}

	s.entries, s.ids = next, ids
	return nil
}

func (s *Store) Existing(_ context.Context, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) Search(_ context.Context, vec []float32, k int) ([]vector.Match, error) {
	s.mu.RLock()
	entries := s.entries
	s.mu.RUnlock()
	return vector.Nearest(vec, entries, k), nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.ids = make(map[string]struct{})
	return nil
}

func (s *Store) Close() error { return nil }

var _ vector.Repository = (*Store)(nil)
