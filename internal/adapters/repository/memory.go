package repository

import (
	"context"
	"sync"

	"github.com/okian/weatheroracle/internal/chain"
)

// MemoryState keeps ledger state in a map.
type MemoryState struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryState returns empty state.
func NewMemoryState() *MemoryState {
	return &MemoryState{data: make(map[string][]byte)}
}

// Get returns a copy of the value under key.
func (s *MemoryState) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Commit applies changes under one lock, so readers see all or none.
func (s *MemoryState) Commit(_ context.Context, changes []chain.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes {
		if c.Deleted {
			delete(s.data, c.Key)
			continue
		}
		s.data[c.Key] = append([]byte(nil), c.Value...)
	}
	return nil
}

// Len returns the number of keys.
func (s *MemoryState) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// Close is a no-op.
func (s *MemoryState) Close() error { return nil }
