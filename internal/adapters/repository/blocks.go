package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/weatheroracle/internal/chain"
)

// BlockStore keeps the most recent sealed blocks in a ring.
type BlockStore struct {
	mu       sync.RWMutex
	ring     []*chain.Block
	capacity int
	count    int
	latest   *chain.Block
}

// NewBlockStore creates an empty history.
func NewBlockStore(opts ...Option) *BlockStore {
	s := &BlockStore{capacity: 1024}
	for _, opt := range opts {
		opt(s)
	}
	s.ring = make([]*chain.Block, s.capacity)
	return s
}

// Import appends b.
func (s *BlockStore) Import(_ context.Context, b *chain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest != nil {
		if b.Header.Number != s.latest.Header.Number+1 || b.Header.ParentHash != s.latest.Hash {
			return fmt.Errorf("%w: got #%d, best is #%d", ErrNotSequential, b.Header.Number, s.latest.Header.Number)
		}
	}

	s.ring[b.Header.Number%uint64(s.capacity)] = b
	s.latest = b
	if s.count < s.capacity {
		s.count++
	}
	return nil
}

// Latest returns the best block.
func (s *BlockStore) Latest(_ context.Context) (*chain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, ErrNotFound
	}
	return s.latest, nil
}

// ByNumber returns block number if it is still retained.
func (s *BlockStore) ByNumber(_ context.Context, number uint64) (*chain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.ring[number%uint64(s.capacity)]
	if b == nil || b.Header.Number != number {
		return nil, fmt.Errorf("%w: #%d", ErrNotFound, number)
	}
	return b, nil
}

// Count returns the number of retained blocks.
func (s *BlockStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
