// Package repository holds ledger state backends and the sealed block
// history.
package repository

import (
	"context"

	"github.com/okian/weatheroracle/internal/chain"
)

// StateStore is committed ledger state. Both backends satisfy chain.Store.
type StateStore interface {
	chain.Store
	// Len returns the number of stored keys.
	Len(ctx context.Context) (int, error)
	Close() error
}

// Blocks provides read/write access to sealed blocks.
type Blocks interface {
	// Import appends b. Its number must follow the latest block and its
	// parent hash must match it.
	Import(ctx context.Context, b *chain.Block) error

	// Latest returns the best block, or ErrNotFound before genesis.
	Latest(ctx context.Context) (*chain.Block, error)

	// ByNumber returns a retained block.
	ByNumber(ctx context.Context, number uint64) (*chain.Block, error)

	// Count returns the number of retained blocks.
	Count(ctx context.Context) int
}
