// Package queue is the transaction pool: signed extrinsics wait here until
// the block author drains them into the next block.
//
// The pool is an in-memory bounded FIFO. Submission never blocks; a full
// pool rejects.
package queue

import (
	"context"
	"sync"

	"github.com/okian/weatheroracle/internal/chain"
	"github.com/okian/weatheroracle/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultQueueCapacity = 4096
)

// Extrinsic is the payload type flowing through the pool.
type Extrinsic = chain.Extrinsic

// Queue provides non-blocking enqueue and batch drain.
type Queue interface {
	// Enqueue adds x to the pool. It returns ErrFull or ErrClosed when x was
	// not accepted.
	Enqueue(ctx context.Context, x Extrinsic) error

	// Drain removes up to limit extrinsics in submission order without
	// waiting. limit <= 0 drains everything queued.
	Drain(ctx context.Context, limit int) []Extrinsic

	// Requeue puts drained extrinsics back at the front, ahead of anything
	// submitted since, in their original order. They were admitted once, so
	// neither capacity nor Close rejects them.
	Requeue(ctx context.Context, xs []Extrinsic)

	// Len returns the current number of queued extrinsics.
	Len(ctx context.Context) int

	// Close stops accepting extrinsics. Queued ones can still be drained.
	Close() error

	// IsClosed returns true if the pool has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue as a mutex-guarded FIFO.
type InMemoryQueue struct {
	mu       sync.Mutex
	pending  []Extrinsic
	capacity int
	closed   bool
}

// NewInMemoryQueue creates a new in-memory pool with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.pending = make([]Extrinsic, 0, q.capacity)

	metrics.UpdateTxPoolCapacity(q.capacity)
	metrics.UpdateTxPoolSize(0)

	return q
}

// Enqueue adds x to the pool.
func (q *InMemoryQueue) Enqueue(ctx context.Context, x Extrinsic) error { //nolint:gocritic // hugeParam: extrinsics are small values
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordTxPoolRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordTxPoolRejected("context_cancelled")
		return err
	}
	if len(q.pending) >= q.capacity {
		metrics.RecordTxPoolRejected("full")
		return ErrFull
	}

	q.pending = append(q.pending, x)
	metrics.UpdateTxPoolSize(len(q.pending))
	return nil
}

// Drain removes up to limit queued extrinsics.
func (q *InMemoryQueue) Drain(_ context.Context, limit int) []Extrinsic {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	if limit > 0 && limit < n {
		n = limit
	}
	if n == 0 {
		return nil
	}

	out := make([]Extrinsic, n)
	copy(out, q.pending[:n])
	q.pending = append(q.pending[:0], q.pending[n:]...)
	metrics.UpdateTxPoolSize(len(q.pending))
	return out
}

// Requeue puts xs back ahead of newer submissions.
func (q *InMemoryQueue) Requeue(_ context.Context, xs []Extrinsic) {
	if len(xs) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]Extrinsic, 0, len(xs)+len(q.pending))
	merged = append(merged, xs...)
	q.pending = append(merged, q.pending...)
	metrics.RecordTxPoolRequeued(len(xs))
	metrics.UpdateTxPoolSize(len(q.pending))
}

// Len returns the current number of queued extrinsics.
func (q *InMemoryQueue) Len(_ context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Capacity returns the pool bound.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops accepting extrinsics.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// IsClosed returns true if the pool has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
