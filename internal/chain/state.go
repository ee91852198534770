package chain

import (
	"context"
	"sort"
)

// StateReader reads ledger state.
type StateReader interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
}

// Store is committed ledger state. Commit applies every change or none.
type Store interface {
	StateReader
	Commit(ctx context.Context, changes []Change) error
}

// Change is one pending write. Deleted changes remove the key.
type Change struct {
	Key     string
	Value   []byte
	Deleted bool
}

// Overlay buffers writes on top of a parent reader. Overlays are not safe
// for concurrent use; the runtime serializes access.
type Overlay struct {
	parent  StateReader
	changes map[string]Change
}

// NewOverlay returns an empty overlay over parent.
func NewOverlay(parent StateReader) *Overlay {
	return &Overlay{parent: parent, changes: make(map[string]Change)}
}

// Get returns the buffered value for key, falling back to the parent.
func (o *Overlay) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c, ok := o.changes[key]; ok {
		if c.Deleted {
			return nil, false, nil
		}
		return append([]byte(nil), c.Value...), true, nil
	}
	return o.parent.Get(ctx, key)
}

// Exists reports whether key holds a value.
func (o *Overlay) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := o.Get(ctx, key)
	return ok, err
}

// Set buffers a write.
func (o *Overlay) Set(key string, value []byte) {
	o.changes[key] = Change{Key: key, Value: append([]byte(nil), value...)}
}

// Kill buffers a removal.
func (o *Overlay) Kill(key string) {
	o.changes[key] = Change{Key: key, Deleted: true}
}

// Merge folds child's writes into o. child must sit on top of o.
func (o *Overlay) Merge(child *Overlay) {
	for k, c := range child.changes {
		o.changes[k] = c
	}
}

// Changes lists buffered writes sorted by key.
func (o *Overlay) Changes() []Change {
	out := make([]Change, 0, len(o.changes))
	for _, c := range o.changes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of buffered writes.
func (o *Overlay) Len() int { return len(o.changes) }

// StorageValue is a typed single-value slot that reads as absent until set.
type StorageValue[T any] struct {
	Key    string
	Encode func(T) []byte
	Decode func([]byte) (T, error)
}

// Get reads and decodes the slot.
func (s StorageValue[T]) Get(ctx context.Context, r StateReader) (T, bool, error) {
	var zero T
	raw, ok, err := r.Get(ctx, s.Key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := s.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Exists reports whether the slot is set.
func (s StorageValue[T]) Exists(ctx context.Context, r StateReader) (bool, error) {
	_, ok, err := r.Get(ctx, s.Key)
	return ok, err
}

// Put writes v into o.
func (s StorageValue[T]) Put(o *Overlay, v T) {
	o.Set(s.Key, s.Encode(v))
}

// Kill clears the slot in o.
func (s StorageValue[T]) Kill(o *Overlay) {
	o.Kill(s.Key)
}
