// Package inherent defines the data bag block authors fill before building
// a block, and the contract of the providers that fill it.
package inherent

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Identifier is the 8-byte tag a provider files its payload under.
type Identifier [8]byte

// NewIdentifier builds an Identifier from an 8-character tag. It panics on
// any other length, so use it for package-level constants only.
func NewIdentifier(tag string) Identifier {
	if len(tag) != len(Identifier{}) {
		panic(fmt.Sprintf("inherent: identifier %q must be 8 bytes", tag))
	}
	var id Identifier
	copy(id[:], tag)
	return id
}

func (id Identifier) String() string {
	return string(id[:])
}

// Data is the per-block bag of encoded inherent payloads.
type Data struct {
	mu      sync.RWMutex
	entries map[Identifier][]byte
}

// NewData returns an empty bag.
func NewData() *Data {
	return &Data{entries: make(map[Identifier][]byte)}
}

// Put stores raw under id. Keys are unique within one bag.
func (d *Data) Put(id Identifier, raw []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentifier, id)
	}
	d.entries[id] = append([]byte(nil), raw...)
	return nil
}

// Get returns the payload stored under id.
func (d *Data) Get(id Identifier) ([]byte, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	raw, ok := d.entries[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), raw...), true
}

// Len returns the number of stored payloads.
func (d *Data) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Identifiers lists stored keys in byte order.
func (d *Data) Identifiers() []Identifier {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]Identifier, 0, len(d.entries))
	for id := range d.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return string(ids[i][:]) < string(ids[j][:]) })
	return ids
}

// Provider supplies inherent data for a block being authored.
type Provider interface {
	// ProvideInherentData adds this provider's payload to bag.
	ProvideInherentData(ctx context.Context, bag *Data) error

	// TryHandleError inspects an error reported under id. handled is false
	// when id is not this provider's; otherwise err is what the author must
	// act on.
	TryHandleError(ctx context.Context, id Identifier, raw []byte) (handled bool, err error)
}

// CheckResult collects errors raised while checking a block's inherents.
type CheckResult struct {
	errors map[Identifier]error
	fatal  bool
}

// NewCheckResult returns an empty result.
func NewCheckResult() *CheckResult {
	return &CheckResult{errors: make(map[Identifier]error)}
}

// PutError records err for id. A fatal error marks the whole result fatal.
func (r *CheckResult) PutError(id Identifier, err error, fatal bool) {
	r.errors[id] = err
	if fatal {
		r.fatal = true
	}
}

// Ok reports whether no errors were recorded.
func (r *CheckResult) Ok() bool { return len(r.errors) == 0 }

// FatalError reports whether any recorded error was fatal.
func (r *CheckResult) FatalError() bool { return r.fatal }

// Error returns the error recorded for id.
func (r *CheckResult) Error(id Identifier) (error, bool) {
	err, ok := r.errors[id]
	return err, ok
}

// Identifiers lists the identifiers with recorded errors.
func (r *CheckResult) Identifiers() []Identifier {
	ids := make([]Identifier, 0, len(r.errors))
	for id := range r.errors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return string(ids[i][:]) < string(ids[j][:]) })
	return ids
}
