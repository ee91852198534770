package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/weatheroracle/internal/domain/inherent"
	"github.com/okian/weatheroracle/pkg/logger"
	"github.com/okian/weatheroracle/pkg/metrics"
)

// Module is a unit of ledger logic the runtime dispatches to.
type Module interface {
	Name() string
	// OnInitialize runs at the start of every block, before any extrinsic.
	OnInitialize(ctx context.Context, env *Env) error
	// Dispatch executes call. Any error rolls back the call's writes and
	// events.
	Dispatch(ctx context.Context, env *Env, origin Origin, call Call) error
}

// InherentModule is a Module that owns an inherent.
type InherentModule interface {
	Module
	InherentIdentifier() inherent.Identifier
	// CreateInherent builds the inherent call from bag, if any.
	CreateInherent(bag *inherent.Data) (Call, bool)
	// IsInherent reports whether call is this module's inherent.
	IsInherent(call Call) bool
	// IsInherentRequired returns the error to report when bag demands an
	// inherent the block does not carry, or nil if none is required.
	IsInherentRequired(bag *inherent.Data) error
}

// Fatal is implemented by errors that must stop block authoring.
type Fatal interface {
	IsFatal() bool
}

// Runtime applies blocks to a Store. It executes one extrinsic at a time.
type Runtime struct {
	mu      sync.Mutex
	store   Store
	modules map[string]Module
	order   []Module
	log     logger.Logger
	current *building

	// head is the last block this runtime committed. Unset until the first
	// commit, so a restarted node accepts whatever history it resumes from.
	head *Header
	hash Hash
}

type building struct {
	header  Header
	state   *Overlay
	applied []Applied
	events  []EventRecord
}

// NewRuntime creates a runtime over store.
func NewRuntime(store Store, opts ...Option) *Runtime {
	r := &Runtime{
		store:   store,
		modules: make(map[string]Module),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the committed state of the best block.
func (r *Runtime) State() StateReader {
	return r.store
}

// InitializeBlock opens a block and runs every module's OnInitialize.
func (r *Runtime) InitializeBlock(ctx context.Context, header Header) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return ErrBlockInProgress
	}
	if r.head != nil && (header.Number != r.head.Number+1 || header.ParentHash != r.hash) {
		return fmt.Errorf("%w: got #%d on %s, head is #%d %s",
			ErrNotOnHead, header.Number, header.ParentHash, r.head.Number, r.hash)
	}

	b := &building{header: header, state: NewOverlay(r.store)}
	for _, m := range r.order {
		env := &Env{Number: header.Number, State: b.state}
		if err := m.OnInitialize(ctx, env); err != nil {
			return fmt.Errorf("initialize %s: %w", m.Name(), err)
		}
		for _, ev := range env.Events() {
			b.events = append(b.events, EventRecord{Phase: PhaseInitialization, Event: ev})
		}
	}
	r.current = b
	return nil
}

// ApplyExtrinsic dispatches xt inside the open block. Dispatch failures are
// recorded in the returned Applied and as an ExtrinsicFailed event; the
// error is reserved for lifecycle problems.
func (r *Runtime) ApplyExtrinsic(ctx context.Context, xt Extrinsic) (Applied, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.current
	if b == nil {
		return Applied{}, ErrNoBlockInProgress
	}

	index := len(b.applied)
	applied := Applied{Extrinsic: xt, Inherent: r.isInherent(xt.Call)}
	child := NewOverlay(b.state)
	env := &Env{Number: b.header.Number, State: child}

	err := r.dispatch(ctx, env, xt)
	name := CallName(xt.Call)
	if err != nil {
		applied.Code = ErrorCode(err)
		applied.Error = err.Error()
		b.events = append(b.events, EventRecord{
			Phase:     PhaseApplyExtrinsic,
			Extrinsic: index,
			Event: Event{Module: "system", Name: "ExtrinsicFailed", Data: ExtrinsicFailed{
				ID: xt.ID, Code: applied.Code, Message: applied.Error,
			}},
		})
		metrics.RecordExtrinsic(name, "failed")
		r.log.Warn(ctx, "extrinsic failed",
			logger.String("call", name),
			logger.String("origin", xt.Origin.String()),
			logger.String("code", applied.Code),
			logger.Error(err))
	} else {
		applied.Success = true
		b.state.Merge(child)
		for _, ev := range env.Events() {
			b.events = append(b.events, EventRecord{Phase: PhaseApplyExtrinsic, Extrinsic: index, Event: ev})
		}
		b.events = append(b.events, EventRecord{
			Phase:     PhaseApplyExtrinsic,
			Extrinsic: index,
			Event:     Event{Module: "system", Name: "ExtrinsicSuccess", Data: ExtrinsicSuccess{ID: xt.ID}},
		})
		metrics.RecordExtrinsic(name, "success")
		r.log.Debug(ctx, "extrinsic applied", logger.String("call", name), logger.Uint64("block", b.header.Number))
	}

	b.applied = append(b.applied, applied)
	return applied, nil
}

func (r *Runtime) dispatch(ctx context.Context, env *Env, xt Extrinsic) error {
	if xt.Call == nil {
		return ErrCallNotFound
	}
	m, ok := r.modules[xt.Call.Module()]
	if !ok {
		return ErrCallNotFound
	}
	return m.Dispatch(ctx, env, xt.Origin, xt.Call)
}

func (r *Runtime) isInherent(call Call) bool {
	if call == nil {
		return false
	}
	m, ok := r.modules[call.Module()].(InherentModule)
	return ok && m.IsInherent(call)
}

// CreateInherents asks every inherent module for its inherent.
func (r *Runtime) CreateInherents(bag *inherent.Data) []Extrinsic {
	var out []Extrinsic
	for _, m := range r.order {
		im, ok := m.(InherentModule)
		if !ok {
			continue
		}
		if call, ok := im.CreateInherent(bag); ok {
			out = append(out, NewExtrinsic(None(), call))
		}
	}
	return out
}

// CheckInherents verifies that every inherent bag demands is present and
// applied successfully in b.
func (r *Runtime) CheckInherents(b *Block, bag *inherent.Data) *inherent.CheckResult {
	res := inherent.NewCheckResult()
	for _, m := range r.order {
		im, ok := m.(InherentModule)
		if !ok {
			continue
		}
		required := im.IsInherentRequired(bag)
		if required == nil {
			continue
		}
		present := false
		for _, a := range b.Extrinsics {
			if a.Success && a.Extrinsic.Origin.Kind == OriginNone && im.IsInherent(a.Extrinsic.Call) {
				present = true
				break
			}
		}
		if !present {
			res.PutError(im.InherentIdentifier(), required, isFatal(required))
		}
	}
	return res
}

func isFatal(err error) bool {
	var f Fatal
	return errors.As(err, &f) && f.IsFatal()
}

// Pending returns a snapshot of the open block. Its hash is not set.
func (r *Runtime) Pending() (*Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return nil, ErrNoBlockInProgress
	}
	return &Block{
		Header:     r.current.header,
		Extrinsics: append([]Applied(nil), r.current.applied...),
		Events:     append([]EventRecord(nil), r.current.events...),
	}, nil
}

// FinalizeBlock commits the open block's state and seals it.
func (r *Runtime) FinalizeBlock(ctx context.Context) (*Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.current
	if b == nil {
		return nil, ErrNoBlockInProgress
	}

	start := time.Now()
	if err := r.store.Commit(ctx, b.state.Changes()); err != nil {
		metrics.RecordStateError()
		r.current = nil
		return nil, fmt.Errorf("%w: %w", ErrCommit, err)
	}
	metrics.RecordStateCommit(float64(time.Since(start).Milliseconds()))
	r.current = nil

	sealed := &Block{
		Header:     b.header,
		Hash:       sealHash(b.header, b.applied),
		Extrinsics: b.applied,
		Events:     b.events,
	}
	r.head, r.hash = &sealed.Header, sealed.Hash
	return sealed, nil
}

// Head returns the number and hash of the last committed block.
func (r *Runtime) Head() (uint64, Hash, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.head == nil {
		return 0, Hash{}, false
	}
	return r.head.Number, r.hash, true
}

// AbortBlock discards the open block, if any.
func (r *Runtime) AbortBlock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nil
}
