// Package author produces one block per slot.
//
// Each slot gathers inherent data from the providers against the committed
// state of the best block, opens a block on top of it, applies the inherents
// followed by pooled extrinsics, verifies the inherents and seals the block.
// A slot that cannot gather its inherent data produces no block.
package author

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/weatheroracle/internal/adapters/repository"
	"github.com/okian/weatheroracle/internal/chain"
	"github.com/okian/weatheroracle/internal/domain/inherent"
	"github.com/okian/weatheroracle/pkg/logger"
	"github.com/okian/weatheroracle/pkg/metrics"
)

const (
	defaultSlotDuration  = 6 * time.Second
	defaultMaxExtrinsics = 256
	shutdownTimeout      = 30 * time.Second
)

// Runtime is the block-building surface the author drives.
type Runtime interface {
	InitializeBlock(ctx context.Context, header chain.Header) error
	ApplyExtrinsic(ctx context.Context, xt chain.Extrinsic) (chain.Applied, error)
	CreateInherents(bag *inherent.Data) []chain.Extrinsic
	CheckInherents(b *chain.Block, bag *inherent.Data) *inherent.CheckResult
	Pending() (*chain.Block, error)
	FinalizeBlock(ctx context.Context) (*chain.Block, error)
	AbortBlock()
}

// Pool hands out pending extrinsics and takes back those of a block that
// was not committed.
type Pool interface {
	Drain(ctx context.Context, limit int) []chain.Extrinsic
	Requeue(ctx context.Context, xs []chain.Extrinsic)
}

// Author runs the slot loop.
type Author struct {
	rt        Runtime
	blocks    repository.Blocks
	pool      Pool
	providers []inherent.Provider

	slot          time.Duration
	maxExtrinsics int
	now           func() time.Time
	log           logger.Logger

	mu   sync.Mutex
	cron *cron.Cron

	// slotMu serializes AuthorSlot between the schedule and direct callers.
	slotMu sync.Mutex
}

// New creates an author that imports into blocks and drains pool.
func New(rt Runtime, blocks repository.Blocks, pool Pool, opts ...Option) *Author {
	a := &Author{
		rt:            rt,
		blocks:        blocks,
		pool:          pool,
		slot:          defaultSlotDuration,
		maxExtrinsics: defaultMaxExtrinsics,
		now:           time.Now,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start schedules a slot every slot duration until Shutdown. Slots never
// overlap: a slot still running when the next one is due skips the next.
func (a *Author) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cron != nil {
		return ErrAlreadyStarted
	}

	cl := cronLogger{ctx: ctx, log: a.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	every := fmt.Sprintf("@every %s", a.slot)
	if _, err := c.AddFunc(every, func() { a.runSlot(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", every, err)
	}
	c.Start()
	a.cron = c

	a.log.Info(ctx, "block author started", logger.Duration("slot", a.slot))
	return nil
}

// Shutdown stops scheduling and waits for a running slot to finish.
func (a *Author) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()

	if c == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	select {
	case <-c.Stop().Done():
		a.log.Info(ctx, "block author stopped")
		return nil
	case <-shutdownCtx.Done():
		a.log.Warn(ctx, "block author shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
	}
}

func (a *Author) runSlot(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, a.slot)
	defer cancel()

	if _, err := a.AuthorSlot(ctx); err != nil {
		a.log.Warn(ctx, "slot produced no block", logger.Error(err))
	}
}

// AuthorSlot builds, seals and imports one block. It returns the imported
// block, or an error and no block when the slot is skipped. Pooled
// extrinsics of a block that is not committed go back to the pool. Calls
// run one at a time.
func (a *Author) AuthorSlot(ctx context.Context) (*chain.Block, error) {
	a.slotMu.Lock()
	defer a.slotMu.Unlock()

	metrics.RecordSlot()
	start := time.Now()

	bag := inherent.NewData()
	for _, p := range a.providers {
		if err := p.ProvideInherentData(ctx, bag); err != nil {
			metrics.RecordSlotSkipped("provide")
			return nil, fmt.Errorf("%w: %w", ErrProvide, err)
		}
	}

	header, err := a.nextHeader(ctx)
	if err != nil {
		metrics.RecordSlotSkipped("header")
		return nil, err
	}

	if err := a.rt.InitializeBlock(ctx, header); err != nil {
		metrics.RecordSlotSkipped("initialize")
		return nil, err
	}

	for _, xt := range a.rt.CreateInherents(bag) {
		applied, err := a.rt.ApplyExtrinsic(ctx, xt)
		if err != nil || !applied.Success {
			a.rt.AbortBlock()
			metrics.RecordSlotSkipped("inherent")
			if err == nil {
				err = errors.New(applied.Error)
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrInherentApply, chain.CallName(xt.Call), err)
		}
	}

	pooled := a.pool.Drain(ctx, a.maxExtrinsics)
	for _, xt := range pooled {
		if _, err := a.rt.ApplyExtrinsic(ctx, xt); err != nil {
			a.rt.AbortBlock()
			a.requeue(ctx, header.Number, pooled)
			metrics.RecordSlotSkipped("apply")
			return nil, err
		}
	}

	pending, err := a.rt.Pending()
	if err != nil {
		a.rt.AbortBlock()
		a.requeue(ctx, header.Number, pooled)
		metrics.RecordSlotSkipped("pending")
		return nil, err
	}
	if res := a.rt.CheckInherents(pending, bag); !res.Ok() {
		a.rt.AbortBlock()
		a.requeue(ctx, header.Number, pooled)
		metrics.RecordInherentCheckFailure()
		metrics.RecordSlotSkipped("check")
		a.handleCheckErrors(ctx, res)
		return nil, fmt.Errorf("%w: block #%d", ErrInherentCheck, header.Number)
	}

	b, err := a.rt.FinalizeBlock(ctx)
	if err != nil {
		// Nothing was committed.
		a.requeue(ctx, header.Number, pooled)
		metrics.RecordSlotSkipped("finalize")
		return nil, err
	}
	if err := a.blocks.Import(ctx, b); err != nil {
		// The block's state is committed, so its extrinsics are not
		// requeued. The runtime refuses blocks off its head, which keeps
		// the history and the state in step under slotMu.
		metrics.RecordSlotSkipped("import")
		a.log.Error(ctx, "committed block not imported",
			logger.Uint64("number", b.Header.Number),
			logger.String("hash", b.Hash.String()),
			logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrImport, err)
	}

	elapsed := time.Since(start)
	metrics.RecordBlockAuthored(b.Header.Number, float64(elapsed.Milliseconds()))
	a.log.Info(ctx, "block authored",
		logger.Uint64("number", b.Header.Number),
		logger.String("hash", b.Hash.String()),
		logger.Int("extrinsics", len(b.Extrinsics)),
		logger.Int("inherents", b.InherentCount()),
		logger.Duration("took", elapsed))
	return b, nil
}

func (a *Author) requeue(ctx context.Context, number uint64, pooled []chain.Extrinsic) {
	if len(pooled) == 0 {
		return
	}
	a.pool.Requeue(ctx, pooled)
	a.log.Warn(ctx, "block discarded, extrinsics returned to the pool",
		logger.Uint64("number", number),
		logger.Int("requeued", len(pooled)))
}

func (a *Author) nextHeader(ctx context.Context) (chain.Header, error) {
	h := chain.Header{Number: 1, Timestamp: a.now().UTC()}
	best, err := a.blocks.Latest(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return h, nil
	case err != nil:
		return chain.Header{}, err
	}
	h.Number = best.Header.Number + 1
	h.ParentHash = best.Hash
	return h, nil
}

// handleCheckErrors offers every check error to the providers.
func (a *Author) handleCheckErrors(ctx context.Context, res *inherent.CheckResult) {
	for _, id := range res.Identifiers() {
		checkErr, _ := res.Error(id)
		raw := encodeCheckError(checkErr)

		handled := false
		for _, p := range a.providers {
			ok, err := p.TryHandleError(ctx, id, raw)
			if !ok {
				continue
			}
			handled = true
			a.log.Error(ctx, "inherent check failed",
				logger.String("identifier", id.String()),
				logger.Error(err))
			break
		}
		if !handled {
			a.log.Error(ctx, "unhandled inherent check error",
				logger.String("identifier", id.String()),
				logger.Error(checkErr))
		}
	}
}

func encodeCheckError(err error) []byte {
	var enc interface{ Encode() []byte }
	if errors.As(err, &enc) {
		return enc.Encode()
	}
	if err == nil {
		return nil
	}
	return []byte(err.Error())
}

// cronLogger routes cron's own logging through the node logger.
type cronLogger struct {
	ctx context.Context
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(l.ctx, "cron: "+msg, logger.Any("kv", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(l.ctx, "cron: "+msg, logger.Error(err), logger.Any("kv", keysAndValues))
}
