// Package service assembles the node: ledger state, runtime, weather
// module, inherent provider, transaction pool and block author. It also
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/weatheroracle/internal/adapters/fetcher"
	"github.com/okian/weatheroracle/internal/adapters/mq/queue"
	"github.com/okian/weatheroracle/internal/adapters/repository"
	"github.com/okian/weatheroracle/internal/author"
	"github.com/okian/weatheroracle/internal/chain"
	"github.com/okian/weatheroracle/internal/config"
	"github.com/okian/weatheroracle/internal/domain/dedupe"
	"github.com/okian/weatheroracle/internal/domain/fixedpoint"
	"github.com/okian/weatheroracle/internal/domain/geo"
	"github.com/okian/weatheroracle/internal/ledger/weather"
	"github.com/okian/weatheroracle/internal/oracle"
	"github.com/okian/weatheroracle/pkg/logger"
	"github.com/okian/weatheroracle/pkg/metrics"
)

// ErrNotStarted is returned by API calls made before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the weather oracle node.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store    repository.StateStore
	runtime  *chain.Runtime
	ledger   *weather.API[fixedpoint.Permill]
	blocks   *repository.BlockStore
	pool     *queue.InMemoryQueue
	deduper  dedupe.Deduper
	fetcher  *fetcher.Client
	provider *oracle.Provider
	author   *author.Author

	// Test seams
	fetcherOpts []fetcher.Option
	schedule    bool

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// New constructs a new Service. Without WithConfig the defaults of
// config.New are used.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:      config.New(),
		schedule: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds every component and starts the slot schedule.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	cfg := s.cfg

	s.logger.Info(ctx, "starting weather oracle node...")

	if s.store == nil {
		store, err := s.openState(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}

	module := weather.NewOracle(weather.WithLogger(s.logger.Named("weather")))
	s.runtime = chain.NewRuntime(s.store,
		chain.WithModule(module),
		chain.WithLogger(s.logger.Named("runtime")),
	)
	s.ledger = weather.NewAPI(module, s.runtime.State())
	s.blocks = repository.NewBlockStore(repository.WithCapacity(cfg.BlockHistory))
	s.pool = queue.NewInMemoryQueue(queue.WithCapacity(cfg.TxPoolSize))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))

	fetcherOpts := append([]fetcher.Option{
		fetcher.WithEndpoints(cfg.IPEchoURL, cfg.GeolocationURL, cfg.WeatherURL),
		fetcher.WithTimeout(cfg.HTTPTimeout()),
		fetcher.WithBreaker(cfg.BreakerFailures, cfg.BreakerTimeout()),
		fetcher.WithLogger(s.logger.Named("fetcher")),
	}, s.fetcherOpts...)
	s.fetcher = fetcher.New(fetcherOpts...)

	s.provider = oracle.NewProvider(s.ledger, s.fetcher, oracle.WithLogger(s.logger.Named("oracle")))
	s.author = author.New(s.runtime, s.blocks, s.pool,
		author.WithProvider(s.provider),
		author.WithSlotDuration(cfg.SlotDuration()),
		author.WithMaxExtrinsics(cfg.MaxExtrinsicsPerBlock),
		author.WithLogger(s.logger.Named("author")),
	)

	if s.schedule {
		if err := s.author.Start(ctx); err != nil {
			return err
		}
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "weather oracle node started",
		logger.String("state_backend", cfg.StateBackend),
		logger.Duration("slot", cfg.SlotDuration()),
		logger.Int("txPoolSize", cfg.TxPoolSize),
		logger.Int("dedupeSize", cfg.DedupeSize),
	)

	return nil
}

func (s *Service) openState(ctx context.Context) (repository.StateStore, error) {
	switch s.cfg.StateBackend {
	case config.StateBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: s.cfg.RedisAddr,
			DB:   s.cfg.RedisDB,
		})
		rs := repository.NewRedisState(client,
			repository.WithPrefix(s.cfg.RedisPrefix),
			repository.WithRedisLogger(s.logger.Named("redis")),
		)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("open redis state at %s: %w", s.cfg.RedisAddr, err)
		}
		s.logger.Info(ctx, "using redis state", logger.String("addr", s.cfg.RedisAddr))
		return rs, nil
	default:
		s.logger.Info(ctx, "using in-memory state")
		return repository.NewMemoryState(), nil
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping weather oracle node...")

	var errs []error
	if err := s.author.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.logger.Info(ctx, "weather oracle node stopped")
	return errors.Join(errs...)
}

// AuthorSlot runs one slot outside the schedule.
func (s *Service) AuthorSlot(ctx context.Context) (*chain.Block, error) {
	a, err := s.authorOrErr()
	if err != nil {
		return nil, err
	}
	return a.AuthorSlot(ctx)
}

func (s *Service) authorOrErr() (*author.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.author, nil
}

// SeenAndRecord atomically checks if an idempotency key was seen and
// records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	return s.deduper.SeenAndRecord(ctx, key)
}

// Unrecord forgets an idempotency key.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Submit queues a signed extrinsic for the next block.
func (s *Service) Submit(ctx context.Context, xt chain.Extrinsic) error {
	s.logger.Debug(ctx, "extrinsic submitted",
		logger.String("id", xt.ID.String()),
		logger.String("call", chain.CallName(xt.Call)),
		logger.String("origin", xt.Origin.String()),
	)
	return s.pool.Enqueue(ctx, xt)
}

// WeatherOrder returns the order stored by the best block.
func (s *Service) WeatherOrder(ctx context.Context) (geo.Scaled, bool, error) {
	return s.ledger.WeatherOrder(ctx)
}

// StoredInherentData returns the reading stored by the best block.
func (s *Service) StoredInherentData(ctx context.Context) (fixedpoint.Permill, bool, error) {
	return s.ledger.StoredInherentData(ctx)
}

// LatestBlock returns the best block.
func (s *Service) LatestBlock(ctx context.Context) (*chain.Block, error) {
	return s.blocks.Latest(ctx)
}

// BlockByNumber returns a retained block.
func (s *Service) BlockByNumber(ctx context.Context, number uint64) (*chain.Block, error) {
	return s.blocks.ByNumber(ctx, number)
}

// GetStats returns node statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"state_backend": s.cfg.StateBackend,
		"slot_ms":       s.cfg.SlotDurationMS,
		"tx_pool_size":  s.cfg.TxPoolSize,
		"dedupe_size":   s.cfg.DedupeSize,
	}

	if !s.started {
		return stats
	}

	poolLen := s.pool.Len(ctx)
	stats["tx_pool_length"] = poolLen
	stats["retained_blocks"] = s.blocks.Count(ctx)
	stats["dedupe_entries"] = s.deduper.Size()
	stats["uptime_s"] = int64(time.Since(s.startedAt).Seconds())

	if best, err := s.blocks.Latest(ctx); err == nil {
		stats["best_block"] = best.Header.Number
		stats["best_hash"] = best.Hash.String()
	}
	if n, err := s.store.Len(ctx); err == nil {
		stats["state_keys"] = n
	}

	breakers := make(map[string]string, 3)
	for _, ep := range []string{fetcher.EndpointIPEcho, fetcher.EndpointGeolocation, fetcher.EndpointWeather} {
		if st, ok := s.fetcher.BreakerState(ep); ok {
			breakers[ep] = st.String()
		}
	}
	stats["breakers"] = breakers

	metrics.UpdateTxPoolSize(poolLen)
	return stats
}
