package service

import (
	"github.com/okian/weatheroracle/internal/adapters/fetcher"
	"github.com/okian/weatheroracle/internal/adapters/repository"
	"github.com/okian/weatheroracle/internal/config"
	"github.com/okian/weatheroracle/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the node configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStateStore uses store instead of opening the configured backend.
func WithStateStore(store repository.StateStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFetcherOptions appends options applied after the configured ones.
func WithFetcherOptions(opts ...fetcher.Option) Option {
	return func(s *Service) {
		s.fetcherOpts = append(s.fetcherOpts, opts...)
	}
}

// WithoutSchedule builds the node without starting the slot schedule.
// Blocks are then only produced by AuthorSlot.
func WithoutSchedule() Option {
	return func(s *Service) {
		s.schedule = false
	}
}
