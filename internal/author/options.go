package author

import (
	"time"

	"github.com/okian/weatheroracle/internal/domain/inherent"
	"github.com/okian/weatheroracle/pkg/logger"
)

// Option applies a configuration option to the Author.
type Option func(*Author)

// WithProvider adds an inherent data provider. Providers run in the order
// they were added.
func WithProvider(p inherent.Provider) Option {
	return func(a *Author) {
		if p != nil {
			a.providers = append(a.providers, p)
		}
	}
}

// WithSlotDuration sets the block time.
func WithSlotDuration(d time.Duration) Option {
	return func(a *Author) {
		if d > 0 {
			a.slot = d
		}
	}
}

// WithMaxExtrinsics caps pooled extrinsics per block.
func WithMaxExtrinsics(n int) Option {
	return func(a *Author) {
		if n > 0 {
			a.maxExtrinsics = n
		}
	}
}

// WithClock overrides the block timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Author) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets a custom logger for the author.
func WithLogger(l logger.Logger) Option {
	return func(a *Author) {
		if l != nil {
			a.log = l
		}
	}
}
