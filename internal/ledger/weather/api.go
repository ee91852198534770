package weather

import (
	"context"

	"github.com/okian/weatheroracle/internal/chain"
	"github.com/okian/weatheroracle/internal/domain/geo"
)

// API answers read-only queries against a state, usually the best block's.
type API[T Value] struct {
	module *Module[T]
	state  chain.StateReader
}

// NewAPI binds m to state.
func NewAPI[T Value](m *Module[T], state chain.StateReader) *API[T] {
	return &API[T]{module: m, state: state}
}

// WeatherOrder returns the live order, if any.
func (a *API[T]) WeatherOrder(ctx context.Context) (geo.Scaled, bool, error) {
	return a.module.WeatherOrder(ctx, a.state)
}

// StoredInherentData returns the stored reading, if any.
func (a *API[T]) StoredInherentData(ctx context.Context) (T, bool, error) {
	return a.module.StoredInherentData(ctx, a.state)
}
