// Package oracle produces the weather inherent data for each authored block.
package oracle

import (
	"context"
	"fmt"

	"github.com/okian/weatheroracle/internal/domain/geo"
	"github.com/okian/weatheroracle/pkg/logger"
	"github.com/okian/weatheroracle/pkg/metrics"
)

// OrderSource reads the live weather order from the parent state.
type OrderSource interface {
	WeatherOrder(ctx context.Context) (geo.Scaled, bool, error)
}

// Locator finds this node's coordinates from its public IP.
type Locator interface {
	PublicIP(ctx context.Context) (string, error)
	LatLong(ctx context.Context, ip string) (geo.Coordinates, error)
}

// Source tells where a Resolution came from.
type Source int

const (
	Unresolved Source = iota
	FromOrder
	FromGeolocation
)

func (s Source) String() string {
	switch s {
	case FromOrder:
		return "order"
	case FromGeolocation:
		return "geolocation"
	default:
		return "unresolved"
	}
}

// Resolution is the outcome of Resolve. Coordinates is set unless Source is
// Unresolved, in which case Err is.
type Resolution struct {
	Source      Source
	Coordinates geo.Coordinates
	Err         error
}

// Resolver picks the coordinates to fetch the weather for: the live order
// if there is one, else this node's geolocation.
type Resolver struct {
	orders  OrderSource
	locator Locator
	log     logger.Logger
}

// NewResolver builds a Resolver.
func NewResolver(orders OrderSource, locator Locator, opts ...Option) *Resolver {
	o := newOptions(opts)
	return &Resolver{orders: orders, locator: locator, log: o.log}
}

// Resolve never retries; a failed geolocation leaves the block without a
// reading.
func (r *Resolver) Resolve(ctx context.Context) Resolution {
	res := r.resolve(ctx)
	metrics.RecordResolution(res.Source.String())
	return res
}

func (r *Resolver) resolve(ctx context.Context) Resolution {
	order, ok, err := r.orders.WeatherOrder(ctx)
	if err != nil {
		r.log.Warn(ctx, "weather order query failed, falling back to geolocation", logger.Error(err))
		ok = false
	}
	if ok {
		coords := order.Unscale()
		r.log.Info(ctx, "weather order from runtime",
			logger.String("lat", coords.Lat),
			logger.String("long", coords.Long))
		return Resolution{Source: FromOrder, Coordinates: coords}
	}
	r.log.Info(ctx, "no weather order in runtime")

	ip, err := r.locator.PublicIP(ctx)
	if err != nil {
		return Resolution{Source: Unresolved, Err: fmt.Errorf("%w: public ip: %w", ErrResolve, err)}
	}
	coords, err := r.locator.LatLong(ctx, ip)
	if err != nil {
		return Resolution{Source: Unresolved, Err: fmt.Errorf("%w: geolocation: %w", ErrResolve, err)}
	}
	return Resolution{Source: FromGeolocation, Coordinates: coords}
}
