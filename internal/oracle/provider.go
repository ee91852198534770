package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/weatheroracle/internal/domain/fixedpoint"
	"github.com/okian/weatheroracle/internal/domain/inherent"
	"github.com/okian/weatheroracle/internal/ledger/weather"
	"github.com/okian/weatheroracle/pkg/logger"
	"github.com/okian/weatheroracle/pkg/metrics"
)

// WeatherFetcher fetches the quantized temperature at a location.
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, lat, long string) (fixedpoint.Permill, error)
}

// Fetcher is everything the provider needs from the network.
type Fetcher interface {
	Locator
	WeatherFetcher
}

// Provider is the weather inherent data provider.
type Provider struct {
	resolver *Resolver
	weather  WeatherFetcher
	log      logger.Logger
}

var _ inherent.Provider = (*Provider)(nil)

// NewProvider builds a Provider reading orders from orders and the network
// through f.
func NewProvider(orders OrderSource, f Fetcher, opts ...Option) *Provider {
	o := newOptions(opts)
	return &Provider{
		resolver: NewResolver(orders, f, opts...),
		weather:  f,
		log:      o.log,
	}
}

// ProvideInherentData resolves coordinates, fetches the temperature there and
// files it in bag. Any failure is returned; nothing is put in bag then.
func (p *Provider) ProvideInherentData(ctx context.Context, bag *inherent.Data) error {
	res := p.resolver.Resolve(ctx)
	if res.Source == Unresolved {
		metrics.RecordInherentFailure("resolve")
		return res.Err
	}

	reading, err := p.weather.FetchWeather(ctx, res.Coordinates.Lat, res.Coordinates.Long)
	if err != nil {
		stage := "fetch"
		if errors.Is(err, fixedpoint.ErrEncode) {
			stage = "encode"
		}
		metrics.RecordInherentFailure(stage)
		return err
	}

	if err := bag.Put(weather.InherentIdentifier, reading.Encode()); err != nil {
		metrics.RecordInherentFailure("bag")
		return err
	}

	metrics.RecordInherentProvided(reading.Deconstruct())
	p.log.Info(ctx, "weather inherent data provided",
		logger.String("source", res.Source.String()),
		logger.String("lat", res.Coordinates.Lat),
		logger.String("long", res.Coordinates.Long),
		logger.String("reading", reading.String()))
	return nil
}

// TryHandleError ignores foreign identifiers. Errors under the weather
// identifier are always fatal.
func (p *Provider) TryHandleError(ctx context.Context, id inherent.Identifier, raw []byte) (bool, error) {
	if id != weather.InherentIdentifier {
		return false, nil
	}
	p.log.Error(ctx, "weather inherent rejected", logger.String("payload", fmt.Sprintf("%x", raw)))
	return true, fmt.Errorf("%w: error processing inherent: %x", ErrInherent, raw)
}
