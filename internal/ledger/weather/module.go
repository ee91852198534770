// Package weather is the ledger module that stores one weather reading and
// at most one weather order per block.
//
// Both slots are cleared when the next block initializes, so neither value
// outlives the block it was set in. The reading arrives as an inherent built
// from the author's inherent data; orders are signed user calls.
package weather

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/okian/weatheroracle/internal/chain"
	"github.com/okian/weatheroracle/internal/domain/fixedpoint"
	"github.com/okian/weatheroracle/internal/domain/geo"
	"github.com/okian/weatheroracle/internal/domain/inherent"
	"github.com/okian/weatheroracle/pkg/logger"
)

// InherentIdentifier tags the reading in the inherent data bag.
var InherentIdentifier = inherent.NewIdentifier("weat_orc")

// Storage keys.
const (
	StoredInherentDataKey = "weather/stored_inherent_data"
	WeatherOrderKey       = "weather/weather_order"
)

// Value is what the module can store as a reading.
type Value interface {
	comparable
	Encode() []byte
	// Deconstruct recovers the reading as a float for event messages.
	Deconstruct() float64
}

// Decoder parses an encoded Value.
type Decoder[T Value] func([]byte) (T, error)

// Module implements chain.InherentModule for readings of type T.
type Module[T Value] struct {
	decode Decoder[T]
	log    logger.Logger
	stored chain.StorageValue[T]
	order  chain.StorageValue[geo.Scaled]
}

// Oracle is the module as the node runs it, storing quantized temperatures.
type Oracle = Module[fixedpoint.Permill]

// NewOracle builds the temperature module.
func NewOracle(opts ...Option) *Oracle {
	return New(fixedpoint.DecodeTemperature, opts...)
}

// New builds a module for T.
func New[T Value](decode Decoder[T], opts ...Option) *Module[T] {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Module[T]{
		decode: decode,
		log:    o.log,
		stored: chain.StorageValue[T]{
			Key:    StoredInherentDataKey,
			Encode: func(v T) []byte { return v.Encode() },
			Decode: decode,
		},
		order: chain.StorageValue[geo.Scaled]{
			Key:    WeatherOrderKey,
			Encode: geo.Scaled.Encode,
			Decode: geo.DecodeScaled,
		},
	}
}

func (m *Module[T]) Name() string { return ModuleName }

// OnInitialize clears both slots.
func (m *Module[T]) OnInitialize(_ context.Context, env *chain.Env) error {
	m.stored.Kill(env.State)
	m.order.Kill(env.State)
	return nil
}

// Dispatch routes the module's calls.
func (m *Module[T]) Dispatch(ctx context.Context, env *chain.Env, origin chain.Origin, call chain.Call) error {
	switch c := call.(type) {
	case SetWeatherData[T]:
		return m.setWeatherData(ctx, env, origin, c.Value)
	case OrderWeatherData:
		return m.orderWeatherData(ctx, env, origin, c.Lat, c.Long)
	default:
		return chain.ErrCallNotFound
	}
}

func (m *Module[T]) setWeatherData(ctx context.Context, env *chain.Env, origin chain.Origin, value T) error {
	if err := origin.EnsureNone(); err != nil {
		return err
	}

	exists, err := m.stored.Exists(ctx, env.State)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadySet
	}

	m.stored.Put(env.State, value)

	msg, err := message(value)
	if err != nil {
		return err
	}
	env.Deposit(ModuleName, EventWeatherDataSet, WeatherDataSet{Message: msg})

	m.log.Info(ctx, "weather data set",
		logger.Uint64("block", env.Number),
		logger.String("message", msg))
	return nil
}

func message[T Value](v T) (string, error) {
	f := v.Deconstruct()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", ErrUnableToCreateEventData
	}
	return decimal.NewFromFloat(f).String() + " °C", nil
}

func (m *Module[T]) orderWeatherData(ctx context.Context, env *chain.Env, origin chain.Origin, lat, long string) error {
	account, err := origin.EnsureSigned()
	if err != nil {
		return err
	}

	scaled, err := geo.Parse(lat, long)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedParsingLatitudeOrLongitude, err)
	}

	exists, err := m.order.Exists(ctx, env.State)
	if err != nil {
		return err
	}
	if exists {
		return ErrWeatherOrderAlreadySet
	}

	m.order.Put(env.State, scaled)
	env.Deposit(ModuleName, EventWeatherOrderSet, WeatherOrderSet{Lat: lat, Long: long})

	m.log.Info(ctx, "weather order set",
		logger.Uint64("block", env.Number),
		logger.String("account", account),
		logger.String("lat", lat),
		logger.String("long", long))
	return nil
}

// WeatherOrder reads the live order from state.
func (m *Module[T]) WeatherOrder(ctx context.Context, state chain.StateReader) (geo.Scaled, bool, error) {
	return m.order.Get(ctx, state)
}

// StoredInherentData reads the reading stored in state.
func (m *Module[T]) StoredInherentData(ctx context.Context, state chain.StateReader) (T, bool, error) {
	return m.stored.Get(ctx, state)
}

// InherentIdentifier returns the bag key the module reads.
func (m *Module[T]) InherentIdentifier() inherent.Identifier { return InherentIdentifier }

func (m *Module[T]) decodeData(bag *inherent.Data) (T, bool) {
	var zero T
	raw, ok := bag.Get(InherentIdentifier)
	if !ok {
		return zero, false
	}
	v, err := m.decode(raw)
	if err != nil {
		return zero, false
	}
	return v, true
}

// IsInherentRequired demands the inherent whenever the bag carries a
// decodable reading.
func (m *Module[T]) IsInherentRequired(bag *inherent.Data) error {
	if _, ok := m.decodeData(bag); ok {
		return &InherentError{Kind: InherentRequiredForDataPresent}
	}
	return nil
}

// CreateInherent builds SetWeatherData from a decodable reading.
func (m *Module[T]) CreateInherent(bag *inherent.Data) (chain.Call, bool) {
	v, ok := m.decodeData(bag)
	if !ok {
		return nil, false
	}
	return SetWeatherData[T]{Value: v}, true
}

// IsInherent reports true only for SetWeatherData.
func (m *Module[T]) IsInherent(call chain.Call) bool {
	_, ok := call.(SetWeatherData[T])
	return ok
}

// IsValidationError reports whether err is one of the module's dispatch
// errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrAlreadySet) ||
		errors.Is(err, ErrWeatherOrderAlreadySet) ||
		errors.Is(err, ErrFailedParsingLatitudeOrLongitude) ||
		errors.Is(err, ErrUnableToCreateEventData)
}
