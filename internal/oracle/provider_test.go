package oracle_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"

	"github.com/okian/weatheroracle/internal/adapters/repository"
	"github.com/okian/weatheroracle/internal/chain"
	"github.com/okian/weatheroracle/internal/domain/fixedpoint"
	"github.com/okian/weatheroracle/internal/domain/geo"
	"github.com/okian/weatheroracle/internal/domain/inherent"
	"github.com/okian/weatheroracle/internal/ledger/weather"
	"github.com/okian/weatheroracle/internal/oracle"
)

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) WeatherOrder(ctx context.Context) (geo.Scaled, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(geo.Scaled), args.Bool(1), args.Error(2)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) PublicIP(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockFetcher) LatLong(ctx context.Context, ip string) (geo.Coordinates, error) {
	args := m.Called(ctx, ip)
	return args.Get(0).(geo.Coordinates), args.Error(1)
}

func (m *mockFetcher) FetchWeather(ctx context.Context, lat, long string) (fixedpoint.Permill, error) {
	args := m.Called(ctx, lat, long)
	return args.Get(0).(fixedpoint.Permill), args.Error(1)
}

func quantized(c float64) fixedpoint.Permill {
	p, err := fixedpoint.Quantize(c)
	if err != nil {
		panic(err)
	}
	return p
}

func TestResolver(t *testing.T) {
	Convey("Given a resolver", t, func() {
		ctx := context.Background()
		orders := new(mockOrders)
		f := new(mockFetcher)
		r := oracle.NewResolver(orders, f)

		Convey("When an order is live and geolocation would also work", func() {
			orders.On("WeatherOrder", mock.Anything).Return(geo.Scaled{Lat: 525, Long: 134}, true, nil).Once()
			f.On("PublicIP", mock.Anything).Return("203.0.113.7", nil).Maybe()

			res := r.Resolve(ctx)

			Convey("Then the order wins", func() {
				So(res.Source, ShouldEqual, oracle.FromOrder)
				So(res.Coordinates, ShouldResemble, geo.Coordinates{Lat: "52.5", Long: "13.4"})
				So(res.Err, ShouldBeNil)
				f.AssertNotCalled(t, "PublicIP", mock.Anything)
			})
		})

		Convey("When no order is live", func() {
			orders.On("WeatherOrder", mock.Anything).Return(geo.Scaled{}, false, nil).Once()
			f.On("PublicIP", mock.Anything).Return("203.0.113.7", nil).Once()
			f.On("LatLong", mock.Anything, "203.0.113.7").Return(geo.Coordinates{Lat: "48.1", Long: "11.6"}, nil).Once()

			res := r.Resolve(ctx)

			Convey("Then geolocation is used", func() {
				So(res.Source, ShouldEqual, oracle.FromGeolocation)
				So(res.Coordinates, ShouldResemble, geo.Coordinates{Lat: "48.1", Long: "11.6"})
				f.AssertExpectations(t)
			})
		})

		Convey("When the order query fails", func() {
			orders.On("WeatherOrder", mock.Anything).Return(geo.Scaled{}, false, errors.New("backend down")).Once()
			f.On("PublicIP", mock.Anything).Return("203.0.113.7", nil).Once()
			f.On("LatLong", mock.Anything, "203.0.113.7").Return(geo.Coordinates{Lat: "1", Long: "2"}, nil).Once()

			res := r.Resolve(ctx)

			Convey("Then it falls back to geolocation", func() {
				So(res.Source, ShouldEqual, oracle.FromGeolocation)
			})
		})

		Convey("When the public ip cannot be fetched", func() {
			orders.On("WeatherOrder", mock.Anything).Return(geo.Scaled{}, false, nil).Once()
			f.On("PublicIP", mock.Anything).Return("", errors.New("timeout")).Once()

			res := r.Resolve(ctx)

			Convey("Then resolution fails without trying geolocation", func() {
				So(res.Source, ShouldEqual, oracle.Unresolved)
				So(errors.Is(res.Err, oracle.ErrResolve), ShouldBeTrue)
				f.AssertNotCalled(t, "LatLong", mock.Anything, mock.Anything)
			})
		})

		Convey("When geolocation fails", func() {
			orders.On("WeatherOrder", mock.Anything).Return(geo.Scaled{}, false, nil).Once()
			f.On("PublicIP", mock.Anything).Return("203.0.113.7", nil).Once()
			f.On("LatLong", mock.Anything, "203.0.113.7").Return(geo.Coordinates{}, errors.New("no lat")).Once()

			res := r.Resolve(ctx)
			So(res.Source, ShouldEqual, oracle.Unresolved)
			So(errors.Is(res.Err, oracle.ErrResolve), ShouldBeTrue)
		})

		Convey("Then sources have readable names", func() {
			So(oracle.FromOrder.String(), ShouldEqual, "order")
			So(oracle.FromGeolocation.String(), ShouldEqual, "geolocation")
			So(oracle.Unresolved.String(), ShouldEqual, "unresolved")
		})
	})
}

func TestProvideInherentData(t *testing.T) {
	Convey("Given a provider", t, func() {
		ctx := context.Background()
		orders := new(mockOrders)
		f := new(mockFetcher)
		p := oracle.NewProvider(orders, f)
		bag := inherent.NewData()

		Convey("When an order is live and the weather is fetched", func() {
			orders.On("WeatherOrder", mock.Anything).Return(geo.Scaled{Lat: 525, Long: 134}, true, nil).Once()
			f.On("FetchWeather", mock.Anything, "52.5", "13.4").Return(quantized(18.6), nil).Once()

			err := p.ProvideInherentData(ctx, bag)

			Convey("Then the encoded reading is filed under the weather identifier", func() {
				So(err, ShouldBeNil)
				raw, ok := bag.Get(weather.InherentIdentifier)
				So(ok, ShouldBeTrue)
				got, err := fixedpoint.Decode(raw)
				So(err, ShouldBeNil)
				So(got.PerThousand(), ShouldEqual, 186)
				f.AssertExpectations(t)
			})
		})

		Convey("When resolution fails", func() {
			orders.On("WeatherOrder", mock.Anything).Return(geo.Scaled{}, false, nil).Once()
			f.On("PublicIP", mock.Anything).Return("", errors.New("offline")).Once()

			err := p.ProvideInherentData(ctx, bag)

			Convey("Then the error surfaces and the bag stays empty", func() {
				So(errors.Is(err, oracle.ErrResolve), ShouldBeTrue)
				So(bag.Len(), ShouldEqual, 0)
				f.AssertNotCalled(t, "FetchWeather", mock.Anything, mock.Anything, mock.Anything)
			})
		})

		Convey("When the fetch fails", func() {
			orders.On("WeatherOrder", mock.Anything).Return(geo.Scaled{Lat: 1, Long: 1}, true, nil).Once()
			fetchErr := errors.New("502")
			f.On("FetchWeather", mock.Anything, "0.1", "0.1").Return(fixedpoint.Zero, fetchErr).Once()

			err := p.ProvideInherentData(ctx, bag)

			Convey("Then no value is fabricated", func() {
				So(errors.Is(err, fetchErr), ShouldBeTrue)
				So(bag.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the bag already holds a weather payload", func() {
			So(bag.Put(weather.InherentIdentifier, []byte{0, 0, 0, 0}), ShouldBeNil)
			orders.On("WeatherOrder", mock.Anything).Return(geo.Scaled{Lat: 1, Long: 1}, true, nil).Once()
			f.On("FetchWeather", mock.Anything, "0.1", "0.1").Return(quantized(5), nil).Once()

			err := p.ProvideInherentData(ctx, bag)
			So(errors.Is(err, inherent.ErrDuplicateIdentifier), ShouldBeTrue)
		})
	})
}

func TestTryHandleError(t *testing.T) {
	Convey("Given a provider", t, func() {
		ctx := context.Background()
		p := oracle.NewProvider(new(mockOrders), new(mockFetcher))

		Convey("When the identifier is someone else's", func() {
			handled, err := p.TryHandleError(ctx, inherent.NewIdentifier("timstap0"), []byte("boom"))

			Convey("Then it is not handled", func() {
				So(handled, ShouldBeFalse)
				So(err, ShouldBeNil)
			})
		})

		Convey("When the identifier is the weather one", func() {
			for _, payload := range [][]byte{nil, {0}, []byte("anything at all")} {
				handled, err := p.TryHandleError(ctx, weather.InherentIdentifier, payload)
				So(handled, ShouldBeTrue)
				So(errors.Is(err, oracle.ErrInherent), ShouldBeTrue)
			}
		})
	})
}

// TestOrderToReading walks an order through two blocks: the order is set,
// the next block carries the reading for it, and the block after that
// starts empty.
func TestOrderToReading(t *testing.T) {
	Convey("Given a runtime with the weather module and a provider on its state", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryState()
		module := weather.NewOracle()
		rt := chain.NewRuntime(store, chain.WithModule(module))
		api := weather.NewAPI(module, rt.State())
		f := new(mockFetcher)
		p := oracle.NewProvider(api, f)

		next := func() chain.Header {
			number, hash, _ := rt.Head()
			return chain.Header{Number: number + 1, ParentHash: hash}
		}

		So(rt.InitializeBlock(ctx, next()), ShouldBeNil)
		a, err := rt.ApplyExtrinsic(ctx, chain.NewExtrinsic(chain.Signed("alice"), weather.OrderWeatherData{Lat: "52.5", Long: "13.4"}))
		So(err, ShouldBeNil)
		So(a.Success, ShouldBeTrue)
		_, err = rt.FinalizeBlock(ctx)
		So(err, ShouldBeNil)

		Convey("When the next block is authored", func() {
			f.On("FetchWeather", mock.Anything, "52.5", "13.4").Return(quantized(18.6), nil).Once()

			bag := inherent.NewData()
			So(p.ProvideInherentData(ctx, bag), ShouldBeNil)

			So(rt.InitializeBlock(ctx, next()), ShouldBeNil)
			xts := rt.CreateInherents(bag)
			So(len(xts), ShouldEqual, 1)
			applied, err := rt.ApplyExtrinsic(ctx, xts[0])
			So(err, ShouldBeNil)
			So(applied.Success, ShouldBeTrue)

			pending, _ := rt.Pending()
			So(rt.CheckInherents(pending, bag).Ok(), ShouldBeTrue)
			b, err := rt.FinalizeBlock(ctx)
			So(err, ShouldBeNil)

			Convey("Then the block reports 18.6 °C and the order is gone", func() {
				var msgs []string
				for _, r := range b.Events {
					if d, ok := r.Event.Data.(weather.WeatherDataSet); ok {
						msgs = append(msgs, d.Message)
					}
				}
				So(msgs, ShouldResemble, []string{"18.6 °C"})

				_, ok, _ := api.WeatherOrder(ctx)
				So(ok, ShouldBeFalse)
				stored, ok, _ := api.StoredInherentData(ctx)
				So(ok, ShouldBeTrue)
				So(stored.PerThousand(), ShouldEqual, 186)
				f.AssertExpectations(t)
			})

			Convey("Then the following block starts empty", func() {
				So(rt.InitializeBlock(ctx, next()), ShouldBeNil)
				_, err := rt.FinalizeBlock(ctx)
				So(err, ShouldBeNil)

				_, ok, _ := api.StoredInherentData(ctx)
				So(ok, ShouldBeFalse)
			})
		})
	})
}
