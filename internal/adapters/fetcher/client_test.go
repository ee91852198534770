package fetcher_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/sony/gobreaker"

	"github.com/okian/weatheroracle/internal/adapters/fetcher"
	"github.com/okian/weatheroracle/internal/domain/fixedpoint"
	"github.com/okian/weatheroracle/internal/domain/geo"
	"github.com/okian/weatheroracle/pkg/logger"
)

const forecastBody = `{
  "latitude": 52.52,
  "longitude": 13.419998,
  "generationtime_ms": 0.1,
  "utc_offset_seconds": 0,
  "timezone": "GMT",
  "timezone_abbreviation": "GMT",
  "elevation": 38.0,
  "current_weather": {
    "temperature": %s,
    "windspeed": 11.2,
    "winddirection": 250.0,
    "weathercode": 3,
    "is_day": 1,
    "time": "2023-05-01T12:00"
  }
}`

// fakeUpstream serves the three endpoints and counts hits.
type fakeUpstream struct {
	server      *httptest.Server
	mu          sync.Mutex
	ipBody      string
	geoBody     string
	temperature string
	weatherCode int
	hits        atomic.Int32
	lastQuery   url.Values
	lastGeoPath string
}

func newFakeUpstream() *fakeUpstream {
	f := &fakeUpstream{ipBody: "203.0.113.7\n", geoBody: "52.52,13.41", temperature: "18.6", weatherCode: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/ip", func(w http.ResponseWriter, _ *http.Request) {
		f.hits.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		_, _ = io.WriteString(w, f.ipBody)
	})
	mux.HandleFunc("/geo/", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastGeoPath = r.URL.Path
		_, _ = io.WriteString(w, f.geoBody)
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastQuery = r.URL.Query()
		if f.weatherCode != http.StatusOK {
			w.WriteHeader(f.weatherCode)
			return
		}
		if f.temperature == "" {
			_, _ = io.WriteString(w, `{"latitude": 1, "elevation": 2}`)
			return
		}
		_, _ = fmt.Fprintf(w, forecastBody, f.temperature)
	})
	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeUpstream) set(fn func(*fakeUpstream)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeUpstream) query() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

func (f *fakeUpstream) geoPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastGeoPath
}

func (f *fakeUpstream) client(opts ...fetcher.Option) *fetcher.Client {
	base := []fetcher.Option{
		fetcher.WithEndpoints(f.server.URL+"/ip", f.server.URL+"/geo/{ip}/latlong/", f.server.URL+"/forecast"),
		fetcher.WithTimeout(time.Second),
		fetcher.WithLogger(logger.Nop()),
	}
	return fetcher.New(append(base, opts...)...)
}

func TestPublicIP(t *testing.T) {
	Convey("Given an IP echo endpoint", t, func() {
		up := newFakeUpstream()
		defer up.server.Close()
		c := up.client()
		ctx := context.Background()

		Convey("When it answers with a trailing newline", func() {
			ip, err := c.PublicIP(ctx)

			Convey("Then the address is trimmed", func() {
				So(err, ShouldBeNil)
				So(ip, ShouldEqual, "203.0.113.7")
			})
		})

		Convey("When it answers with something that is not an address", func() {
			up.set(func(f *fakeUpstream) { f.ipBody = "<html>rate limited</html>" })
			_, err := c.PublicIP(ctx)
			So(errors.Is(err, fetcher.ErrFetch), ShouldBeTrue)
		})
	})
}

func TestLatLong(t *testing.T) {
	Convey("Given a geolocation endpoint", t, func() {
		up := newFakeUpstream()
		defer up.server.Close()
		c := up.client()
		ctx := context.Background()

		Convey("When it answers lat,long", func() {
			coords, err := c.LatLong(ctx, "203.0.113.7")

			Convey("Then both parts are returned and the ip is in the path", func() {
				So(err, ShouldBeNil)
				So(coords, ShouldResemble, geo.Coordinates{Lat: "52.52", Long: "13.41"})
				So(up.geoPath(), ShouldEqual, "/geo/203.0.113.7/latlong/")
			})
		})

		Convey("When the longitude is missing", func() {
			up.set(func(f *fakeUpstream) { f.geoBody = "52.52" })
			_, err := c.LatLong(ctx, "203.0.113.7")
			So(errors.Is(err, fetcher.ErrFetch), ShouldBeTrue)
			So(errors.Is(err, fetcher.ErrMissingLong), ShouldBeTrue)
		})

		Convey("When the body is empty", func() {
			up.set(func(f *fakeUpstream) { f.geoBody = "" })
			_, err := c.LatLong(ctx, "203.0.113.7")
			So(errors.Is(err, fetcher.ErrMissingLat), ShouldBeTrue)
		})
	})
}

func TestFetchWeather(t *testing.T) {
	Convey("Given a weather endpoint", t, func() {
		up := newFakeUpstream()
		defer up.server.Close()
		c := up.client()
		ctx := context.Background()

		Convey("When it reports 18.6 °C", func() {
			p, err := c.FetchWeather(ctx, "52.5", "13.4")

			Convey("Then the reading quantizes to 186/1000", func() {
				So(err, ShouldBeNil)
				So(p.PerThousand(), ShouldEqual, 186)
			})

			Convey("Then the request carries the coordinates", func() {
				q := up.query()
				So(q["latitude"], ShouldResemble, []string{"52.5"})
				So(q["longitude"], ShouldResemble, []string{"13.4"})
				So(q["current_weather"], ShouldResemble, []string{"true"})
			})
		})

		Convey("When the full record is requested", func() {
			f, err := c.Forecast(ctx, "52.5", "13.4")

			Convey("Then the extra fields are decoded", func() {
				So(err, ShouldBeNil)
				So(f.CurrentWeather.WeatherCode, ShouldEqual, 3)
				So(f.CurrentWeather.WindSpeed, ShouldEqual, 11.2)
				So(f.Timezone, ShouldEqual, "GMT")
			})
		})

		Convey("When the endpoint fails", func() {
			up.set(func(f *fakeUpstream) { f.weatherCode = http.StatusBadGateway })
			_, err := c.FetchWeather(ctx, "1", "1")

			Convey("Then it is a fetch error and no retry is made", func() {
				So(errors.Is(err, fetcher.ErrFetch), ShouldBeTrue)
				So(errors.Is(err, fetcher.ErrStatus), ShouldBeTrue)
				So(up.hits.Load(), ShouldEqual, 1)
			})
		})

		Convey("When current_weather is missing", func() {
			up.set(func(f *fakeUpstream) { f.temperature = "" })
			_, err := c.FetchWeather(ctx, "1", "1")
			So(errors.Is(err, fetcher.ErrMissingCurrent), ShouldBeTrue)
		})

		Convey("When the body is not JSON", func() {
			up.set(func(f *fakeUpstream) { f.temperature = `"hot"` })
			_, err := c.FetchWeather(ctx, "1", "1")
			So(errors.Is(err, fetcher.ErrFetch), ShouldBeTrue)
		})

		Convey("When the reading does not fit", func() {
			up.set(func(f *fakeUpstream) { f.temperature = "104.2" })
			_, err := c.FetchWeather(ctx, "1", "1")
			So(errors.Is(err, fixedpoint.ErrEncode), ShouldBeTrue)
		})
	})
}

func TestFetchLocalWeather(t *testing.T) {
	Convey("Given all three endpoints", t, func() {
		up := newFakeUpstream()
		defer up.server.Close()
		c := up.client()

		Convey("When the local weather is fetched", func() {
			p, err := c.FetchLocalWeather(context.Background())

			Convey("Then it chains ip, geolocation and weather", func() {
				So(err, ShouldBeNil)
				So(p.PerThousand(), ShouldEqual, 186)
				So(up.hits.Load(), ShouldEqual, 3)
				q := up.query()
				So(q["latitude"], ShouldResemble, []string{"52.52"})
			})
		})

		Convey("When geolocation fails", func() {
			up.set(func(f *fakeUpstream) { f.geoBody = "" })
			_, err := c.FetchLocalWeather(context.Background())

			Convey("Then the weather endpoint is never called", func() {
				So(err, ShouldNotBeNil)
				So(up.hits.Load(), ShouldEqual, 2)
			})
		})
	})
}

func TestBreaker(t *testing.T) {
	Convey("Given a client whose breaker opens after two failures", t, func() {
		up := newFakeUpstream()
		defer up.server.Close()
		up.set(func(f *fakeUpstream) { f.weatherCode = http.StatusInternalServerError })
		c := up.client(fetcher.WithBreaker(2, time.Minute))
		ctx := context.Background()

		_, _ = c.FetchWeather(ctx, "1", "1")
		_, _ = c.FetchWeather(ctx, "1", "1")

		Convey("When a third request is made", func() {
			_, err := c.FetchWeather(ctx, "1", "1")

			Convey("Then it fails fast without reaching the endpoint", func() {
				So(errors.Is(err, fetcher.ErrFetch), ShouldBeTrue)
				So(errors.Is(err, gobreaker.ErrOpenState), ShouldBeTrue)
				So(up.hits.Load(), ShouldEqual, 2)

				state, ok := c.BreakerState(fetcher.EndpointWeather)
				So(ok, ShouldBeTrue)
				So(state, ShouldEqual, gobreaker.StateOpen)
			})

			Convey("Then the other endpoints are unaffected", func() {
				state, _ := c.BreakerState(fetcher.EndpointIPEcho)
				So(state, ShouldEqual, gobreaker.StateClosed)
				_, err := c.PublicIP(ctx)
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestRoundTripper(t *testing.T) {
	Convey("Given a logging round tripper", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, strings.Repeat("x", 1000))
		}))
		defer srv.Close()

		hc := &http.Client{Transport: fetcher.NewRoundTripper(logger.Nop(), nil)}

		Convey("When a request completes", func() {
			resp, err := hc.Get(srv.URL)
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			Convey("Then the body is still readable in full", func() {
				body, err := io.ReadAll(resp.Body)
				So(err, ShouldBeNil)
				So(len(body), ShouldEqual, 1000)
			})
		})

		Convey("When the transport fails", func() {
			srv.Close()
			_, err := hc.Get(srv.URL)
			So(err, ShouldNotBeNil)
		})
	})
}
