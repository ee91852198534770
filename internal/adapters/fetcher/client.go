// Package fetcher talks to the public IP echo, geolocation and weather
// endpoints the oracle reads from.
//
// Every endpoint has its own circuit breaker. Requests are never retried:
// a failed call fails the current slot and the next slot tries again.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/weatheroracle/pkg/logger"
	"github.com/okian/weatheroracle/pkg/metrics"
)

// Endpoint names used for breakers, logs and metrics.
const (
	EndpointIPEcho      = "ip_echo"
	EndpointGeolocation = "geolocation"
	EndpointWeather     = "weather"
)

const maxBodyBytes = 1 << 20

// Client fetches the local weather reading.
type Client struct {
	http           *http.Client
	log            logger.Logger
	ipEchoURL      string
	geolocationURL string
	weatherURL     string
	timeout        time.Duration
	failures       uint32
	breakerTimeout time.Duration
	breakers       map[string]*gobreaker.CircuitBreaker
}

// New builds a Client. Defaults match the public endpoints the node uses out
// of the box.
func New(opts ...Option) *Client {
	c := &Client{
		log:            logger.Nop(),
		ipEchoURL:      "http://icanhazip.com",
		geolocationURL: "https://ipapi.co/{ip}/latlong/",
		weatherURL:     "https://api.open-meteo.com/v1/forecast",
		timeout:        2 * time.Second,
		failures:       5,
		breakerTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{
			Timeout:   c.timeout,
			Transport: NewRoundTripper(c.log, http.DefaultTransport),
		}
	}

	c.breakers = map[string]*gobreaker.CircuitBreaker{
		EndpointIPEcho:      c.newBreaker(EndpointIPEcho),
		EndpointGeolocation: c.newBreaker(EndpointGeolocation),
		EndpointWeather:     c.newBreaker(EndpointWeather),
	}
	return c
}

func (c *Client) newBreaker(name string) *gobreaker.CircuitBreaker {
	failures := c.failures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
			c.log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("endpoint", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})
}

// BreakerState returns the state of the named endpoint's breaker.
func (c *Client) BreakerState(endpoint string) (gobreaker.State, bool) {
	cb, ok := c.breakers[endpoint]
	if !ok {
		return gobreaker.StateClosed, false
	}
	return cb.State(), true
}

// get issues one GET through the endpoint's breaker and returns the body of
// a 2xx response.
func (c *Client) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	start := time.Now()
	result, err := c.breakers[endpoint].Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request failed: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: HTTP %d", ErrStatus, resp.StatusCode)
		}
		return body, nil
	})
	latency := float64(time.Since(start).Milliseconds())

	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
		}
		metrics.RecordFetch(endpoint, outcome, latency)
		return nil, fmt.Errorf("%w: %s unavailable: %w", ErrFetch, endpoint, err)
	}
	metrics.RecordFetch(endpoint, "success", latency)

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned unexpected result", ErrFetch, endpoint)
	}
	return body, nil
}
