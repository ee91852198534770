package fetcher

import (
	"net/http"
	"time"

	"github.com/okian/weatheroracle/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithEndpoints overrides the three endpoint URLs. Empty values keep the
// default. geolocation must contain "{ip}".
func WithEndpoints(ipEcho, geolocation, weather string) Option {
	return func(c *Client) {
		if ipEcho != "" {
			c.ipEchoURL = ipEcho
		}
		if geolocation != "" {
			c.geolocationURL = geolocation
		}
		if weather != "" {
			c.weatherURL = weather
		}
	}
}

// WithTimeout caps each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreaker sets how many consecutive failures open an endpoint's breaker
// and how long it stays open.
func WithBreaker(failures int, openFor time.Duration) Option {
	return func(c *Client) {
		if failures > 0 {
			c.failures = uint32(failures)
		}
		if openFor > 0 {
			c.breakerTimeout = openFor
		}
	}
}

// WithHTTPClient replaces the HTTP client. The client's own timeout and
// transport are used as given.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithLogger sets the logger. It also logs outbound requests unless an HTTP
// client was supplied.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
