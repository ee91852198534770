// Package config defines node configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// State backends understood by the node.
const (
	StateBackendMemory = "memory"
	StateBackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile optionally mirrors logs into a rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SlotDurationMS is the block time. It also bounds how long the
	// inherent provider may wait on the network in one slot.
	SlotDurationMS int `koanf:"slot_duration_ms"`

	// TxPoolSize bounds the pending extrinsic pool.
	TxPoolSize int `koanf:"tx_pool_size"`

	// MaxExtrinsicsPerBlock caps user extrinsics drained per block.
	MaxExtrinsicsPerBlock int `koanf:"max_extrinsics_per_block"`

	// DedupeSize sets the size of the submission idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// BlockHistory is how many sealed blocks are kept for queries.
	BlockHistory int `koanf:"block_history"`

	// Outbound endpoints. GeolocationURL and WeatherURL are templates:
	// "{ip}" is replaced by the public IP; weather gets query parameters.
	IPEchoURL      string `koanf:"ip_echo_url"`
	GeolocationURL string `koanf:"geolocation_url"`
	WeatherURL     string `koanf:"weather_url"`

	// HTTPTimeoutMS caps a single outbound request.
	HTTPTimeoutMS int `koanf:"http_timeout_ms"`

	// BreakerFailures consecutive failures open an endpoint breaker for
	// BreakerTimeoutMS.
	BreakerFailures  int `koanf:"breaker_failures"`
	BreakerTimeoutMS int `koanf:"breaker_timeout_ms"`

	// StateBackend selects where ledger state lives: memory or redis.
	StateBackend string `koanf:"state_backend"`
	RedisAddr    string `koanf:"redis_addr"`
	RedisDB      int    `koanf:"redis_db"`
	RedisPrefix  string `koanf:"redis_prefix"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9944",
		SlotDurationMS:        6000,
		TxPoolSize:            4096,
		MaxExtrinsicsPerBlock: 256,
		DedupeSize:            50_000,
		BlockHistory:          1024,
		IPEchoURL:             "http://icanhazip.com",
		GeolocationURL:        "https://ipapi.co/{ip}/latlong/",
		WeatherURL:            "https://api.open-meteo.com/v1/forecast",
		HTTPTimeoutMS:         2000,
		BreakerFailures:       5,
		BreakerTimeoutMS:      30_000,
		StateBackend:          StateBackendMemory,
		RedisAddr:             "localhost:6379",
		RedisDB:               0,
		RedisPrefix:           "weatheroracle",
	}
}

// SlotDuration returns the slot length.
func (c *Config) SlotDuration() time.Duration {
	return time.Duration(c.SlotDurationMS) * time.Millisecond
}

// HTTPTimeout returns the per-request outbound timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

// BreakerTimeout returns how long an open breaker stays open.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutMS) * time.Millisecond
}
