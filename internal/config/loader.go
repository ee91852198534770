package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "WORACLE_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if WORACLE_CONFIG is set
//  3. env (prefix WORACLE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// WORACLE_SLOT_DURATION_MS -> slot_duration_ms (flat keys).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the node cannot run without.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SlotDurationMS <= 0:
		return fmt.Errorf("%w: slot_duration_ms must be positive", ErrInvalidConfig)
	case c.HTTPTimeoutMS <= 0:
		return fmt.Errorf("%w: http_timeout_ms must be positive", ErrInvalidConfig)
	case c.HTTPTimeoutMS*3 > c.SlotDurationMS:
		// Three sequential calls must fit in one slot.
		return fmt.Errorf("%w: http_timeout_ms*3 exceeds slot_duration_ms", ErrInvalidConfig)
	case c.IPEchoURL == "" || c.GeolocationURL == "" || c.WeatherURL == "":
		return fmt.Errorf("%w: outbound endpoints must be set", ErrInvalidConfig)
	case !strings.Contains(c.GeolocationURL, "{ip}"):
		return fmt.Errorf("%w: geolocation_url must contain {ip}", ErrInvalidConfig)
	}
	switch c.StateBackend {
	case StateBackendMemory:
	case StateBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr must be set for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown state_backend %q", ErrInvalidConfig, c.StateBackend)
	}
	return nil
}
