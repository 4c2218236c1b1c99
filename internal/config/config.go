// Package config defines the top-level configuration for the market pulse
// feed and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARKETPULSE_* environment
// variables.
type Config struct {
	Feed       FeedConfig       `toml:"feed"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Opinion    OpinionConfig    `toml:"opinion"`
	Redis      RedisConfig      `toml:"redis"`
	Server     ServerConfig     `toml:"server"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// FeedConfig holds the polling loop parameters.
type FeedConfig struct {
	Limit           int      `toml:"limit"`
	RefreshInterval duration `toml:"refresh_interval"`
	Platforms       []string `toml:"platforms"` // empty means all
}

// PolymarketConfig holds the Polymarket Gamma API endpoint.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
}

// KalshiConfig holds the Kalshi trade API endpoint.
type KalshiConfig struct {
	BaseURL string `toml:"base_url"`
}

// OpinionConfig holds the Opinion API endpoints and the server-held key for
// the authenticated endpoint set.
type OpinionConfig struct {
	BaseURL    string `toml:"base_url"`
	OpenAPIURL string `toml:"openapi_url"`
	ApiKey     string `toml:"api_key"`
}

// RedisConfig holds Redis connection parameters for the proxy response
// cache. An empty Addr disables caching entirely.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "8s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "8s" or "1m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			Limit:           40,
			RefreshInterval: duration{8 * time.Second},
			Platforms:       nil,
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		Opinion: OpinionConfig{
			BaseURL:    "https://proxy.opinion.trade:8443/api/bsc/api/v2",
			OpenAPIURL: "https://proxy.opinion.trade:8443/openapi",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"poll":  true,
	"once":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, poll, once)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed
	if c.Feed.Limit < 1 {
		errs = append(errs, "feed: limit must be >= 1")
	}
	if c.Feed.RefreshInterval.Duration < time.Second {
		errs = append(errs, "feed: refresh_interval must be at least 1s")
	}
	for _, p := range c.Feed.Platforms {
		if _, ok := domain.ParsePlatform(p); !ok {
			errs = append(errs, fmt.Sprintf("feed: unknown platform %q (valid: polymarket, kalshi, opinion)", p))
		}
	}

	// Upstream endpoints
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Opinion.BaseURL == "" {
		errs = append(errs, "opinion: base_url must not be empty")
	}

	// Redis — empty addr disables the proxy cache, otherwise the pool must
	// be sane.
	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// FeedPlatforms converts the configured platform names into domain keys.
// Validate has already rejected unknown names.
func (c *Config) FeedPlatforms() []domain.Platform {
	out := make([]domain.Platform, 0, len(c.Feed.Platforms))
	for _, name := range c.Feed.Platforms {
		if p, ok := domain.ParsePlatform(name); ok {
			out = append(out, p)
		}
	}
	return out
}
