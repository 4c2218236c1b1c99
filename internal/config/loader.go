package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETPULSE_* environment variable overrides,
// and returns the final Config. A missing file is not an error; defaults
// plus environment overrides apply. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETPULSE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setInt(&cfg.Feed.Limit, "MARKETPULSE_FEED_LIMIT")
	setDuration(&cfg.Feed.RefreshInterval, "MARKETPULSE_FEED_REFRESH_INTERVAL")
	setStringSlice(&cfg.Feed.Platforms, "MARKETPULSE_FEED_PLATFORMS")

	// ── Upstreams ──
	setStr(&cfg.Polymarket.GammaHost, "MARKETPULSE_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Kalshi.BaseURL, "MARKETPULSE_KALSHI_BASE_URL")
	setStr(&cfg.Opinion.BaseURL, "MARKETPULSE_OPINION_BASE_URL")
	setStr(&cfg.Opinion.OpenAPIURL, "MARKETPULSE_OPINION_OPENAPI_URL")
	setStr(&cfg.Opinion.ApiKey, "MARKETPULSE_OPINION_API_KEY")
	setStr(&cfg.Opinion.ApiKey, "OPINION_API_KEY") // compatibility alias

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MARKETPULSE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETPULSE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETPULSE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETPULSE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETPULSE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETPULSE_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MARKETPULSE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MARKETPULSE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETPULSE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MARKETPULSE_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETPULSE_MODE")
	setStr(&cfg.LogLevel, "MARKETPULSE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
