// Package config loads the qcache command configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/internal/logging"
	"gopkg.in/yaml.v3"
)

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string         `yaml:"level"`
	Format logging.Format `yaml:"format"`
}

// Config is the qcache command configuration.
type Config struct {
	DatabaseURL string       `yaml:"database_url"`
	Cache       cache.Config `yaml:"cache"`
	Log         LogConfig    `yaml:"log"`
}

// DefaultConfig returns a Config with sensible defaults. The command caches
// every read unless told otherwise.
func DefaultConfig() *Config {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Strategy = cache.StrategyAll
	return &Config{
		Cache: cacheCfg,
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// Load reads path, when given, over the defaults and then applies
// environment overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("QCACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = cache.Backend(v)
	}
	if v := os.Getenv("QCACHE_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("QCACHE_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("QCACHE_STRATEGY"); v != "" {
		cfg.Cache.Strategy = cache.Strategy(v)
	}
	if v := os.Getenv("QCACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: QCACHE_TTL: %w", err)
		}
		cfg.Cache.TTL = ttl
	}
	if v := os.Getenv("QCACHE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("QCACHE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = logging.Format(v)
	}
	return nil
}

// Validate checks the configuration. The cache section is validated by
// cache.Config.Validate, which also requires a Redis address for the redis
// backend.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DatabaseURL, validation.Required),
		validation.Field(&c.Cache),
		validation.Field(&c.Log),
	)
}

// Validate checks the logger settings.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In(logging.FormatText, logging.FormatJSON)),
	)
}
