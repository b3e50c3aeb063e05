package cache

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-query-cache/internal/cacheinfra"
)

// Backend names the key-value store a Config builds.
type Backend string

const (
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// DefaultTTL is applied to entries stored without a per-call TTL.
const DefaultTTL = 30 * time.Second

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Strategy Strategy      `yaml:"strategy"`
	TTL      time.Duration `yaml:"ttl"`
	// MaxTTL clamps per-call TTL overrides. Zero disables clamping.
	MaxTTL  time.Duration `yaml:"max_ttl"`
	Backend Backend       `yaml:"backend"`
	Redis   RedisConfig   `yaml:"redis"`
	Memory  MemoryConfig  `yaml:"memory"`
}

// RedisConfig mirrors cacheinfra.RedisConfig.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	KeyPrefix    string        `yaml:"key_prefix"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MemoryConfig mirrors cacheinfra.MemoryConfig.
type MemoryConfig struct {
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	MaxTTL             time.Duration `yaml:"max_ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Strategy: StrategyExplicit,
		TTL:      DefaultTTL,
		Backend:  BackendRedis,
		Redis: RedisConfig{
			Addr:        "localhost:63791",
			KeyPrefix:   cacheinfra.DefaultRedisKeyPrefix,
			DialTimeout: 5 * time.Second,
		},
		Memory: convertMemoryFromInternal(cacheinfra.DefaultMemoryConfig()),
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Strategy, validation.Required, validation.In(StrategyExplicit, StrategyAll)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.Backend, validation.Required, validation.In(BackendRedis, BackendMemory)),
	)
	if err != nil {
		return err
	}
	if c.MaxTTL > 0 && c.TTL > c.MaxTTL {
		return validation.Errors{"ttl": validation.NewError("validation_ttl_above_max", "must not exceed max_ttl")}
	}

	switch c.Backend {
	case BackendRedis:
		return c.Redis.toInternal().Validate()
	case BackendMemory:
		return c.Memory.toInternal().Validate()
	}
	return nil
}

// NewStore constructs the key-value store selected by cfg.Backend.
func NewStore(cfg Config, logger *slog.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache: invalid config: %w", err)
	}

	switch cfg.Backend {
	case BackendMemory:
		return cacheinfra.NewMemoryStore(cfg.Memory.toInternal())
	default:
		return cacheinfra.NewRedisStore(cfg.Redis.toInternal(), logger)
	}
}

func (c RedisConfig) toInternal() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		KeyPrefix:    c.KeyPrefix,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

func (c MemoryConfig) toInternal() cacheinfra.MemoryConfig {
	return cacheinfra.MemoryConfig{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		MaxTTL:             c.MaxTTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertMemoryFromInternal(cfg cacheinfra.MemoryConfig) MemoryConfig {
	return MemoryConfig{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		MaxTTL:             cfg.MaxTTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
