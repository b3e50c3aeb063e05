package cache

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Strategy != StrategyExplicit {
		t.Errorf("expected Strategy to be explicit, got %q", cfg.Strategy)
	}
	if cfg.TTL != 30*time.Second {
		t.Errorf("expected TTL to be 30 seconds, got %v", cfg.TTL)
	}
	if cfg.Backend != BackendRedis {
		t.Errorf("expected Backend to be redis, got %q", cfg.Backend)
	}
	if cfg.Redis.Addr == "" {
		t.Error("expected a default redis address")
	}
	if cfg.Memory.Capacity != 10000 {
		t.Errorf("expected Memory.Capacity to be 10000, got %d", cfg.Memory.Capacity)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{name: "valid default config", mutate: func(*Config) {}},
		{name: "strategy all", mutate: func(c *Config) { c.Strategy = StrategyAll }},
		{name: "missing strategy", mutate: func(c *Config) { c.Strategy = "" }, wantError: true},
		{name: "unknown strategy", mutate: func(c *Config) { c.Strategy = "sometimes" }, wantError: true},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }, wantError: true},
		{name: "negative max ttl", mutate: func(c *Config) { c.MaxTTL = -time.Second }, wantError: true},
		{name: "ttl above max ttl", mutate: func(c *Config) { c.MaxTTL = time.Second }, wantError: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "memcached" }, wantError: true},
		{name: "redis without address", mutate: func(c *Config) { c.Redis.Addr = "" }, wantError: true},
		{name: "memory ignores redis address", mutate: func(c *Config) {
			c.Backend = BackendMemory
			c.Redis.Addr = ""
		}},
		{name: "memory with zero capacity", mutate: func(c *Config) {
			c.Backend = BackendMemory
			c.Memory.Capacity = 0
		}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantError && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestNewStore_Memory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMemory

	store, err := NewStore(cfg, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if val, ok, err := store.Get(ctx, "k"); err != nil || !ok || string(val) != "v" {
		t.Fatalf("expected hit with 'v', got val=%q ok=%v err=%v", val, ok, err)
	}
}

func TestNewStore_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Redis.Addr = ""

	if _, err := NewStore(cfg, nil); err == nil {
		t.Fatal("expected error for missing redis address")
	}
}
