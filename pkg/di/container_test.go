package di

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/internal/cacheinfra"
)

func TestNewContainer(t *testing.T) {
	config := cache.DefaultConfig()
	config.Backend = cache.BackendMemory
	config.Strategy = cache.StrategyAll
	config.TTL = 5 * time.Minute

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	if container.Cache() == nil {
		t.Error("Container should have a non-nil cache")
	}
	if container.Store() == nil {
		t.Error("Container should have a non-nil store")
	}
	if container.KeySerializer() == nil {
		t.Error("Container should have a non-nil key serializer")
	}

	if got := container.Cache().Strategy(); got != cache.StrategyAll {
		t.Errorf("Expected strategy %q, got %q", cache.StrategyAll, got)
	}
	if got := container.Config().TTL; got != config.TTL {
		t.Errorf("Expected TTL %v, got %v", config.TTL, got)
	}
	if got := container.Cache().EffectiveTTL(0); got != config.TTL {
		t.Errorf("Expected cache TTL %v, got %v", config.TTL, got)
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	config := container.Config()
	defaults := cache.DefaultConfig()

	if config.Backend != cache.BackendMemory {
		t.Errorf("Expected memory backend, got %q", config.Backend)
	}
	if config.TTL != defaults.TTL {
		t.Errorf("Expected default TTL %v, got %v", defaults.TTL, config.TTL)
	}
	if config.Strategy != defaults.Strategy {
		t.Errorf("Expected default strategy %q, got %q", defaults.Strategy, config.Strategy)
	}
	if _, ok := container.Store().(*cacheinfra.MemoryStore); !ok {
		t.Errorf("Expected a memory store, got %T", container.Store())
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*cache.Config)
	}{
		{"unknown strategy", func(c *cache.Config) { c.Strategy = "sometimes" }},
		{"zero ttl", func(c *cache.Config) { c.TTL = 0 }},
		{"ttl above max", func(c *cache.Config) { c.MaxTTL = time.Second; c.TTL = time.Minute }},
		{"zero capacity", func(c *cache.Config) { c.Memory.Capacity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := cache.DefaultConfig()
			config.Backend = cache.BackendMemory
			tt.modify(&config)

			if _, err := NewContainer(config); err == nil {
				t.Error("NewContainer() should fail with invalid config")
			}
		})
	}
}

func TestNewContainer_InvalidConfigWithStore(t *testing.T) {
	store := &closeTrackingStore{Store: newStore(t)}
	config := cache.DefaultConfig()
	config.Strategy = "sometimes"

	if _, err := NewContainer(config, WithStore(store)); err == nil {
		t.Fatal("expected config validation to fail")
	}
	if !store.closed {
		t.Error("store should be closed when the cache cannot be built")
	}
}

func TestNewContainer_WithStore(t *testing.T) {
	store := newStore(t)
	config := cache.DefaultConfig()

	container, err := NewContainer(config, WithStore(store))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	if container.Store() != store {
		t.Error("Container should use the injected store")
	}
	if container.Cache().Backend() != store {
		t.Error("Cache should use the injected store")
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	if container.Cache() != container.Cache() {
		t.Error("Cache should return the same instance")
	}

	first := NewCachedRepository[User](container, newUserRepository())
	second := NewCachedRepository[User](container, newUserRepository())
	if first == second {
		t.Error("each call should build a new decorator")
	}
}

func TestKeySerializerIntegration(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	serializer := container.KeySerializer()

	tests := []struct {
		name   string
		method string
		args   []any
	}{
		{"simple", "GetByID", []any{"123"}},
		{"multiple args", "List", []any{10, 20, "active"}},
		{"no args", "Count", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := serializer.SerializeKey(tt.method, tt.args...)
			if key == "" {
				t.Error("SerializeKey() returned empty key")
			}
			if again := serializer.SerializeKey(tt.method, tt.args...); again != key {
				t.Errorf("expected stable key, got %q and %q", key, again)
			}
		})
	}

	if serializer.SerializeKey("GetByID", "1") == serializer.SerializeKey("GetByID", "2") {
		t.Error("different args should produce different keys")
	}
}

func TestCacheIntegration(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	c := container.Cache()
	ctx := context.Background()
	key := c.Key("SELECT * FROM users WHERE id = ?", 1)

	if err := c.Store(ctx, key, []byte("row"), nil); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	value, ok := c.Lookup(ctx, key)
	if !ok || string(value) != "row" {
		t.Fatalf("Lookup() = %q, %v", value, ok)
	}
}

func TestClose(t *testing.T) {
	store := &closeTrackingStore{Store: newStore(t)}
	container, err := NewContainer(cache.DefaultConfig(), WithStore(store))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	if err := container.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !store.closed {
		t.Error("Close() should close the store")
	}

	store.closeErr = errors.New("boom")
	if err := container.Close(); err == nil {
		t.Error("Close() should surface store errors")
	}
}

type closeTrackingStore struct {
	cache.Store
	closed   bool
	closeErr error
}

func (s *closeTrackingStore) Close() error {
	s.closed = true
	return s.closeErr
}

func newStore(t *testing.T) cache.Store {
	t.Helper()
	store, err := cacheinfra.NewMemoryStore(cacheinfra.DefaultMemoryConfig())
	if err != nil {
		t.Fatalf("NewMemoryStore() failed: %v", err)
	}
	return store
}
