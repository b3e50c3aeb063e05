package cache

import (
	"context"
	"time"
)

// KeySerializer builds a cache key from a method (or query text) + arbitrary args.
// It is responsible for producing stable keys across calls, and returns
// UncacheableKey when the args cannot be keyed by value.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// UncacheableKey marks a read that must bypass the cache.
const UncacheableKey = ""

// Store is the key-value protocol the query cache persists entries through.
// Values are opaque to the store.
//
// Get reports a missing or expired key as (nil, false, nil); a non-nil error
// means the backend could not be reached. Deleting a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Strategy controls which read queries participate in caching.
type Strategy string

const (
	// StrategyExplicit caches only reads explicitly marked on their context.
	StrategyExplicit Strategy = "explicit"
	// StrategyAll caches every eligible read unless opted out.
	StrategyAll Strategy = "all"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyExplicit || s == StrategyAll
}

func (s Strategy) String() string {
	return string(s)
}
