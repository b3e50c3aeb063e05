package querycache

import (
	"context"

	"github.com/goliatone/go-query-cache/cache"
)

// Put encodes value with the cache codec and stores it under key.
func Put[V any](ctx context.Context, c *Cache, key string, value V, tables []TableRef, opts ...PutOption) error {
	data, err := c.codec.Marshal(value)
	if err != nil {
		return err
	}
	return c.Store(ctx, key, data, tables, opts...)
}

// Get looks key up and decodes the entry into V. An entry that fails to decode
// is logged and reported as a miss.
func Get[V any](ctx context.Context, c *Cache, key string) (V, bool) {
	var zero V
	data, ok := c.Lookup(ctx, key)
	if !ok {
		return zero, false
	}

	var value V
	if err := c.codec.Unmarshal(data, &value); err != nil {
		c.logger.WarnContext(ctx, "query cache entry could not be decoded, treating as miss", "key", key, "error", err)
		return zero, false
	}
	return value, true
}

// Fetch is the read-through path. When caching applies to ctx it returns the
// cached value for key, or runs fn, stores its result under tables and returns
// it. Concurrent misses for the same key share one fn call and its result.
// An empty key with no tag on ctx runs fn without touching the cache.
//
// The shared call runs detached from any single caller's cancellation; a
// caller whose ctx ends stops waiting and gets ctx.Err().
//
// Errors from fn are returned and never cached. A failing store only costs the
// cache write; the fresh value is still returned.
func Fetch[V any](ctx context.Context, c *Cache, key string, tables []TableRef, fn func(context.Context) (V, error)) (V, error) {
	mark, marked := cacheMarkFromContext(ctx)
	if !c.cachingEnabled(mark, marked) {
		return fn(ctx)
	}

	storageKey := key
	if mark.tag != "" {
		storageKey = mark.tag
	}
	if storageKey == cache.UncacheableKey {
		return fn(ctx)
	}

	if value, ok := Get[V](ctx, c, storageKey); ok {
		return value, nil
	}

	flight := c.flights.DoChan(storageKey, func() (any, error) {
		flightCtx := context.WithoutCancel(ctx)
		value, err := fn(flightCtx)
		if err != nil {
			return value, err
		}
		if err := Put(flightCtx, c, storageKey, value, tables, WithEntryTTL(mark.ttl)); err != nil {
			c.logger.DebugContext(flightCtx, "query cache skipped write after fetch", "key", storageKey, "error", err)
		}
		return value, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return zero, res.Err
		}
		value, ok := res.Val.(V)
		if !ok {
			// Same key fetched with a different result type by another caller.
			return fn(ctx)
		}
		return value, nil
	}
}

func (c *Cache) cachingEnabled(mark cacheMark, marked bool) bool {
	switch c.strategy {
	case cache.StrategyAll:
		return !marked || mark.enabled
	default:
		return marked && mark.enabled
	}
}

// Enabled reports whether reads executed with ctx are cached.
func (c *Cache) Enabled(ctx context.Context) bool {
	mark, marked := cacheMarkFromContext(ctx)
	return c.cachingEnabled(mark, marked)
}
