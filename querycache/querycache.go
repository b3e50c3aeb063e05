package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-query-cache/cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"
)

// Cache is the read-through / write-invalidate query result cache.
// A single Cache is meant to be shared by every goroutine of the process.
type Cache struct {
	store      cache.Store
	index      *Index
	strategy   cache.Strategy
	ttl        time.Duration
	maxTTL     time.Duration
	serializer cache.KeySerializer
	codec      cache.Codec
	resolver   Resolver
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	flights    singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithStrategy selects explicit or all. The value is fixed for the Cache lifetime.
func WithStrategy(strategy cache.Strategy) Option {
	return func(c *Cache) {
		c.strategy = strategy
	}
}

// WithTTL sets the default TTL applied when a store call carries none.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithMaxTTL clamps per-call TTL overrides. Zero disables clamping.
func WithMaxTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.maxTTL = ttl
	}
}

// WithKeySerializer replaces the serializer used by Key.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(c *Cache) {
		c.serializer = serializer
	}
}

// WithCodec replaces the codec used by Put, Get and Fetch.
func WithCodec(codec cache.Codec) Option {
	return func(c *Cache) {
		c.codec = codec
	}
}

// WithResolver sets the resolver for model table references.
func WithResolver(resolver Resolver) Option {
	return func(c *Cache) {
		c.resolver = resolver
	}
}

// WithIndex injects the table-usage index, e.g. to share or inspect it.
func WithIndex(index *Index) Option {
	return func(c *Cache) {
		c.index = index
	}
}

// WithLogger sets the logger for store faults. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Cache) {
		c.metrics = metrics
	}
}

// WithTracer sets the tracer used for lookup, store and invalidate spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Cache) {
		c.tracer = tracer
	}
}

// New creates a Cache on top of store.
func New(store cache.Store, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		strategy:   cache.StrategyExplicit,
		ttl:        cache.DefaultTTL,
		serializer: cache.NewHashedKeySerializer("query", nil),
		codec:      cache.NewMsgpackCodec(),
		resolver:   SnakeResolver{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.index == nil {
		c.index = NewIndex()
	}
	if !c.strategy.Valid() {
		c.strategy = cache.StrategyExplicit
	}
	if c.ttl <= 0 {
		c.ttl = cache.DefaultTTL
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = tracenoop.NewTracerProvider().Tracer("querycache")
	}
	return c
}

// NewFromConfig creates a Cache using the strategy and TTLs from cfg.
// Options are applied after the config values.
func NewFromConfig(store cache.Store, cfg cache.Config, opts ...Option) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("querycache: invalid config: %w", err)
	}
	base := []Option{
		WithStrategy(cfg.Strategy),
		WithTTL(cfg.TTL),
		WithMaxTTL(cfg.MaxTTL),
	}
	return New(store, append(base, opts...)...), nil
}

// Strategy returns the activation mode chosen at construction.
func (c *Cache) Strategy() cache.Strategy {
	return c.strategy
}

// Index returns the table-usage index owned by the cache.
func (c *Cache) Index() *Index {
	return c.index
}

// Backend returns the backing key-value store.
func (c *Cache) Backend() cache.Store {
	return c.store
}

// Logger returns the logger store faults are reported to.
func (c *Cache) Logger() *slog.Logger {
	return c.logger
}

// Key derives the cache key for query text and its bound parameters.
func (c *Cache) Key(query string, args ...any) string {
	return c.serializer.SerializeKey(query, args...)
}

// EffectiveTTL returns override when positive, the default otherwise, clamped
// to the max TTL when one is set.
func (c *Cache) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = c.ttl
	}
	if c.maxTTL > 0 && ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	return ttl
}

// Lookup returns the value stored under key. A store fault is logged and
// reported as a miss so the caller falls through to the database.
func (c *Cache) Lookup(ctx context.Context, key string) ([]byte, bool) {
	ctx, span := c.tracer.Start(ctx, "querycache.lookup", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		storeErr := &StoreError{Op: "get", Key: key, Err: err}
		c.logger.WarnContext(ctx, "query cache lookup failed, treating as miss", "key", key, "error", err)
		c.metrics.lookup("error")
		span.RecordError(storeErr)
		span.SetStatus(codes.Error, "store get failed")
		return nil, false
	}

	span.SetAttributes(attribute.Bool("cache.hit", ok))
	if !ok {
		c.metrics.lookup("miss")
		return nil, false
	}
	c.metrics.lookup("hit")
	return value, true
}

// PutOption customises a single Store call.
type PutOption func(*putOptions)

type putOptions struct {
	tag string
	ttl time.Duration
}

// WithTag stores the entry under tag (tag-as-key), making it removable with
// Invalidate(Mutation{Tags: []string{tag}}).
func WithTag(tag string) PutOption {
	return func(o *putOptions) {
		o.tag = tag
	}
}

// WithEntryTTL overrides the default TTL for a single entry.
func WithEntryTTL(ttl time.Duration) PutOption {
	return func(o *putOptions) {
		o.ttl = ttl
	}
}

// Store persists value under key and records the key under every table.
// Re-storing a key adds to its table associations; it never drops old ones.
// When a tag is given the entry lives under the tag instead of key.
func (c *Cache) Store(ctx context.Context, key string, value []byte, tables []TableRef, opts ...PutOption) error {
	var o putOptions
	for _, opt := range opts {
		opt(&o)
	}

	names, err := ResolveTables(c.resolver, tables...)
	if err != nil {
		return err
	}

	storageKey := key
	if tag := dedupeStrings([]string{o.tag}); len(tag) == 1 {
		storageKey = tag[0]
	}
	ttl := c.EffectiveTTL(o.ttl)

	ctx, span := c.tracer.Start(ctx, "querycache.store", trace.WithAttributes(
		attribute.String("cache.key", storageKey),
		attribute.StringSlice("cache.tables", names),
		attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
	))
	defer span.End()

	unlock := c.index.Lock(names...)
	defer unlock()

	if err := c.store.Set(ctx, storageKey, value, ttl); err != nil {
		storeErr := &StoreError{Op: "set", Key: storageKey, Err: err}
		c.logger.WarnContext(ctx, "query cache store failed", "key", storageKey, "tables", names, "error", err)
		c.metrics.store("error")
		span.RecordError(storeErr)
		span.SetStatus(codes.Error, "store set failed")
		return storeErr
	}

	for _, table := range names {
		c.index.Record(table, storageKey)
	}
	c.metrics.store("ok")
	return nil
}

// Mutation describes what a write touched.
type Mutation struct {
	Tags   []string
	Tables []TableRef
}

// Invalidate deletes every tag key and every key indexed under one of the
// tables, then clears those tables in the index. Table references are
// resolved before any store call; an unresolvable reference fails the call.
//
// Keys whose deletion failed stay indexed so a later invalidation retries
// them. The joined error lists each failed deletion; until it is retried the
// affected entries can be served stale until their TTL runs out.
func (c *Cache) Invalidate(ctx context.Context, m Mutation) error {
	tables, err := ResolveTables(c.resolver, m.Tables...)
	if err != nil {
		return err
	}
	tags := dedupeStrings(m.Tags)
	if len(tags) == 0 && len(tables) == 0 {
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "querycache.invalidate", trace.WithAttributes(
		attribute.StringSlice("cache.tags", tags),
		attribute.StringSlice("cache.tables", tables),
	))
	defer span.End()

	unlock := c.index.Lock(tables...)
	defer unlock()

	var (
		errs    []error
		deleted int
		done    = make(map[string]struct{})
		failed  = make(map[string]struct{})
	)
	remove := func(key string) {
		if _, seen := done[key]; seen {
			return
		}
		done[key] = struct{}{}
		if err := c.store.Delete(ctx, key); err != nil {
			failed[key] = struct{}{}
			errs = append(errs, &StoreError{Op: "delete", Key: key, Err: err})
			return
		}
		deleted++
	}

	for _, tag := range tags {
		remove(tag)
	}

	keysByTable := make(map[string][]string, len(tables))
	for _, table := range tables {
		keys := c.index.Keys(table)
		keysByTable[table] = keys
		for _, key := range keys {
			remove(key)
		}
	}

	// Each table is cleared once, after all of its keys were visited.
	for _, table := range tables {
		c.index.Clear(table)
		for _, key := range keysByTable[table] {
			if _, ok := failed[key]; ok {
				c.index.Record(table, key)
			}
		}
	}

	c.metrics.invalidation(deleted, len(failed))
	span.SetAttributes(attribute.Int("cache.deleted", deleted))

	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logger.WarnContext(ctx, "query cache invalidation incomplete, entries may be served stale until retried or expired",
			"tags", tags, "tables", tables, "failed", len(failed), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "store delete failed")
		return err
	}

	c.logger.DebugContext(ctx, "query cache invalidated", "tags", tags, "tables", tables, "deleted", deleted)
	return nil
}
