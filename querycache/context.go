package querycache

import (
	"context"
	"strings"
	"time"
)

type cacheMarkContextKey struct{}
type invalidationTagsContextKey struct{}

// cacheMark is what WithCache / WithoutCache leave on a context.
type cacheMark struct {
	enabled bool
	tag     string
	ttl     time.Duration
}

// MarkOption customises a read marked with WithCache.
type MarkOption func(*cacheMark)

// Tag caches the read under tag instead of its query key, so the entry can be
// invalidated by tag.
func Tag(tag string) MarkOption {
	return func(m *cacheMark) {
		m.tag = strings.TrimSpace(tag)
	}
}

// TTL overrides the cache default TTL for the marked read.
func TTL(ttl time.Duration) MarkOption {
	return func(m *cacheMark) {
		m.ttl = ttl
	}
}

// WithCache marks reads executed with ctx as cacheable. Under the explicit
// strategy this is the only way a read gets cached.
func WithCache(ctx context.Context, opts ...MarkOption) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	mark := cacheMark{enabled: true}
	for _, opt := range opts {
		opt(&mark)
	}
	return context.WithValue(ctx, cacheMarkContextKey{}, mark)
}

// WithoutCache opts reads executed with ctx out of caching, including under
// the all strategy.
func WithoutCache(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cacheMarkContextKey{}, cacheMark{enabled: false})
}

func cacheMarkFromContext(ctx context.Context) (cacheMark, bool) {
	if ctx == nil {
		return cacheMark{}, false
	}
	mark, ok := ctx.Value(cacheMarkContextKey{}).(cacheMark)
	return mark, ok
}

// WithInvalidationTags attaches tags to the context; mutations executed with
// it invalidate those tags in addition to the affected tables.
func WithInvalidationTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(InvalidationTagsFromContext(ctx), tags...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, invalidationTagsContextKey{}, combined)
}

// InvalidationTagsFromContext returns a copy of the tags attached with
// WithInvalidationTags.
func InvalidationTagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(invalidationTagsContextKey{}).([]string); ok {
		return append([]string(nil), tags...)
	}
	return nil
}

// dedupeStrings trims entries, drops blanks and keeps first occurrences.
func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
