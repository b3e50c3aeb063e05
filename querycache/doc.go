// Package querycache is a read-through, write-invalidate cache for database
// query results.
//
// # Overview
//
// Read results are stored in a key-value store (see cache.Store) under a key
// derived from the query text and its bound parameters. Every stored key is
// recorded in a table-usage Index under each table the read depends on. A
// write to a table invalidates all keys recorded for it:
//
//	c := querycache.New(store, querycache.WithStrategy(cache.StrategyAll))
//
//	key := c.Key("select * from user where name = ?", "test")
//	rows, err := querycache.Fetch(ctx, c, key, querycache.Tables("user"), loadUsers)
//
//	// after writing to user
//	err = c.Invalidate(ctx, querycache.Mutation{Tables: querycache.Tables("user")})
//
// Entries also expire after their TTL (30s unless configured or overridden).
//
// # Strategies
//
// With cache.StrategyExplicit only reads whose context was marked with
// WithCache are cached. With cache.StrategyAll every read is cached unless its
// context carries WithoutCache.
//
// # Tags
//
// A read marked with Tag (or stored with WithTag) lives under the tag instead
// of its query key. Invalidating the tag removes it regardless of tables.
// Writes executed with WithInvalidationTags drop those tags as well.
//
// # bun
//
// Attach registers an InvalidationHook on a *bun.DB so every successful
// INSERT, UPDATE, DELETE, MERGE, TRUNCATE or DROP invalidates its table.
// Select runs a *bun.SelectQuery through the cache.
//
//	querycache.Attach(db, c)
//	users, err := querycache.Select[User](ctx, c, db.NewSelect().Model((*User)(nil)).Where("name = ?", name))
//
// # Failure behavior
//
// Lookups are fail-open: a store fault is logged and treated as a miss.
// Store and Invalidate return *StoreError values; a key whose deletion failed
// stays indexed so the next invalidation of its table retries it.
package querycache
