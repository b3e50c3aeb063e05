// Package repositorycache provides cached repository decorators for go-repository-bun.
//
// # Overview
//
// CachedRepository[T] wraps a base repository.Repository[T] and routes its read
// operations through a shared *querycache.Cache. Every cached read is indexed
// under the repository tables, and every successful write invalidates those
// tables, so a write through any decorator (or through bun with the
// querycache hook attached) drops the stale reads of every decorator sharing
// the cache.
//
// # Basic Usage
//
//	store, _ := cache.NewStore(cfg, logger)
//	c := querycache.New(store, querycache.WithStrategy(cache.StrategyAll))
//
//	cached := repositorycache.New[*User](base, c,
//		repositorycache.NewSQLKeySerializer(db, (*User)(nil), nil))
//
//	user, err := cached.GetByID(ctx, "user-123")
//	users, total, err := cached.List(ctx, byName("test"))
//
// Without explicit tables the table is resolved from T. Pass table
// references to New when reads join other tables.
//
// # Cached vs Pass-through Operations
//
// Cached (subject to the cache strategy and context marks):
//   - Get, GetByID, GetByIdentifier
//   - List, Count
//
// Invalidating on success:
//   - Create*, GetOrCreate*, Update*, Upsert*, Delete*, DeleteWhere*, ForceDelete*
//     including their Tx variants
//
// Pass-through:
//   - Read operations within transactions (*Tx reads)
//   - Raw and RawTx
//
// Writes also drop the tags attached with querycache.WithInvalidationTags.
//
// # Keys
//
// Select criteria are functions, which the default reflection serializer
// cannot key by value; reads passing criteria then go straight to the base
// repository. NewSQLKeySerializer renders criteria into the SQL they produce,
// so two closures binding different values get distinct entries.
// Method names are prefixed with the model type, so repositories over
// different models never share an entry.
//
// # Error Handling
//
// Errors from the base repository are propagated unchanged and never cached.
// Cache store faults are logged: reads fall through to the base repository,
// and a failed invalidation does not fail the write.
package repositorycache
