// Package cache defines the storage contracts shared by the query cache: the
// key-value Store, the row Codec, key serialization, and configuration.
//
// # Overview
//
//   - Store: the key-value protocol (Get, Set with per-key TTL, Delete, Ping, Close)
//   - Codec: encodes query results into the opaque bytes a Store holds (msgpack by default)
//   - KeySerializer: builds stable cache keys from query text and bound parameters
//   - Config: strategy, TTLs and backend selection, validated with ozzo-validation
//
// # Basic Usage
//
//	cfg := cache.DefaultConfig()
//	cfg.Backend = cache.BackendMemory
//
//	store, err := cache.NewStore(cfg, logger)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
// The store is then handed to querycache.New or querycache.NewFromConfig.
//
// # Backends
//
// BackendRedis (the default) talks to Redis at Config.Redis.Addr and prefixes
// every key. BackendMemory keeps entries in process through sturdyc; entries
// carry their own deadline so per-key TTLs shorter than Memory.MaxTTL hold.
//
// # Key Serialization
//
// The default key serializer keeps the query text verbatim and appends each
// argument with its type:
//
//   - driver.Valuer arguments use the value they send to the database
//   - Basic types: type-tagged string representation, so 1 and "1" differ
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key-value pairs for deterministic output
//   - Structs: exported fields with name:value pairs
//   - Functions and channels: no value form; the key is UncacheableKey
//
// NewHashedKeySerializer bounds key length for network stores by replacing
// the serialized arguments with an xxhash digest under a readable namespace.
//
// Closures used as select criteria bind their values invisibly to reflection,
// so reads keyed by them bypass the cache. Use
// repositorycache.NewSQLKeySerializer, which renders criteria into SQL, to
// cache them.
//
// # Error Handling
//
// Config.Validate reports every invalid field. Key serialization never fails:
// values that cannot be rendered fall back to their type name.
package cache
