package di

import (
	"errors"
	"log/slog"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/querycache"
	"github.com/goliatone/go-query-cache/repositorycache"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// Container provides dependency injection for cache related components.
// It owns the key-value store and the query cache shared by every cached
// repository it creates.
type Container struct {
	store         cache.Store
	cache         *querycache.Cache
	keySerializer cache.KeySerializer
	config        cache.Config
	db            *bun.DB
	logger        *slog.Logger
}

// Option customises a Container.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	tracer     trace.Tracer
	db         *bun.DB
	store      cache.Store
}

// WithLogger sets the logger handed to the store and the cache.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the cache metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracer sets the tracer used by the cache.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithDB attaches the cache to db: writes through bun invalidate their table
// and repositories key reads by rendered SQL.
func WithDB(db *bun.DB) Option {
	return func(o *options) {
		o.db = db
	}
}

// WithStore uses store instead of building one from the config backend.
func WithStore(store cache.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// NewContainer creates a new DI container with the provided cache configuration.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = cache.NewStore(config, o.logger)
		if err != nil {
			return nil, err
		}
	}

	cacheOpts := []querycache.Option{querycache.WithLogger(o.logger)}
	if o.registerer != nil {
		metrics, err := querycache.NewMetrics("", o.registerer)
		if err != nil {
			return nil, errors.Join(err, store.Close())
		}
		cacheOpts = append(cacheOpts, querycache.WithMetrics(metrics))
	}
	if o.tracer != nil {
		cacheOpts = append(cacheOpts, querycache.WithTracer(o.tracer))
	}

	qc, err := querycache.NewFromConfig(store, config, cacheOpts...)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	if o.db != nil {
		querycache.Attach(o.db, qc)
	}

	return &Container{
		store:         store,
		cache:         qc,
		keySerializer: cache.NewHashedKeySerializer("repository", nil),
		config:        config,
		db:            o.db,
		logger:        o.logger,
	}, nil
}

// NewContainerWithDefaults creates a container on the in-process store with
// otherwise default configuration.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	config := cache.DefaultConfig()
	config.Backend = cache.BackendMemory
	return NewContainer(config, opts...)
}

// Cache returns the shared query cache.
func (c *Container) Cache() *querycache.Cache {
	return c.cache
}

// Store returns the key-value store backing the cache.
func (c *Container) Store() cache.Store {
	return c.store
}

// KeySerializer returns the key serializer used for repositories when no
// database is attached.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Close releases the store.
func (c *Container) Close() error {
	return c.store.Close()
}

// NewCachedRepository creates a cached repository that wraps base and shares
// the container cache. Reads are indexed under tables, or under the table of
// T when none are given.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[User](container, baseUserRepository)
func NewCachedRepository[T any](container *Container, base repository.Repository[T], tables ...querycache.TableRef) *repositorycache.CachedRepository[T] {
	keySerializer := container.keySerializer
	if container.db != nil {
		keySerializer = repositorycache.NewSQLKeySerializer(container.db, new(T), keySerializer)
	}
	return repositorycache.New(base, container.cache, keySerializer, tables...)
}
