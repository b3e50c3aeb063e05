package querycache

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// BunResolver resolves model references through the bun schema registry, so
// `bun:"table:..."` tags are honoured.
type BunResolver struct {
	DB *bun.DB
}

// ResolveTable implements Resolver.
func (r BunResolver) ResolveTable(model any) (string, error) {
	if r.DB == nil {
		return SnakeResolver{}.ResolveTable(model)
	}
	typ, err := modelStructType(model)
	if err != nil {
		return "", err
	}
	table := r.DB.Table(typ)
	if table == nil || table.Name == "" {
		return "", fmt.Errorf("%w: bun has no table for %s", ErrUnresolvedTable, typ)
	}
	return table.Name, nil
}

// writeOperations lists the statement kinds that invalidate their table.
var writeOperations = []string{"INSERT", "UPDATE", "DELETE", "MERGE", "TRUNCATE", "DROP"}

func isWriteOperation(op string) bool {
	op = strings.ToUpper(strings.TrimSpace(op))
	for _, prefix := range writeOperations {
		if strings.HasPrefix(op, prefix) {
			return true
		}
	}
	return false
}

// InvalidationHook is a bun.QueryHook that invalidates the table written by
// every successful mutation, together with the tags attached to the query
// context. Invalidation errors are logged and never fail the query.
//
// The hook fires per statement; inside a transaction the entries are dropped
// before commit.
type InvalidationHook struct {
	cache *Cache
}

var _ bun.QueryHook = (*InvalidationHook)(nil)

// NewInvalidationHook creates the hook for c.
func NewInvalidationHook(c *Cache) *InvalidationHook {
	return &InvalidationHook{cache: c}
}

// BeforeQuery implements bun.QueryHook.
func (h *InvalidationHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery implements bun.QueryHook.
func (h *InvalidationHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil || !isWriteOperation(event.Operation()) {
		return
	}

	m := Mutation{Tags: InvalidationTagsFromContext(ctx)}
	if event.IQuery != nil {
		m.Tables = []TableRef{Table(event.IQuery.GetTableName())}
	} else {
		h.cache.logger.DebugContext(ctx, "query cache saw raw write, invalidating context tags only",
			"operation", event.Operation(), "tags", m.Tags)
	}

	if err := h.cache.Invalidate(ctx, m); err != nil {
		h.cache.logger.WarnContext(ctx, "query cache invalidation after write failed",
			"operation", event.Operation(), "error", err)
	}
}

// Attach registers the invalidation hook on db and makes c resolve model
// references through db. Call it before c is shared.
func Attach(db *bun.DB, c *Cache) *InvalidationHook {
	hook := NewInvalidationHook(c)
	db.AddQueryHook(hook)
	c.resolver = BunResolver{DB: db}
	return hook
}

// Select runs q through Fetch and scans the rows into []T. The key is derived
// from the rendered SQL; the tables are the query's table plus extra, which
// callers use for joined tables.
func Select[T any](ctx context.Context, c *Cache, q *bun.SelectQuery, extra ...TableRef) ([]T, error) {
	query, err := q.AppendQuery(q.DB().Formatter(), nil)
	if err != nil {
		return nil, fmt.Errorf("querycache: render select: %w", err)
	}

	tables := make([]TableRef, 0, len(extra)+1)
	tables = append(tables, Table(q.GetTableName()))
	tables = append(tables, extra...)

	return Fetch(ctx, c, c.Key(string(query)), tables, func(ctx context.Context) ([]T, error) {
		var rows []T
		if err := q.Scan(ctx, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	})
}
