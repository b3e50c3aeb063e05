package repositorycache

import (
	"reflect"

	"github.com/goliatone/go-query-cache/cache"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type sqlKeySerializer struct {
	db    *bun.DB
	model any
	inner cache.KeySerializer
}

// NewSQLKeySerializer returns a KeySerializer that renders select criteria
// into the SQL they produce for model, so keys follow query text and bound
// parameters instead of closure identity. Other arguments are passed to inner
// unchanged. A nil inner uses the hashed default under namespace "repository".
func NewSQLKeySerializer(db *bun.DB, model any, inner cache.KeySerializer) cache.KeySerializer {
	if inner == nil {
		inner = cache.NewHashedKeySerializer("repository", nil)
	}
	return &sqlKeySerializer{db: db, model: structPointer(model), inner: inner}
}

// structPointer turns **T, []T and similar handles into a *T bun can model.
func structPointer(model any) any {
	if model == nil {
		return nil
	}
	typ := reflect.TypeOf(model)
	for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return model
	}
	return reflect.New(typ).Interface()
}

func (s *sqlKeySerializer) SerializeKey(method string, args ...any) string {
	rendered := make([]any, 0, len(args))
	for _, arg := range args {
		switch criteria := arg.(type) {
		case []repository.SelectCriteria:
			rendered = append(rendered, s.render(criteria))
		case repository.SelectCriteria:
			rendered = append(rendered, s.render([]repository.SelectCriteria{criteria}))
		default:
			rendered = append(rendered, arg)
		}
	}
	return s.inner.SerializeKey(method, rendered...)
}

func (s *sqlKeySerializer) render(criteria []repository.SelectCriteria) string {
	q := s.db.NewSelect().Model(s.model)
	for _, apply := range criteria {
		if apply != nil {
			q = apply(q)
		}
	}
	query, err := q.AppendQuery(s.db.Formatter(), nil)
	if err != nil {
		return "sql-error:" + err.Error()
	}
	return "sql:" + string(query)
}
