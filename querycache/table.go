package querycache

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// TableRef identifies a table either by canonical name or by a schema handle
// (a model value or pointer) that a Resolver turns into the name.
type TableRef struct {
	name  string
	model any
}

// Table references a table by its canonical name.
func Table(name string) TableRef {
	return TableRef{name: name}
}

// Tables is a shorthand for a list of named table references.
func Tables(names ...string) []TableRef {
	refs := make([]TableRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, Table(name))
	}
	return refs
}

// ModelTable references the table backing model, e.g. ModelTable((*User)(nil)).
func ModelTable(model any) TableRef {
	return TableRef{model: model}
}

// IsModel reports whether the reference needs a Resolver.
func (r TableRef) IsModel() bool {
	return r.name == "" && r.model != nil
}

func (r TableRef) String() string {
	if r.IsModel() {
		return fmt.Sprintf("model(%T)", r.model)
	}
	return r.name
}

// Resolver maps a schema handle to its canonical table name.
type Resolver interface {
	ResolveTable(model any) (string, error)
}

// tableNamer is honoured by SnakeResolver before falling back to the type name.
type tableNamer interface {
	TableName() string
}

// SnakeResolver derives table names from Go types: a TableName() method wins,
// otherwise the struct type name in snake_case (UserProfile -> user_profile).
type SnakeResolver struct{}

// ResolveTable implements Resolver.
func (SnakeResolver) ResolveTable(model any) (string, error) {
	if namer, ok := model.(tableNamer); ok {
		if name := namer.TableName(); name != "" {
			return name, nil
		}
	}

	typ, err := modelStructType(model)
	if err != nil {
		return "", err
	}
	name := toSnake(typ.Name())
	if name == "" {
		return "", fmt.Errorf("%w: anonymous struct %s", ErrUnresolvedTable, typ)
	}
	return name, nil
}

// modelStructType unwraps pointers, slices and arrays down to a struct type.
func modelStructType(model any) (reflect.Type, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrUnresolvedTable)
	}
	typ := reflect.TypeOf(model)
	for {
		switch typ.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array:
			typ = typ.Elem()
			continue
		}
		break
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T is not a struct model", ErrUnresolvedTable, model)
	}
	return typ, nil
}

// ResolveTables resolves refs into a sorted, de-duplicated list of canonical
// names. Blank names are dropped; quoting around names is stripped.
func ResolveTables(resolver Resolver, refs ...TableRef) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(refs))
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := ref.name
		if ref.IsModel() {
			if resolver == nil {
				return nil, fmt.Errorf("%w: no resolver for %s", ErrUnresolvedTable, ref)
			}
			resolved, err := resolver.ResolveTable(ref.model)
			if err != nil {
				return nil, err
			}
			name = resolved
		}
		name = canonicalTableName(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func canonicalTableName(name string) string {
	return strings.Trim(strings.TrimSpace(name), "\"`[]")
}
