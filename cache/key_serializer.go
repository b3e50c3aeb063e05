package cache

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// defaultKeySerializer implements KeySerializer using reflection.
// Query text stays verbatim; bound parameters are rendered with their type
// so that 1 and "1" produce different keys.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a cache key from the query text and its bound args.
// Args holding a function or channel have no value representation; the key
// is then UncacheableKey.
func (s *defaultKeySerializer) SerializeKey(query string, args ...any) string {
	if len(args) == 0 {
		return query
	}

	var b keyWriter
	b.WriteString(query)
	for _, arg := range args {
		b.WriteString(KeySeparator)
		s.writeValue(&b, arg)
	}
	if b.unstable {
		return UncacheableKey
	}
	return b.String()
}

// keyWriter accumulates a key and remembers whether any part of it was
// rendered from identity instead of value.
type keyWriter struct {
	strings.Builder
	unstable bool
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

func (s *defaultKeySerializer) writeValue(b *keyWriter, v any) {
	if v == nil {
		b.WriteString("nil")
		return
	}

	// Bound parameters such as uuid.UUID or decimal types know how they reach
	// the database; use that representation.
	if valuer, ok := v.(driver.Valuer); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			b.WriteString("nil")
			return
		}
		dv, err := valuer.Value()
		if err == nil {
			b.WriteString("valuer:")
			s.writeValue(b, dv)
			return
		}
	}

	s.writeReflect(b, reflect.ValueOf(v))
}

func (s *defaultKeySerializer) writeReflect(b *keyWriter, rv reflect.Value) {
	if !rv.IsValid() {
		b.WriteString("nil")
		return
	}

	if rv.Type() == timeType {
		b.WriteString("time:")
		b.WriteString(rv.Interface().(time.Time).UTC().Format(time.RFC3339Nano))
		return
	}

	switch rv.Kind() {
	case reflect.Func, reflect.Chan:
		if rv.IsNil() {
			fmt.Fprintf(b, "%s:nil", rv.Kind())
			return
		}
		// Closures from one call site share a code pointer whatever they bind.
		b.unstable = true
		fmt.Fprintf(b, "%s:%#x", rv.Kind(), rv.Pointer())
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		elem := rv.Elem()
		if elem.CanInterface() && elem.Type().Implements(valuerType) {
			s.writeValue(b, elem.Interface())
			return
		}
		s.writeReflect(b, elem)
	case reflect.Slice:
		if rv.IsNil() {
			b.WriteString("slice:nil")
			return
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b.WriteString("bytes:")
			b.WriteString(hex.EncodeToString(rv.Bytes()))
			return
		}
		s.writeList(b, "slice", rv)
	case reflect.Array:
		s.writeList(b, "array", rv)
	case reflect.Map:
		if rv.IsNil() {
			b.WriteString("map:nil")
			return
		}
		s.writeMap(b, rv)
	case reflect.Struct:
		s.writeStruct(b, rv)
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString("int:")
		b.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString("uint:")
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString("float:")
		b.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 64))
	case reflect.Complex64, reflect.Complex128:
		fmt.Fprintf(b, "complex:%v", rv.Complex())
	case reflect.String:
		b.WriteString(strconv.Quote(rv.String()))
	default:
		s.jsonFallback(b, rv)
	}
}

func (s *defaultKeySerializer) writeList(b *keyWriter, kind string, rv reflect.Value) {
	n := rv.Len()
	fmt.Fprintf(b, "%s[%d]:{", kind, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		s.writeElem(b, rv.Index(i))
	}
	b.WriteByte('}')
}

// writeMap renders entries sorted by their serialized key.
func (s *defaultKeySerializer) writeMap(b *keyWriter, rv reflect.Value) {
	type pair struct {
		key   string
		value reflect.Value
	}

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var kb keyWriter
		s.writeElem(&kb, iter.Key())
		b.unstable = b.unstable || kb.unstable
		pairs = append(pairs, pair{key: kb.String(), value: iter.Value()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	fmt.Fprintf(b, "map[%d]:{", len(pairs))
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		s.writeElem(b, p.value)
	}
	b.WriteByte('}')
}

// writeStruct renders exported fields only.
func (s *defaultKeySerializer) writeStruct(b *keyWriter, rv reflect.Value) {
	rt := rv.Type()
	b.WriteString("struct:{")
	first := true
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(field.Name)
		b.WriteByte(':')
		s.writeElem(b, rv.Field(i))
	}
	b.WriteByte('}')
}

func (s *defaultKeySerializer) writeElem(b *keyWriter, rv reflect.Value) {
	if rv.CanInterface() {
		s.writeValue(b, rv.Interface())
		return
	}
	s.writeReflect(b, rv)
}

// jsonFallback handles anything reflection does not cover (unsafe pointers).
func (s *defaultKeySerializer) jsonFallback(b *keyWriter, rv reflect.Value) {
	if rv.CanInterface() {
		if data, err := json.Marshal(rv.Interface()); err == nil {
			b.WriteString("json:")
			b.Write(data)
			return
		}
	}
	b.WriteString("fallback:")
	b.WriteString(rv.Type().String())
}

// hashedKeySerializer bounds key length for network stores: the namespace
// and method stay readable, the serialized arguments become an xxhash digest.
type hashedKeySerializer struct {
	namespace string
	inner     KeySerializer
}

// NewHashedKeySerializer wraps inner so that keys take the form
// namespace::<xxhash of the inner key>. A nil inner uses the default serializer.
func NewHashedKeySerializer(namespace string, inner KeySerializer) KeySerializer {
	if inner == nil {
		inner = NewDefaultKeySerializer()
	}
	return &hashedKeySerializer{namespace: namespace, inner: inner}
}

func (s *hashedKeySerializer) SerializeKey(method string, args ...any) string {
	raw := s.inner.SerializeKey(method, args...)
	if raw == UncacheableKey {
		return UncacheableKey
	}
	digest := strconv.FormatUint(xxhash.Sum64String(raw), 16)
	if s.namespace == "" {
		return digest
	}
	return s.namespace + KeySeparator + digest
}
