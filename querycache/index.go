package querycache

import (
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Index is the table-usage index: for every table, the set of cache keys whose
// value was computed from it. It has no TTL of its own and grows with the
// number of distinct tables, not with query volume; a table's set is emptied
// when the table is invalidated.
//
// Keys may outlive their store entries (TTL expiry); callers treat deleting
// such a key as a no-op.
type Index struct {
	tables *xsync.MapOf[string, *tableKeys]
}

type tableKeys struct {
	// gate serialises store+record and read+delete+clear sequences on the table.
	gate sync.Mutex

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{tables: xsync.NewMapOf[string, *tableKeys]()}
}

func (ix *Index) table(name string) *tableKeys {
	entry, _ := ix.tables.LoadOrCompute(name, func() *tableKeys {
		return &tableKeys{keys: make(map[string]struct{})}
	})
	return entry
}

// Record adds key under table, creating the table entry if absent.
func (ix *Index) Record(table, key string) {
	entry := ix.table(table)
	entry.mu.Lock()
	entry.keys[key] = struct{}{}
	entry.mu.Unlock()
}

// Keys returns the keys recorded for table in sorted order.
func (ix *Index) Keys(table string) []string {
	entry, ok := ix.tables.Load(table)
	if !ok {
		return nil
	}
	entry.mu.Lock()
	keys := make([]string, 0, len(entry.keys))
	for key := range entry.keys {
		keys = append(keys, key)
	}
	entry.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys recorded for table.
func (ix *Index) Len(table string) int {
	entry, ok := ix.tables.Load(table)
	if !ok {
		return 0
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return len(entry.keys)
}

// Clear empties the key set of table. The table entry itself is kept so that
// a gate held by a concurrent caller stays valid.
func (ix *Index) Clear(table string) {
	entry, ok := ix.tables.Load(table)
	if !ok {
		return
	}
	entry.mu.Lock()
	entry.keys = make(map[string]struct{})
	entry.mu.Unlock()
}

// Tables returns every table currently holding at least one key, sorted.
func (ix *Index) Tables() []string {
	var names []string
	ix.tables.Range(func(name string, entry *tableKeys) bool {
		entry.mu.Lock()
		n := len(entry.keys)
		entry.mu.Unlock()
		if n > 0 {
			names = append(names, name)
		}
		return true
	})
	sort.Strings(names)
	return names
}

// Lock takes the gate of every table in tables and returns the release func.
// Gates are acquired in sorted order so overlapping callers cannot deadlock.
func (ix *Index) Lock(tables ...string) (unlock func()) {
	if len(tables) == 0 {
		return func() {}
	}

	ordered := append([]string(nil), tables...)
	sort.Strings(ordered)

	entries := make([]*tableKeys, 0, len(ordered))
	for i, name := range ordered {
		if i > 0 && ordered[i-1] == name {
			continue
		}
		entry := ix.table(name)
		entry.gate.Lock()
		entries = append(entries, entry)
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].gate.Unlock()
		}
	}
}
