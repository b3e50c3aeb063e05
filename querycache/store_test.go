package querycache

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// mockStore is an in-memory cache.Store that records calls and can fail on demand.
type mockStore struct {
	mu        sync.Mutex
	calls     []string
	data      map[string][]byte
	ttls      map[string]time.Duration
	getErr    map[string]error
	setErr    map[string]error
	deleteErr map[string]error
}

func newMockStore() *mockStore {
	return &mockStore{
		data:      make(map[string][]byte),
		ttls:      make(map[string]time.Duration),
		getErr:    make(map[string]error),
		setErr:    make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (m *mockStore) recordCall(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *mockStore) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockStore) clearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *mockStore) failGet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr[key] = err
}

func (m *mockStore) failSet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr[key] = err
}

func (m *mockStore) failDelete(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.deleteErr, key)
		return
	}
	m.deleteErr[key] = err
}

func (m *mockStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *mockStore) ttl(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

func (m *mockStore) count(prefix string) int {
	n := 0
	for _, call := range m.getCalls() {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("Get:%s", key)
	if err, ok := m.getErr[key]; ok {
		return nil, false, err
	}
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("Set:%s", key)
	if err, ok := m.setErr[key]; ok {
		return err
	}
	m.data[key] = append([]byte(nil), value...)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("Delete:%s", key)
	if err, ok := m.deleteErr[key]; ok {
		return err
	}
	delete(m.data, key)
	delete(m.ttls, key)
	return nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	return nil
}

func (m *mockStore) Close() error {
	return nil
}

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
