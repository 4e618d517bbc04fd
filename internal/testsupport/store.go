package testsupport

import (
	"context"
	"sync"
	"testing"

	"updatenotifier/internal/config"
	"updatenotifier/internal/store"
)

// MustOpenStore opens the state store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg.StorePath())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// MemorySettings is an in-memory settings backend.
type MemorySettings struct {
	mu     sync.Mutex
	bools  map[string]bool
	ints   map[string]int64
	writes int
}

// NewMemorySettings returns an empty backend.
func NewMemorySettings() *MemorySettings {
	return &MemorySettings{bools: make(map[string]bool), ints: make(map[string]int64)}
}

func settingKey(namespace, key string) string {
	return namespace + "/" + key
}

func (m *MemorySettings) GetBool(_ context.Context, namespace, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.bools[settingKey(namespace, key)]
	if !ok {
		return false, store.ErrNotSet
	}
	return v, nil
}

func (m *MemorySettings) SetBool(_ context.Context, namespace, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bools[settingKey(namespace, key)] = value
	m.writes++
	return nil
}

func (m *MemorySettings) GetInt64(_ context.Context, namespace, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.ints[settingKey(namespace, key)]
	if !ok {
		return 0, store.ErrNotSet
	}
	return v, nil
}

func (m *MemorySettings) SetInt64(_ context.Context, namespace, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ints[settingKey(namespace, key)] = value
	m.writes++
	return nil
}

// Writes returns the number of successful writes.
func (m *MemorySettings) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
