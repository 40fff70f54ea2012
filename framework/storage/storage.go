// Package storage defines the persistence service that backs persisted-value
// fields, plus the in-memory and per-user file backends.
//
// The container registers a FileService scoped to the application name
// when no module initializer registered another backend under ServiceKey.
package storage

import (
	"context"
	"sync"

	"github.com/km-arc/go-ioc/framework/container"
)

// Service is a string key/value store.
type Service interface {
	// Load returns the stored value and whether it exists.
	Load(ctx context.Context, key string) (string, bool, error)

	// Save stores value under key. A nil value removes the key.
	Save(ctx context.Context, key string, value *string) error
}

// ServiceKey is the store key of the active persistence service.
var ServiceKey = container.TypeKey((*Service)(nil))

// ── Memory ────────────────────────────────────────────────────────────────────

// Memory keeps values in a map. Useful in tests and for ephemeral apps.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates a Memory seeded with initial (which may be nil).
func NewMemory(initial map[string]string) *Memory {
	m := &Memory{values: make(map[string]string, len(initial))}
	for k, v := range initial {
		m.values[k] = v
	}
	return m
}

func (m *Memory) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Save(_ context.Context, key string, value *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == nil {
		delete(m.values, key)
		return nil
	}
	m.values[key] = *value
	return nil
}

// Snapshot copies the current contents.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
