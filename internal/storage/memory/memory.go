// Package memory provides a map-backed storage.KV. Nothing survives the
// process; it exists for tests and for throwaway sessions.
package memory

import (
	"sync"

	"github.com/aanand-mishra/students-roster/internal/storage"
)

// Memory is an in-process storage.KV.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailSave, when non-nil, is returned by Save instead of writing.
	// Tests use it to simulate a full or unavailable store.
	FailSave error
}

// New returns an empty store.
func New() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) Save(entries ...storage.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSave != nil {
		return m.FailSave
	}
	for _, e := range entries {
		m.data[e.Key] = append([]byte(nil), e.Value...)
	}
	return nil
}

// Set stores a raw value directly, bypassing Save's failure hook.
func (m *Memory) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
}

func (m *Memory) Close() error { return nil }
