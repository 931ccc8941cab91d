package storage

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store with the same capacity semantics as BoltStore
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]string
	capacity int64
}

// NewMemoryStore creates an empty MemoryStore. A capacity of zero means unlimited.
func NewMemoryStore(capacity int64) *MemoryStore {
	return &MemoryStore{items: make(map[string]string), capacity: capacity}
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[key]
	if !ok {
		return "", fmt.Errorf("key %s: %w", key, ErrNotFound)
	}
	return value, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capacity > 0 {
		var used int64
		for k, v := range m.items {
			if k != key {
				used += ItemSize(k, v)
			}
		}
		if used+ItemSize(key, value) > m.capacity {
			return ErrQuotaExceeded
		}
	}

	m.items[key] = value
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// ForEach visits a snapshot of the store, so fn may modify it
func (m *MemoryStore) ForEach(fn func(key, value string) error) error {
	m.mu.RLock()
	snapshot := maps.Clone(m.items)
	m.mu.RUnlock()

	for _, k := range slices.Sorted(maps.Keys(snapshot)) {
		if err := fn(k, snapshot[k]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
