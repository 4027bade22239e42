package csync

import (
	"sync"
)

// Map is a thread-safe map with generic types.
// It uses a RWMutex for concurrent read access and exclusive write access.
type Map[K comparable, V comparable] struct {
	data map[K]V
	mu   sync.RWMutex
}

// NewMap creates a new thread-safe map
func NewMap[K comparable, V comparable]() *Map[K, V] {
	return &Map[K, V]{
		data: make(map[K]V),
	}
}

// SetIfAbsent stores value only when key is not present and reports whether it did.
func (m *Map[K, V]) SetIfAbsent(key K, value V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return false
	}
	m.data[key] = value
	return true
}

// Get retrieves a value by key, returns the value and whether it exists
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, exists := m.data[key]
	return value, exists
}

// CompareAndDelete removes key only if it still maps to value.
func (m *Map[K, V]) CompareAndDelete(key K, value V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, exists := m.data[key]; !exists || current != value {
		return false
	}
	delete(m.data, key)
	return true
}
