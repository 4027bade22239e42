// Package remote holds the backends that settings are saved to and loaded
// from. The module store treats them as an external service: calls may block,
// may fail, and are never retried automatically.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/billie-coop/configurator/internal/schema"
)

// ErrNotFound is returned by Load when a module was never saved.
var ErrNotFound = errors.New("remote: module not found")

// Backend persists one flat value map per module.
type Backend interface {
	Save(ctx context.Context, module string, values map[string]any) error
	Load(ctx context.Context, module string) (map[string]any, error)
	Close() error
}

// MemoryBackend keeps saved modules in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Save(ctx context.Context, module string, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encodeValues(values)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[module] = raw
	return nil
}

func (m *MemoryBackend) Load(ctx context.Context, module string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	raw, ok := m.data[module]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeValues(raw)
}

// Modules lists the modules that have been saved.
func (m *MemoryBackend) Modules() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range maps.Keys(m.data) {
		out = append(out, k)
	}
	return out
}

func (m *MemoryBackend) Close() error { return nil }

func encodeValues(values map[string]any) ([]byte, error) {
	if values == nil {
		values = map[string]any{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode values: %w", err)
	}
	return raw, nil
}

// decodeValues restores the value types the schema expects after a JSON round trip.
func decodeValues(raw []byte) (map[string]any, error) {
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to decode values: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}
	for k, v := range values {
		values[k] = schema.Normalize(v)
	}
	return values, nil
}
