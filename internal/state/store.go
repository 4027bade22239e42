// Package state persists a single value to a versioned JSON slot on disk.
package state

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// MigrateFunc upgrades state persisted at fromVersion to the current version.
type MigrateFunc[T any] func(state T, fromVersion int) (T, error)

// envelope is the on-disk layout of a slot.
type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// Options configures a Store.
type Options[T any] struct {
	// Version is the layout version the running code expects.
	Version int
	// Migrate runs when the slot on disk is older than Version.
	Migrate MigrateFunc[T]
	// Clone deep-copies a state; Get and Update never hand out the live value.
	Clone  func(T) T
	Logger *zap.Logger
}

// Store is a persistent value that lives in memory and on disk.
// It's like Zustand with persist middleware: one named slot, rehydrated on start.
type Store[T any] struct {
	mu       sync.RWMutex
	data     T
	filepath string
	defaults func() T
	opts     Options[T]
	logger   *zap.Logger
	lastSum  [sha256.Size]byte
}

// SlotPath returns the file backing the named slot inside dir.
func SlotPath(dir, name string) string {
	return filepath.Join(dir, name+".json")
}

// NewStore creates a persistent store and rehydrates it from disk. A missing
// or unreadable slot starts from defaults; a failed migration is an error.
func NewStore[T any](path string, defaults func() T, opts Options[T]) (*Store[T], error) {
	if opts.Clone == nil {
		opts.Clone = func(v T) T { return v }
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store[T]{
		filepath: path,
		defaults: defaults,
		data:     defaults(),
		opts:     opts,
		logger:   logger.With(zap.String("slot", path)),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the slot file path.
func (s *Store[T]) Path() string {
	return s.filepath
}

// Get returns a copy of the current state.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts.Clone(s.data)
}

// Set replaces the state and persists it.
func (s *Store[T]) Set(data T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = s.opts.Clone(data)
	return s.save()
}

// Update applies fn to a copy of the state, keeps the result and persists it.
// fn runs under the store lock, so updates never interleave.
func (s *Store[T]) Update(fn func(T) T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = fn(s.opts.Clone(s.data))
	return s.save()
}

// load reads the slot if it exists and migrates it when it is behind.
func (s *Store[T]) load() error {
	raw, err := os.ReadFile(s.filepath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Slot unreadable, using defaults", zap.Error(err))
		}
		return nil
	}

	data, migrated, err := s.decode(raw)
	if err != nil {
		if errors.Is(err, errCorrupt) {
			s.logger.Warn("Slot corrupt, using defaults", zap.Error(err))
			return nil
		}
		return err
	}

	s.data = data
	s.lastSum = sha256.Sum256(raw)
	if migrated {
		return s.save()
	}
	return nil
}

var errCorrupt = errors.New("corrupt slot")

func (s *Store[T]) decode(raw []byte) (T, bool, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return s.defaults(), false, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if env.Version > s.opts.Version {
		return s.defaults(), false, fmt.Errorf("slot version %d is newer than supported version %d", env.Version, s.opts.Version)
	}

	data := s.defaults()
	if len(env.State) > 0 && !bytes.Equal(env.State, []byte("null")) {
		if err := json.Unmarshal(env.State, &data); err != nil {
			return s.defaults(), false, fmt.Errorf("%w: %v", errCorrupt, err)
		}
	}

	if env.Version == s.opts.Version || s.opts.Migrate == nil {
		return data, false, nil
	}

	s.logger.Info("Migrating slot",
		zap.Int("from", env.Version),
		zap.Int("to", s.opts.Version))
	migrated, err := s.opts.Migrate(data, env.Version)
	if err != nil {
		return s.defaults(), false, fmt.Errorf("failed to migrate slot from version %d: %w", env.Version, err)
	}
	return migrated, true, nil
}

// save writes to disk.
func (s *Store[T]) save() error {
	// Ensure directory exists
	dir := filepath.Dir(s.filepath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	state, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	data, err := json.MarshalIndent(envelope{Version: s.opts.Version, State: state}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	// Write atomically (write to temp file, then rename)
	tempFile := s.filepath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, s.filepath); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	s.lastSum = sha256.Sum256(data)
	return nil
}

// Clear resets to defaults and removes the slot.
func (s *Store[T]) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = s.defaults()
	s.lastSum = [sha256.Size]byte{}
	if err := os.Remove(s.filepath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Reload re-reads the slot and reports whether the state changed. Content
// this store wrote itself is recognized and skipped.
func (s *Store[T]) Reload() (bool, error) {
	// Read under the lock so a concurrent save cannot land between the
	// read and the fingerprint check.
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	sum := sha256.Sum256(raw)
	if sum == s.lastSum {
		return false, nil
	}

	data, migrated, err := s.decode(raw)
	if err != nil {
		return false, err
	}
	s.data = data
	s.lastSum = sum
	if migrated {
		if err := s.save(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Watch rehydrates the store whenever another process rewrites the slot and
// calls onChange with the new state. It blocks until ctx is done.
func (s *Store[T]) Watch(ctx context.Context, onChange func(T)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.filepath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.filepath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Watch error", zap.Error(err))
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			changed, err := s.Reload()
			if err != nil {
				s.logger.Warn("Reload failed", zap.Error(err))
				continue
			}
			if changed && onChange != nil {
				onChange(s.Get())
			}
		}
	}
}
