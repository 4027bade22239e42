package configstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/billie-coop/configurator/internal/csync"
	"github.com/billie-coop/configurator/internal/remote"
	"github.com/billie-coop/configurator/internal/schema"
	"github.com/billie-coop/configurator/internal/state"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSaveInProgress is returned when a module already has a save in flight.
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrInvalid is returned when a module fails validation before saving.
	ErrInvalid = errors.New("settings are invalid")
)

// DefaultSlotName names the durable slot the store persists to.
const DefaultSlotName = "config-store"

// Observer hears about local module changes. *events.Broker implements it.
type Observer interface {
	ConfigChanged(module string, keys []string)
	ConfigReset(module string)
	ConfigLoaded(module string, keys []string)
}

type nopObserver struct{}

func (nopObserver) ConfigChanged(string, []string) {}
func (nopObserver) ConfigReset(string)             {}
func (nopObserver) ConfigLoaded(string, []string)  {}

// Options configures a Store.
type Options struct {
	// Dir holds the durable slot.
	Dir string
	// SlotName defaults to DefaultSlotName.
	SlotName   string
	Backend    remote.Backend
	Rules      Rules
	Migrations Migrations
	Logger     *zap.Logger
	// Observer defaults to a no-op.
	Observer Observer
}

// Store is the process-wide, persisted source of truth for every module's
// settings. Local edits are applied immediately; the backend confirms them
// on save.
type Store struct {
	slot       *state.Store[persisted]
	backend    remote.Backend
	rules      Rules
	migrations Migrations
	logger     *zap.Logger
	observer   Observer

	inflight *csync.Map[Module, string]
	loading  atomic.Int32

	errMu   sync.RWMutex
	lastErr string
}

// New opens the store, rehydrating and migrating the durable slot.
func New(opts Options) (*Store, error) {
	if opts.Backend == nil {
		return nil, errors.New("configstore: backend is required")
	}
	if opts.SlotName == "" {
		opts.SlotName = DefaultSlotName
	}
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if opts.Migrations == nil {
		opts.Migrations = DefaultMigrations()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if err := opts.Migrations.Validate(CurrentVersion); err != nil {
		return nil, fmt.Errorf("invalid migration table: %w", err)
	}

	s := &Store{
		backend:    opts.Backend,
		rules:      opts.Rules,
		migrations: opts.Migrations,
		logger:     opts.Logger.Named("configstore"),
		observer:   opts.Observer,
		inflight:   csync.NewMap[Module, string](),
	}

	slot, err := state.NewStore(state.SlotPath(opts.Dir, opts.SlotName), newPersisted, state.Options[persisted]{
		Version: CurrentVersion,
		Migrate: s.migrate,
		Clone:   persisted.clone,
		Logger:  s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.slot = slot
	return s, nil
}

// Snapshot returns a copy of every module plus the global loading and error state.
func (s *Store) Snapshot() Snapshot {
	p := s.slot.Get()
	s.errMu.RLock()
	defer s.errMu.RUnlock()
	return Snapshot{
		Modules: p.Modules,
		Loading: s.loading.Load() > 0,
		Error:   s.lastErr,
	}
}

// Module returns a copy of one module's state.
func (s *Store) Module(m Module) ModuleState {
	return s.slot.Get().Modules[m]
}

// Loading reports whether any save or load is in flight.
func (s *Store) Loading() bool {
	return s.loading.Load() > 0
}

// Error returns the last persistence error message, or "".
func (s *Store) Error() string {
	s.errMu.RLock()
	defer s.errMu.RUnlock()
	return s.lastErr
}

func (s *Store) setError(msg string) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.lastErr = msg
}

func (s *Store) updateModule(m Module, fn func(ms ModuleState) ModuleState) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownModule, m)
	}
	if err := s.slot.Update(func(p persisted) persisted {
		p.Modules[m] = fn(p.Modules[m])
		return p
	}); err != nil {
		return fmt.Errorf("failed to persist %s: %w", m, err)
	}
	return nil
}

// SetConfig shallow-merges values into the module and marks it dirty. It
// never validates.
func (s *Store) SetConfig(m Module, values map[string]any) error {
	if err := s.updateModule(m, func(ms ModuleState) ModuleState {
		for k, v := range values {
			ms.Values[k] = schema.CloneValue(schema.Normalize(v))
		}
		ms.Dirty = true
		ms.Revision++
		if ms.Phase != PhaseSaving {
			ms.Phase = PhaseDirty
		}
		return ms
	}); err != nil {
		return err
	}
	s.observer.ConfigChanged(string(m), slices.Sorted(maps.Keys(values)))
	return nil
}

// ResetConfig restores the module to its pristine empty state.
func (s *Store) ResetConfig(m Module) error {
	if err := s.updateModule(m, func(ms ModuleState) ModuleState {
		fresh := NewModuleState()
		fresh.Revision = ms.Revision + 1
		return fresh
	}); err != nil {
		return err
	}
	s.observer.ConfigReset(string(m))
	return nil
}

// ValidateConfig runs the module's rules, replaces its errors and reports
// whether it is valid.
func (s *Store) ValidateConfig(m Module) (bool, error) {
	var valid bool
	err := s.updateModule(m, func(ms ModuleState) ModuleState {
		ms.Errors = s.rules.validate(m, ms.Values)
		ms.Valid = len(ms.Errors) == 0
		valid = ms.Valid
		return ms
	})
	return valid, err
}

func (s *Store) beginLoading() func() {
	s.loading.Add(1)
	return func() { s.loading.Add(-1) }
}

// SaveConfig validates the module and sends its values to the backend.
//
// Invalid settings return ErrInvalid without touching the backend. A module
// that is already saving returns ErrSaveInProgress and leaves the in-flight
// save's state alone. Backend failures are recorded as the global error and
// the module's LastError; local values are kept and the module stays dirty so
// the caller can retry.
func (s *Store) SaveConfig(ctx context.Context, m Module) (bool, error) {
	valid, err := s.ValidateConfig(m)
	if err != nil {
		return false, err
	}
	if !valid {
		return false, fmt.Errorf("%s: %w", m, ErrInvalid)
	}

	requestID := uuid.NewString()
	if !s.inflight.SetIfAbsent(m, requestID) {
		running, _ := s.inflight.Get(m)
		s.logger.Debug("Save rejected, another is in flight",
			zap.String("module", string(m)),
			zap.String("running", running))
		return false, fmt.Errorf("%s: %w", m, ErrSaveInProgress)
	}
	defer s.inflight.CompareAndDelete(m, requestID)

	logger := s.logger.With(zap.String("module", string(m)), zap.String("request", requestID))

	var (
		values   map[string]any
		revision int64
	)
	if err := s.updateModule(m, func(ms ModuleState) ModuleState {
		values = ms.Clone().Values
		revision = ms.Revision
		ms.Phase = PhaseSaving
		ms.LastError = ""
		return ms
	}); err != nil {
		return false, err
	}

	done := s.beginLoading()
	defer done()
	s.setError("")

	logger.Debug("Saving module settings", zap.Int("keys", len(values)))
	saveErr := s.backend.Save(ctx, string(m), values)

	if saveErr != nil {
		msg := fmt.Sprintf("Failed to save %s settings: %v", m, saveErr)
		logger.Warn("Save failed", zap.Error(saveErr))
		s.setError(msg)
		if err := s.updateModule(m, func(ms ModuleState) ModuleState {
			if ms.Phase != PhaseSaving {
				// Reset while the save was in flight.
				return ms
			}
			ms.Phase = PhaseDirty
			ms.LastError = msg
			return ms
		}); err != nil {
			logger.Error("Failed to record save failure", zap.Error(err))
		}
		return false, fmt.Errorf("save %s: %w", m, saveErr)
	}

	if err := s.updateModule(m, func(ms ModuleState) ModuleState {
		if ms.Phase != PhaseSaving {
			// Reset while the save was in flight.
			return ms
		}
		if ms.Revision == revision {
			ms.Dirty = false
			ms.Phase = PhaseClean
		} else {
			ms.Phase = PhaseDirty
		}
		return ms
	}); err != nil {
		return false, err
	}

	logger.Info("Saved module settings")
	return true, nil
}

// LoadConfig fetches the module's values from the backend and merges them
// into the local values. A module that was never saved is not an error.
func (s *Store) LoadConfig(ctx context.Context, m Module) (bool, error) {
	if !m.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownModule, m)
	}

	done := s.beginLoading()
	defer done()
	s.setError("")

	logger := s.logger.With(zap.String("module", string(m)))
	values, err := s.backend.Load(ctx, string(m))
	if errors.Is(err, remote.ErrNotFound) {
		logger.Debug("Nothing saved yet")
		return true, nil
	}
	if err != nil {
		msg := fmt.Sprintf("Failed to load %s settings: %v", m, err)
		logger.Warn("Load failed", zap.Error(err))
		s.setError(msg)
		return false, fmt.Errorf("load %s: %w", m, err)
	}

	if err := s.updateModule(m, func(ms ModuleState) ModuleState {
		for k, v := range values {
			ms.Values[k] = v
		}
		return ms
	}); err != nil {
		return false, err
	}

	logger.Debug("Loaded module settings", zap.Int("keys", len(values)))
	s.observer.ConfigLoaded(string(m), slices.Sorted(maps.Keys(values)))
	return true, nil
}

// LoadAll loads every module concurrently and returns the joined failures.
func (s *Store) LoadAll(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, m := range Modules() {
		g.Go(func() error {
			if _, err := s.LoadConfig(ctx, m); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// MigrateConfig upgrades one module's values from version to CurrentVersion.
func (s *Store) MigrateConfig(m Module, version int) error {
	var migrateErr error
	err := s.updateModule(m, func(ms ModuleState) ModuleState {
		values, err := s.migrations.Apply(m, ms.Values, version, CurrentVersion)
		if err != nil {
			migrateErr = err
			return ms
		}
		ms.Values = values
		return ms
	})
	if migrateErr != nil {
		return migrateErr
	}
	return err
}

// migrate is the durable slot's hook for state persisted by older versions.
func (s *Store) migrate(p persisted, version int) (persisted, error) {
	p = p.clone()
	for _, m := range Modules() {
		ms := p.Modules[m]
		values, err := s.migrations.Apply(m, ms.Values, version, CurrentVersion)
		if err != nil {
			return p, err
		}
		ms.Values = values
		p.Modules[m] = ms
	}
	s.logger.Info("Migrated settings store", zap.Int("from", version), zap.Int("to", CurrentVersion))
	return p, nil
}

// Watch rehydrates the store when another process rewrites its slot. It
// blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(Snapshot)) error {
	return s.slot.Watch(ctx, func(persisted) {
		if onChange != nil {
			onChange(s.Snapshot())
		}
	})
}

// Clear removes the durable slot and resets every module.
func (s *Store) Clear() error {
	return s.slot.Clear()
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
