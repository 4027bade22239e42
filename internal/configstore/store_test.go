package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/billie-coop/configurator/internal/remote"
	"github.com/billie-coop/configurator/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blockingBackend holds every Save until release is closed.
type blockingBackend struct {
	*remote.MemoryBackend
	started chan struct{}
	release chan struct{}
	err     error
	once    sync.Once
}

func newBlockingBackend() *blockingBackend {
	return &blockingBackend{
		MemoryBackend: remote.NewMemoryBackend(),
		started:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (b *blockingBackend) Save(ctx context.Context, module string, values map[string]any) error {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	if b.err != nil {
		return b.err
	}
	return b.MemoryBackend.Save(ctx, module, values)
}

type failingBackend struct {
	*remote.MemoryBackend
	err error
}

func (f failingBackend) Save(context.Context, string, map[string]any) error { return f.err }
func (f failingBackend) Load(context.Context, string) (map[string]any, error) {
	return nil, f.err
}

func newTestStore(t *testing.T, backend remote.Backend) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	if backend == nil {
		backend = remote.NewMemoryBackend()
	}
	s, err := New(Options{Dir: dir, Backend: backend})
	require.NoError(t, err)
	return s, dir
}

func TestNew_EveryModulePresent(t *testing.T) {
	s, _ := newTestStore(t, nil)

	snap := s.Snapshot()
	require.Len(t, snap.Modules, len(Modules()))
	for _, m := range Modules() {
		ms := snap.Modules[m]
		assert.Empty(t, ms.Values, m)
		assert.True(t, ms.Valid, m)
		assert.False(t, ms.Dirty, m)
		assert.Equal(t, PhaseClean, ms.Phase, m)
	}
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
}

func TestSetConfig(t *testing.T) {
	s, _ := newTestStore(t, nil)

	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{"defaultCurrency": "USD", "taxRate": 7}))
	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{"taxRate": 7.5}))

	ms := s.Module(InvoiceCreator)
	assert.Equal(t, map[string]any{"defaultCurrency": "USD", "taxRate": 7.5}, ms.Values)
	assert.True(t, ms.Dirty)
	assert.Equal(t, PhaseDirty, ms.Phase)
	assert.Empty(t, s.Module(TimeTracking).Values, "other modules untouched")
}

func TestSetConfig_UnknownModule(t *testing.T) {
	s, _ := newTestStore(t, nil)
	err := s.SetConfig(Module("billing"), map[string]any{"a": 1})
	assert.ErrorIs(t, err, ErrUnknownModule)
}

func TestSetThenResetRestoresPristine(t *testing.T) {
	s, _ := newTestStore(t, nil)

	require.NoError(t, s.SetConfig(ClientManager, map[string]any{"a": 1}))
	require.NoError(t, s.ResetConfig(ClientManager))

	ms := s.Module(ClientManager)
	assert.Empty(t, ms.Values)
	assert.False(t, ms.Dirty)
	assert.Equal(t, PhaseClean, ms.Phase)
}

func TestValidateConfig_MissingCurrency(t *testing.T) {
	s, _ := newTestStore(t, nil)

	valid, err := s.ValidateConfig(InvoiceCreator)
	require.NoError(t, err)
	assert.False(t, valid)

	ms := s.Module(InvoiceCreator)
	assert.Equal(t, "Default currency is required", ms.Errors["defaultCurrency"])
	assert.False(t, ms.Valid)

	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{"defaultCurrency": "EUR"}))
	valid, err = s.ValidateConfig(InvoiceCreator)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Empty(t, s.Module(InvoiceCreator).Errors)
}

func TestSaveConfig_Success(t *testing.T) {
	backend := remote.NewMemoryBackend()
	s, _ := newTestStore(t, backend)
	ctx := context.Background()

	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{"defaultCurrency": "EUR"}))
	ok, err := s.SaveConfig(ctx, InvoiceCreator)
	require.NoError(t, err)
	assert.True(t, ok)

	ms := s.Module(InvoiceCreator)
	assert.False(t, ms.Dirty)
	assert.Equal(t, PhaseClean, ms.Phase)
	assert.False(t, s.Loading())

	saved, err := backend.Load(ctx, string(InvoiceCreator))
	require.NoError(t, err)
	assert.Equal(t, "EUR", saved["defaultCurrency"])
}

func TestSaveConfig_InvalidSkipsBackend(t *testing.T) {
	backend := remote.NewMemoryBackend()
	s, _ := newTestStore(t, backend)

	ok, err := s.SaveConfig(context.Background(), InvoiceCreator)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Empty(t, backend.Modules())
	assert.Empty(t, s.Error())
}

func TestSaveConfig_FailureKeepsValues(t *testing.T) {
	boom := errors.New("connection refused")
	s, _ := newTestStore(t, failingBackend{MemoryBackend: remote.NewMemoryBackend(), err: boom})

	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{"defaultCurrency": "GBP"}))
	before := s.Module(InvoiceCreator).Values

	ok, err := s.SaveConfig(context.Background(), InvoiceCreator)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)

	ms := s.Module(InvoiceCreator)
	assert.Equal(t, before, ms.Values, "values are never rolled back")
	assert.True(t, ms.Dirty, "still dirty so the user can retry")
	assert.Equal(t, PhaseDirty, ms.Phase)
	assert.Contains(t, ms.LastError, "connection refused")
	assert.Equal(t, "Failed to save invoiceCreator settings: connection refused", s.Error())
	assert.False(t, s.Loading(), "loading always cleared")
}

func TestSaveConfig_ConcurrentSaveRejected(t *testing.T) {
	backend := newBlockingBackend()
	s, _ := newTestStore(t, backend)
	ctx := context.Background()

	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{"defaultCurrency": "USD"}))

	first := make(chan error, 1)
	go func() {
		_, err := s.SaveConfig(ctx, InvoiceCreator)
		first <- err
	}()
	<-backend.started

	require.True(t, s.Loading())
	assert.Equal(t, PhaseSaving, s.Module(InvoiceCreator).Phase)

	ok, err := s.SaveConfig(ctx, InvoiceCreator)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrSaveInProgress)

	// The rejected call must not clobber the first save's state.
	assert.True(t, s.Loading())
	assert.Equal(t, PhaseSaving, s.Module(InvoiceCreator).Phase)
	assert.Empty(t, s.Error())

	close(backend.release)
	require.NoError(t, <-first)
	assert.False(t, s.Loading())
	assert.Equal(t, PhaseClean, s.Module(InvoiceCreator).Phase)

	// Once settled, saving again is allowed.
	ok, err = s.SaveConfig(ctx, InvoiceCreator)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveConfig_EditDuringSaveStaysDirty(t *testing.T) {
	backend := newBlockingBackend()
	s, _ := newTestStore(t, backend)
	ctx := context.Background()

	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{"defaultCurrency": "USD"}))

	done := make(chan error, 1)
	go func() {
		_, err := s.SaveConfig(ctx, InvoiceCreator)
		done <- err
	}()
	<-backend.started

	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{"taxRate": 5.0}))
	close(backend.release)
	require.NoError(t, <-done)

	ms := s.Module(InvoiceCreator)
	assert.True(t, ms.Dirty)
	assert.Equal(t, PhaseDirty, ms.Phase)
}

func TestSaveConfig_ResetDuringFailedSave(t *testing.T) {
	backend := newBlockingBackend()
	backend.err = errors.New("boom")
	s, _ := newTestStore(t, backend)

	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{"defaultCurrency": "USD"}))

	done := make(chan error, 1)
	go func() {
		_, err := s.SaveConfig(context.Background(), InvoiceCreator)
		done <- err
	}()
	<-backend.started

	require.NoError(t, s.ResetConfig(InvoiceCreator))
	close(backend.release)
	require.Error(t, <-done)

	ms := s.Module(InvoiceCreator)
	assert.Empty(t, ms.Values)
	assert.False(t, ms.Dirty)
	assert.Equal(t, PhaseClean, ms.Phase, "reset slice stays pristine")
	assert.Empty(t, ms.LastError)
	assert.Equal(t, "Failed to save invoiceCreator settings: boom", s.Error(), "global error is still recorded")
	assert.False(t, s.Loading())
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) record(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingObserver) ConfigChanged(m string, keys []string) {
	r.record(fmt.Sprintf("changed %s %v", m, keys))
}
func (r *recordingObserver) ConfigReset(m string) { r.record("reset " + m) }
func (r *recordingObserver) ConfigLoaded(m string, keys []string) {
	r.record(fmt.Sprintf("loaded %s %v", m, keys))
}

func TestObserverSeesLocalChanges(t *testing.T) {
	backend := remote.NewMemoryBackend()
	require.NoError(t, backend.Save(context.Background(), string(TimeTracking), map[string]any{"roundingMinutes": 6.0}))
	obs := &recordingObserver{}
	s, err := New(Options{Dir: t.TempDir(), Backend: backend, Observer: obs})
	require.NoError(t, err)

	require.NoError(t, s.SetConfig(TimeTracking, map[string]any{"trackWeekends": true, "idleTimeoutMinutes": 5.0}))
	require.NoError(t, s.ResetConfig(TimeTracking))
	_, err = s.LoadConfig(context.Background(), TimeTracking)
	require.NoError(t, err)
	_, err = s.LoadConfig(context.Background(), InvoiceCreator)
	require.NoError(t, err, "never saved is not an error")
	require.Error(t, s.SetConfig(Module("nope"), map[string]any{"x": 1.0}))

	assert.Equal(t, []string{
		"changed timeTracking [idleTimeoutMinutes trackWeekends]",
		"reset timeTracking",
		"loaded timeTracking [roundingMinutes]",
	}, obs.events)
}

func TestSaveConfig_CancelledContext(t *testing.T) {
	backend := newBlockingBackend()
	s, _ := newTestStore(t, backend)
	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{"defaultCurrency": "USD"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ok, err := s.SaveConfig(ctx, InvoiceCreator)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEmpty(t, s.Error())
	assert.False(t, s.Loading())
}

func TestLoadConfig(t *testing.T) {
	backend := remote.NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, backend.Save(ctx, string(TimeTracking), map[string]any{"roundingMinutes": 30.0}))

	s, _ := newTestStore(t, backend)
	require.NoError(t, s.SetConfig(TimeTracking, map[string]any{"trackWeekends": true}))

	ok, err := s.LoadConfig(ctx, TimeTracking)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"roundingMinutes": 30.0, "trackWeekends": true}, s.Module(TimeTracking).Values)

	ok, err = s.LoadConfig(ctx, ClientManager)
	require.NoError(t, err, "never saved is not an error")
	assert.True(t, ok)
}

func TestLoadConfig_Failure(t *testing.T) {
	s, _ := newTestStore(t, failingBackend{MemoryBackend: remote.NewMemoryBackend(), err: errors.New("offline")})

	ok, err := s.LoadConfig(context.Background(), ProposalGenerator)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Equal(t, "Failed to load proposalGenerator settings: offline", s.Error())
	assert.False(t, s.Loading())
}

func TestLoadAll(t *testing.T) {
	backend := remote.NewMemoryBackend()
	ctx := context.Background()
	for _, m := range Modules() {
		require.NoError(t, backend.Save(ctx, string(m), map[string]any{"marker": string(m)}))
	}

	s, _ := newTestStore(t, backend)
	require.NoError(t, s.LoadAll(ctx))

	for _, m := range Modules() {
		assert.Equal(t, string(m), s.Module(m).Values["marker"])
	}
}

func TestMigrateConfig_AddsDefaultsKeepsKeys(t *testing.T) {
	s, _ := newTestStore(t, nil)
	require.NoError(t, s.SetConfig(ClientManager, map[string]any{"preferredChannel": "phone", "portalEnabled": true}))

	require.NoError(t, s.MigrateConfig(ClientManager, 1))

	values := s.Module(ClientManager).Values
	assert.Equal(t, "phone", values["preferredChannel"])
	assert.Equal(t, true, values["portalEnabled"], "existing value wins over default")
	assert.Equal(t, 30.0, values["defaultPaymentTermDays"])
}

func TestRehydrate_MigratesOlderSlot(t *testing.T) {
	dir := t.TempDir()
	legacy := map[string]any{
		"modules": map[string]any{
			"invoiceCreator": map[string]any{"values": map[string]any{"currency": "CAD"}, "isValid": true},
			"clientManager":  map[string]any{"values": map[string]any{"preferredChannel": "email"}, "isValid": true},
		},
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	env, err := json.Marshal(map[string]any{"version": 1, "state": json.RawMessage(raw)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(state.SlotPath(dir, DefaultSlotName), env, 0o644))

	s, err := New(Options{Dir: dir, Backend: remote.NewMemoryBackend()})
	require.NoError(t, err)

	inv := s.Module(InvoiceCreator).Values
	assert.Equal(t, "CAD", inv["defaultCurrency"])
	assert.NotContains(t, inv, "currency")

	cm := s.Module(ClientManager).Values
	assert.Equal(t, "email", cm["preferredChannel"])
	assert.Equal(t, false, cm["portalEnabled"])

	assert.Equal(t, 15.0, s.Module(TimeTracking).Values["roundingMinutes"])
	assert.Len(t, s.Snapshot().Modules, len(Modules()))
}

func TestPersistenceAcrossRestart(t *testing.T) {
	backend := remote.NewMemoryBackend()
	s, dir := newTestStore(t, backend)
	require.NoError(t, s.SetConfig(ProjectManagement, map[string]any{"boardColumns": []string{"todo", "done"}}))

	again, err := New(Options{Dir: dir, Backend: backend})
	require.NoError(t, err)

	ms := again.Module(ProjectManagement)
	assert.Equal(t, []string{"todo", "done"}, ms.Values["boardColumns"])
	assert.True(t, ms.Dirty)
}

func TestNew_RejectsMigrationGap(t *testing.T) {
	migrations := DefaultMigrations()
	delete(migrations, MigrationKey{ProjectManagement, 1})

	_, err := New(Options{Dir: t.TempDir(), Backend: remote.NewMemoryBackend(), Migrations: migrations})
	assert.ErrorContains(t, err, "no migration for projectManagement from version 1")
}

func TestDecodeSettings(t *testing.T) {
	s, _ := newTestStore(t, nil)
	require.NoError(t, s.SetConfig(InvoiceCreator, map[string]any{
		"defaultCurrency": "EUR",
		"taxRate":         19.0,
		"paymentMethods":  []string{"bank", "card"},
	}))

	inv, err := Decode[InvoiceSettings](s.Module(InvoiceCreator).Values)
	require.NoError(t, err)
	assert.Equal(t, "EUR", inv.DefaultCurrency)
	assert.Equal(t, 19.0, inv.TaxRate)
	assert.Equal(t, []string{"bank", "card"}, inv.PaymentMethods)
}
