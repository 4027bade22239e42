package state

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type prefs struct {
	Theme  string            `json:"theme"`
	Values map[string]string `json:"values"`
}

func defaultPrefs() prefs {
	return prefs{Theme: "fire", Values: map[string]string{}}
}

func clonePrefs(p prefs) prefs {
	p.Values = maps.Clone(p.Values)
	return p
}

func newTestStore(t *testing.T, path string, opts Options[prefs]) *Store[prefs] {
	t.Helper()
	if opts.Version == 0 {
		opts.Version = 1
	}
	opts.Clone = clonePrefs
	s, err := NewStore(path, defaultPrefs, opts)
	require.NoError(t, err)
	return s
}

func writeSlot(t *testing.T, path string, version int, state any) {
	t.Helper()
	raw, err := json.Marshal(state)
	require.NoError(t, err)
	data, err := json.Marshal(envelope{Version: version, State: raw})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestStore_DefaultsWhenMissing(t *testing.T) {
	s := newTestStore(t, SlotPath(t.TempDir(), "prefs"), Options[prefs]{})
	assert.Equal(t, defaultPrefs(), s.Get())
}

func TestStore_UpdatePersistsAndRehydrates(t *testing.T) {
	path := SlotPath(t.TempDir(), "prefs")
	s := newTestStore(t, path, Options[prefs]{})

	require.NoError(t, s.Update(func(p prefs) prefs {
		p.Values["currency"] = "EUR"
		return p
	}))

	again := newTestStore(t, path, Options[prefs]{})
	assert.Equal(t, "EUR", again.Get().Values["currency"])

	var env envelope
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, 1, env.Version)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := newTestStore(t, SlotPath(t.TempDir(), "prefs"), Options[prefs]{})

	p := s.Get()
	p.Values["leak"] = "x"

	assert.NotContains(t, s.Get().Values, "leak")
}

func TestStore_MigratesOlderSlot(t *testing.T) {
	path := SlotPath(t.TempDir(), "prefs")
	writeSlot(t, path, 1, prefs{Theme: "dark", Values: map[string]string{"currency": "USD"}})

	var from int
	s := newTestStore(t, path, Options[prefs]{
		Version: 2,
		Migrate: func(p prefs, v int) (prefs, error) {
			from = v
			p.Values["defaultCurrency"] = p.Values["currency"]
			delete(p.Values, "currency")
			return p, nil
		},
	})

	assert.Equal(t, 1, from)
	assert.Equal(t, "USD", s.Get().Values["defaultCurrency"])
	assert.Equal(t, "dark", s.Get().Theme)

	var env envelope
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, 2, env.Version, "migrated slot is written back")
}

func TestStore_MigrationFailure(t *testing.T) {
	path := SlotPath(t.TempDir(), "prefs")
	writeSlot(t, path, 1, defaultPrefs())

	_, err := NewStore(path, defaultPrefs, Options[prefs]{
		Version: 2,
		Migrate: func(p prefs, _ int) (prefs, error) { return p, errors.New("no route") },
	})
	assert.ErrorContains(t, err, "no route")
}

func TestStore_NewerSlotRejected(t *testing.T) {
	path := SlotPath(t.TempDir(), "prefs")
	writeSlot(t, path, 5, defaultPrefs())

	_, err := NewStore(path, defaultPrefs, Options[prefs]{Version: 2})
	assert.ErrorContains(t, err, "newer than supported")
}

func TestStore_CorruptSlotFallsBack(t *testing.T) {
	path := SlotPath(t.TempDir(), "prefs")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := newTestStore(t, path, Options[prefs]{})
	assert.Equal(t, defaultPrefs(), s.Get())
}

func TestStore_Clear(t *testing.T) {
	path := SlotPath(t.TempDir(), "prefs")
	s := newTestStore(t, path, Options[prefs]{})
	require.NoError(t, s.Set(prefs{Theme: "light", Values: map[string]string{"a": "b"}}))

	require.NoError(t, s.Clear())
	assert.Equal(t, defaultPrefs(), s.Get())
	assert.NoFileExists(t, path)
	require.NoError(t, s.Clear(), "clearing twice is fine")
}

func TestStore_ReloadSkipsOwnWrites(t *testing.T) {
	path := SlotPath(t.TempDir(), "prefs")
	s := newTestStore(t, path, Options[prefs]{})
	require.NoError(t, s.Set(prefs{Theme: "light", Values: map[string]string{}}))

	changed, err := s.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	writeSlot(t, path, 1, prefs{Theme: "solarized", Values: map[string]string{}})
	changed, err = s.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "solarized", s.Get().Theme)
}

func TestStore_ReloadDuringUpdatesSeesOnlyOwnWrites(t *testing.T) {
	s := newTestStore(t, SlotPath(t.TempDir(), "prefs"), Options[prefs]{})
	require.NoError(t, s.Set(defaultPrefs()))

	const rounds = 200
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range rounds {
			_ = s.Update(func(p prefs) prefs {
				p.Values["n"] = strconv.Itoa(i)
				return p
			})
		}
	}()

	for {
		changed, err := s.Reload()
		require.NoError(t, err)
		require.False(t, changed, "own write reported as external change")
		select {
		case <-done:
			assert.Equal(t, strconv.Itoa(rounds-1), s.Get().Values["n"])
			return
		default:
		}
	}
}

func TestStore_WatchRehydrates(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := SlotPath(dir, "prefs")
	s := newTestStore(t, path, Options[prefs]{})
	require.NoError(t, s.Set(defaultPrefs()))

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan prefs, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(p prefs) { changes <- p })
	}()

	// Another process writes the slot atomically.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	other := newTestStore(t, filepath.Join(dir, "prefs.json"), Options[prefs]{})

	var got prefs
wait:
	for {
		select {
		case got = <-changes:
			break wait
		case <-tick.C:
			require.NoError(t, other.Set(prefs{Theme: "dark", Values: map[string]string{}}))
		case <-deadline:
			t.Fatal("watch never reported the external write")
		}
	}

	assert.Equal(t, "dark", got.Theme)
	cancel()
	require.NoError(t, <-done)
}
