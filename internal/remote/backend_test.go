package remote

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	sqlite, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "settings.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"sqlite": sqlite,
	}
}

func TestBackend_RoundTrip(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			values := map[string]any{
				"defaultCurrency": "EUR",
				"taxRate":         7.5,
				"autoSend":        true,
				"reminderDays":    []float64{7, 14},
				"channels":        []string{"email"},
			}

			require.NoError(t, b.Save(ctx, "invoiceCreator", values))

			got, err := b.Load(ctx, "invoiceCreator")
			require.NoError(t, err)
			assert.Equal(t, values, got)
		})
	}
}

func TestBackend_NotFound(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Load(context.Background(), "timeTracking")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBackend_CancelledContext(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			assert.Error(t, b.Save(ctx, "clientManager", map[string]any{"a": "b"}))
		})
	}
}

func TestSQLiteBackend_History(t *testing.T) {
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "settings.db"), nil)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Save(ctx, "timeTracking", map[string]any{"roundingMinutes": 5.0}))
	require.NoError(t, b.Save(ctx, "timeTracking", map[string]any{"roundingMinutes": 15.0}))
	require.NoError(t, b.Save(ctx, "clientManager", map[string]any{"portalEnabled": true}))

	revs, err := b.History(ctx, "timeTracking", 0)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, int64(2), revs[0].Revision)
	assert.Equal(t, 15.0, revs[0].Values["roundingMinutes"])
	assert.Equal(t, 5.0, revs[1].Values["roundingMinutes"])

	latest, err := b.Load(ctx, "timeTracking")
	require.NoError(t, err)
	assert.Equal(t, 15.0, latest["roundingMinutes"])
}
