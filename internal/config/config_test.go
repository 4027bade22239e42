package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	require.NoError(t, m.Load())

	assert.FileExists(t, filepath.Join(dir, DirName, "config.json"))
	assert.FileExists(t, filepath.Join(dir, DirName, ".gitignore"))
	assert.Equal(t, DefaultConfig(), m.Get())
	assert.Equal(t, filepath.Join(dir, DirName, "data"), m.DataDir())
	assert.Equal(t, filepath.Join(dir, DirName, "data", "settings.db"), m.DatabasePath())
}

func TestLoadExpandsEnvAndKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIGURATOR_TEST_DATA", "/var/lib/configurator")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DirName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DirName, "config.json"),
		[]byte(`{"data_dir": "${CONFIGURATOR_TEST_DATA}", "backend": "memory", "theme": "$UNSET_CONFIGURATOR_VAR_X"}`), 0o644))

	m := NewManager(dir)
	err := m.Load()
	require.Error(t, err, "unexpanded theme is not a known theme")

	require.NoError(t, os.WriteFile(filepath.Join(dir, DirName, "config.json"),
		[]byte(`{"data_dir": "${CONFIGURATOR_TEST_DATA}", "backend": "memory"}`), 0o644))
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "/var/lib/configurator", cfg.DataDir)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "info", cfg.LogLevel, "missing keys keep defaults")
	assert.Equal(t, "/var/lib/configurator/settings.db", m.DatabasePath())
}

func TestSet(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	require.NoError(t, m.Load())

	require.NoError(t, m.Set("log_level", "debug"))
	require.NoError(t, m.Set("debug", "true"))

	again := NewManager(dir)
	require.NoError(t, again.Load())
	assert.Equal(t, "debug", again.Get().LogLevel)
	assert.True(t, again.Get().Debug)

	assert.ErrorContains(t, m.Set("colour", "red"), "unknown config key")
	assert.Error(t, m.Set("backend", "postgres"))
	assert.Equal(t, BackendSQLite, m.Get().Backend, "rejected values are not applied")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"memory_backend", func(c *Config) { c.Backend = BackendMemory }, false},
		{"bad_backend", func(c *Config) { c.Backend = "redis" }, true},
		{"bad_level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"bad_theme", func(c *Config) { c.Theme = "fire" }, true},
		{"store_name_path", func(c *Config) { c.StoreName = "../x" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandString(t *testing.T) {
	t.Setenv("CFG_A", "alpha")
	assert.Equal(t, "alpha/alpha", expandString("$CFG_A/${CFG_A}"))
	assert.Equal(t, "$CFG_UNSET_ZZ", expandString("$CFG_UNSET_ZZ"))
}
