package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

// DirName is the per-project directory holding configuration and data.
const DirName = ".configurator"

// Backend names for Config.Backend.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config represents the configurator's own configuration
type Config struct {
	// Storage
	DataDir      string `json:"data_dir"`
	Backend      string `json:"backend"`
	DatabasePath string `json:"database_path"`
	StoreName    string `json:"store_name"`

	// Logging
	LogLevel string `json:"log_level"`
	Debug    bool   `json:"debug"`

	// UI preferences
	Theme string `json:"theme"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir:      "data",
		Backend:      BackendSQLite,
		DatabasePath: "settings.db",
		StoreName:    "config-store",
		LogLevel:     "info",
		Debug:        false,
		Theme:        "default",
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", BackendSQLite, BackendMemory, c.Backend))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch c.Theme {
	case "", "default", "dark", "light":
	default:
		errs = append(errs, fmt.Errorf("unknown theme %q", c.Theme))
	}
	if c.StoreName == "" || strings.ContainsAny(c.StoreName, `/\`) {
		errs = append(errs, fmt.Errorf("store_name must be a plain file name, got %q", c.StoreName))
	}
	return errors.Join(errs...)
}

// Manager handles configuration loading and saving
type Manager struct {
	projectPath string
	configPath  string
	config      *Config
}

// NewManager creates a new configuration manager
func NewManager(projectPath string) *Manager {
	dir := filepath.Join(projectPath, DirName)
	return &Manager{
		projectPath: projectPath,
		configPath:  filepath.Join(dir, "config.json"),
		config:      DefaultConfig(),
	}
}

// Path returns the config file path.
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk, creating defaults if needed
func (m *Manager) Load() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", DirName, err)
	}

	if err := m.ensureGitignore(); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Keys missing from the file keep their defaults
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}

	m.expandEnvVars(config)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.config = config
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// Set updates a configuration value and saves
func (m *Manager) Set(key, value string) error {
	next := *m.config
	switch key {
	case "data_dir":
		next.DataDir = value
	case "backend":
		next.Backend = value
	case "database_path":
		next.DatabasePath = value
	case "store_name":
		next.StoreName = value
	case "log_level":
		next.LogLevel = value
	case "debug":
		next.Debug = value == "true"
	case "theme":
		next.Theme = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	m.config = &next
	return m.Save()
}

// DataDir returns the absolute data directory. Relative paths are resolved
// against the project's configurator directory.
func (m *Manager) DataDir() string {
	return m.resolve(m.config.DataDir)
}

// DatabasePath returns the absolute SQLite path. Relative paths are
// resolved against the data directory.
func (m *Manager) DatabasePath() string {
	if filepath.IsAbs(m.config.DatabasePath) {
		return m.config.DatabasePath
	}
	return filepath.Join(m.DataDir(), m.config.DatabasePath)
}

func (m *Manager) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(m.configPath), p)
}

// ensureGitignore creates a .gitignore in the configurator directory
func (m *Manager) ensureGitignore() error {
	gitignorePath := filepath.Join(filepath.Dir(m.configPath), ".gitignore")

	if _, err := os.Stat(gitignorePath); !os.IsNotExist(err) {
		return nil // Already exists
	}

	gitignoreContent := `# Configurator data directory .gitignore
#
# Config is committed; stored settings and their database are not.

*.log
*.tmp
.DS_Store

data/
*.db
*.db-wal
*.db-shm

!config.json
!.gitignore
`

	return os.WriteFile(gitignorePath, []byte(gitignoreContent), 0o644)
}

// expandEnvVars expands environment variables in config values
func (m *Manager) expandEnvVars(config *Config) {
	config.DataDir = expandString(config.DataDir)
	config.DatabasePath = expandString(config.DatabasePath)
	config.StoreName = expandString(config.StoreName)
	config.LogLevel = expandString(config.LogLevel)
	config.Theme = expandString(config.Theme)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandString expands environment variables in a string.
// Supports $VAR and ${VAR} syntax; unset variables are left as written.
func expandString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match
	})
}
