package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Revision is one historical save of a module.
type Revision struct {
	Module   string
	Revision int64
	Values   map[string]any
	SavedAt  time.Time
}

// SQLiteBackend stores module settings in a SQLite database, keeping every
// saved revision.
type SQLiteBackend struct {
	db     *sql.DB
	dbPath string
	logger *zap.Logger
}

// NewSQLiteBackend creates or opens the settings database at dbPath.
func NewSQLiteBackend(dbPath string, logger *zap.Logger) (*SQLiteBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, dbPath: dbPath, logger: logger}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return b, nil
}

// Path returns the database file path.
func (b *SQLiteBackend) Path() string {
	return b.dbPath
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS module_settings (
		module TEXT PRIMARY KEY,
		values_json TEXT NOT NULL,
		revision INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS module_settings_history (
		module TEXT NOT NULL,
		revision INTEGER NOT NULL,
		values_json TEXT NOT NULL,
		saved_at DATETIME NOT NULL,
		PRIMARY KEY (module, revision)
	);
	`
	_, err := b.db.Exec(schema)
	return err
}

// Save writes the module's values and appends a history revision.
func (b *SQLiteBackend) Save(ctx context.Context, module string, values map[string]any) error {
	raw, err := encodeValues(values)
	if err != nil {
		return err
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var revision int64
	err = tx.QueryRowContext(ctx,
		`SELECT revision FROM module_settings WHERE module = ?`, module).Scan(&revision)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read revision: %w", err)
	}
	revision++
	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO module_settings (module, values_json, revision, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(module) DO UPDATE SET
			values_json = excluded.values_json,
			revision = excluded.revision,
			updated_at = excluded.updated_at`,
		module, string(raw), revision, now); err != nil {
		return fmt.Errorf("failed to save %s: %w", module, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO module_settings_history (module, revision, values_json, saved_at)
		VALUES (?, ?, ?, ?)`,
		module, revision, string(raw), now); err != nil {
		return fmt.Errorf("failed to record history for %s: %w", module, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	b.logger.Debug("Saved module settings",
		zap.String("module", module),
		zap.Int64("revision", revision))
	return nil
}

// Load returns the module's latest values.
func (b *SQLiteBackend) Load(ctx context.Context, module string) (map[string]any, error) {
	var raw string
	err := b.db.QueryRowContext(ctx,
		`SELECT values_json FROM module_settings WHERE module = ?`, module).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", module, err)
	}
	return decodeValues([]byte(raw))
}

// History returns up to limit revisions of module, newest first.
func (b *SQLiteBackend) History(ctx context.Context, module string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT revision, values_json, saved_at
		FROM module_settings_history
		WHERE module = ?
		ORDER BY revision DESC
		LIMIT ?`, module, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var (
			rev     Revision
			raw     string
			savedAt time.Time
		)
		if err := rows.Scan(&rev.Revision, &raw, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		values, err := decodeValues([]byte(raw))
		if err != nil {
			return nil, err
		}
		rev.Module = module
		rev.Values = values
		rev.SavedAt = savedAt
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}
