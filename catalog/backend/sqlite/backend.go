package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/mwantia/metacat/catalog/backend"
)

// SQLiteBackend stores a catalog in a single SQLite database file.
// The dbPath can be ":memory:" for an in-memory database or a file path.
type SQLiteBackend struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteBackend creates a new SQLite-backed catalog store.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteBackend{
		db:   db,
		path: dbPath,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Path returns the database path the backend was created with.
func (sb *SQLiteBackend) Path() string {
	return sb.path
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.db.PingContext(ctx)
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// Fold the WAL back into the main file so the catalog is a single file
	if _, err := sb.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		sb.db.Close()
		return err
	}
	return sb.db.Close()
}

// InitSchema creates the catalog schema.
func (sb *SQLiteBackend) InitSchema(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	schema := `
	CREATE TABLE IF NOT EXISTS Directories (
		directory_id INTEGER PRIMARY KEY,
		path TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS Files (
		file_id INTEGER PRIMARY KEY,
		directory_id INTEGER NOT NULL REFERENCES Directories(directory_id),
		filename TEXT NOT NULL,
		symlink_target TEXT,
		created REAL NOT NULL,
		modified REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_directory ON Files(directory_id);

	CREATE TABLE IF NOT EXISTS GlobalAttributes (
		file_id INTEGER NOT NULL REFERENCES Files(file_id),
		ordinal INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (file_id, ordinal)
	);

	CREATE TABLE IF NOT EXISTS Coordinates (
		coord_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		value_count INTEGER NOT NULL,
		min REAL,
		max REAL,
		delta REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_coordinates_name ON Coordinates(name);

	CREATE TABLE IF NOT EXISTS DiscreteCoordinateValues (
		coord_id INTEGER NOT NULL REFERENCES Coordinates(coord_id),
		ordinal INTEGER NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (coord_id, ordinal)
	);

	CREATE TABLE IF NOT EXISTS CoordinateAttributes (
		coord_id INTEGER NOT NULL REFERENCES Coordinates(coord_id),
		ordinal INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (coord_id, ordinal)
	);

	CREATE TABLE IF NOT EXISTS Variables (
		var_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		dimension_count INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_variables_name ON Variables(name);

	CREATE TABLE IF NOT EXISTS VariableCoordinateFileAssociations (
		var_id INTEGER NOT NULL REFERENCES Variables(var_id),
		ordinal INTEGER NOT NULL,
		coord_id INTEGER NOT NULL,
		file_id INTEGER NOT NULL,
		dimension_index INTEGER NOT NULL,
		PRIMARY KEY (var_id, ordinal)
	);
	CREATE INDEX IF NOT EXISTS idx_associations_file ON VariableCoordinateFileAssociations(file_id);

	CREATE TABLE IF NOT EXISTS VariableAttributes (
		var_id INTEGER NOT NULL REFERENCES Variables(var_id),
		ordinal INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (var_id, ordinal)
	);

	CREATE TABLE IF NOT EXISTS IngestRuns (
		run_id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		file_type TEXT NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER,
		directories INTEGER NOT NULL DEFAULT 0,
		files INTEGER NOT NULL DEFAULT 0,
		coordinates INTEGER NOT NULL DEFAULT 0,
		variables INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS FailedFiles (
		run_id TEXT NOT NULL REFERENCES IngestRuns(run_id),
		path TEXT NOT NULL,
		reason TEXT NOT NULL
	);
	`

	_, err := sb.db.ExecContext(ctx, schema)
	return err
}

// IsEmpty reports whether the catalog holds any content rows.
func (sb *SQLiteBackend) IsEmpty(ctx context.Context) (bool, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	for _, table := range backend.ContentTables {
		var exists int
		err := sb.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", table).Scan(&exists)
		if err != nil {
			return false, err
		}
		if exists == 0 {
			continue
		}

		var rows int
		query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s)", table)
		if err := sb.db.QueryRowContext(ctx, query).Scan(&rows); err != nil {
			return false, err
		}
		if rows != 0 {
			return false, nil
		}
	}

	return true, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
