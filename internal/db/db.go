// Package db provides the SQLite notes store.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// schemaVersion is bumped whenever migrations change.
const schemaVersion = 1

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS notes (
		id         TEXT PRIMARY KEY,
		text       TEXT NOT NULL,
		line       TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at)`,
}

// DB wraps a SQLite connection.
type DB struct {
	*sql.DB
	path string
}

// Open opens the database at path, creating parent directories as needed.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	return &DB{DB: conn, path: path}, nil
}

// OpenAndMigrate opens the database and applies migrations.
func OpenAndMigrate(path string) (*DB, error) {
	database, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Migrate applies all migrations and records the schema version.
func (db *DB) Migrate() error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range migrations {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return tx.Commit()
}

// SchemaVersion returns the recorded schema version.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
