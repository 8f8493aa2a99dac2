package testutil

import (
	"path/filepath"
	"testing"

	"github.com/emty-pyie/Jane/internal/db"
)

// NewTestDB returns a temporary, migrated notes database for tests.
//
// The caller does not need to close it; cleanup is registered on t.Cleanup.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()
	return NewTestDBAtPath(t, filepath.Join(t.TempDir(), "notes.db"))
}

// NewTestDBAtPath creates a migrated notes database at a specific path.
func NewTestDBAtPath(t *testing.T, path string) *db.DB {
	t.Helper()

	if path == "" {
		t.Fatalf("NewTestDBAtPath: path is required")
	}

	database, err := db.OpenAndMigrate(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}
