// Package notes stores the assistant's saved notes in a text file or SQLite.
package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/emty-pyie/Jane/internal/core"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// DefaultFilePath is where the file backend writes when no path is configured.
const DefaultFilePath = "jane_notes.txt"

// Store persists and lists notes.
type Store interface {
	core.NoteSink
	// List returns up to limit of the most recent note lines, oldest first.
	// A limit <= 0 returns every note.
	List(ctx context.Context, limit int) ([]string, error)
	// Follow calls fn for each note line appended after Follow starts, until
	// ctx is done.
	Follow(ctx context.Context, fn func(line string)) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend      string
	FilePath     string
	DatabasePath string
}

// Open returns the store for opts.Backend.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		path := opts.FilePath
		if strings.TrimSpace(path) == "" {
			path = DefaultFilePath
		}
		return NewFileStore(path), nil
	case BackendSQLite:
		return OpenSQLiteStore(opts.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown notes backend %q (want %s or %s)", opts.Backend, BackendFile, BackendSQLite)
	}
}
