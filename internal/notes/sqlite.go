package notes

import (
	"context"
	"fmt"
	"time"

	"github.com/emty-pyie/Jane/internal/db"
)

// SQLiteStore keeps notes in the notes table of a SQLite database.
type SQLiteStore struct {
	db *db.DB
}

// OpenSQLiteStore opens (and migrates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("notes database path is required")
	}
	database, err := db.OpenAndMigrate(path)
	if err != nil {
		return nil, fmt.Errorf("opening notes database: %w", err)
	}
	return &SQLiteStore{db: database}, nil
}

// NewSQLiteStore wraps an already open database.
func NewSQLiteStore(database *db.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

// Location returns the database path.
func (s *SQLiteStore) Location() string {
	return s.db.Path()
}

// AppendNote inserts line as a new note.
func (s *SQLiteStore) AppendNote(ctx context.Context, line string) error {
	return s.db.CreateNote(ctx, &db.Note{Line: line})
}

// List returns note lines, oldest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]string, error) {
	notes, err := s.db.ListNotes(ctx, limit)
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = n.Line
	}
	return lines, nil
}

// Follow streams notes inserted after Follow starts. Changes are detected by
// watching the database file and its WAL.
func (s *SQLiteStore) Follow(ctx context.Context, fn func(line string)) error {
	w, err := NewWatcher(s.db.Path())
	if err != nil {
		return err
	}
	defer w.Stop()

	since := time.Now().UTC()
	if latest, err := s.db.ListNotes(ctx, 1); err == nil && len(latest) == 1 && latest[0].CreatedAt.After(since) {
		since = latest[0].CreatedAt
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case _, ok := <-w.Events():
			if !ok {
				return nil
			}
			notes, err := s.db.NotesSince(ctx, since)
			if err != nil {
				return err
			}
			for _, n := range notes {
				fn(n.Line)
				since = n.CreatedAt
			}
		}
	}
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
