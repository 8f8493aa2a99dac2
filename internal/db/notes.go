package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoteNotFound is returned when a note is not found.
var ErrNoteNotFound = errors.New("note not found")

// Note is one saved note.
type Note struct {
	ID string `json:"id"`
	// Text is the note body without the timestamp prefix.
	Text string `json:"text"`
	// Line is the note as rendered in the notes file, "[stamp] text".
	Line      string    `json:"line"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateNote inserts a note. ID and CreatedAt are filled in when unset.
func (db *DB) CreateNote(ctx context.Context, n *Note) error {
	if strings.TrimSpace(n.Line) == "" {
		return fmt.Errorf("note line is required")
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Text == "" {
		n.Text = textFromLine(n.Line)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO notes (id, text, line, created_at)
		VALUES (?, ?, ?, ?)
	`, n.ID, n.Text, n.Line, n.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("creating note: %w", err)
	}
	return nil
}

// GetNote retrieves a note by ID.
func (db *DB) GetNote(ctx context.Context, id string) (*Note, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, text, line, created_at FROM notes WHERE id = ?
	`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	return n, err
}

// ListNotes returns notes oldest first. A limit <= 0 returns all notes;
// otherwise the most recent limit notes are returned.
func (db *DB) ListNotes(ctx context.Context, limit int) ([]*Note, error) {
	query := `SELECT id, text, line, created_at FROM notes ORDER BY created_at ASC, rowid ASC`
	args := []any{}
	if limit > 0 {
		query = `SELECT id, text, line, created_at FROM (
			SELECT rowid AS rid, id, text, line, created_at FROM notes
			ORDER BY created_at DESC, rowid DESC LIMIT ?
		) ORDER BY created_at ASC, rid ASC`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

// NotesSince returns notes created strictly after t, oldest first.
func (db *DB) NotesSince(ctx context.Context, t time.Time) ([]*Note, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, text, line, created_at FROM notes
		WHERE created_at > ?
		ORDER BY created_at ASC, rowid ASC
	`, t.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("listing notes since: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

// CountNotes returns the number of stored notes.
func (db *DB) CountNotes(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting notes: %w", err)
	}
	return count, nil
}

// DeleteNote removes a note by ID.
func (db *DB) DeleteNote(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func scanNote(row *sql.Row) (*Note, error) {
	var n Note
	var createdAt string
	if err := row.Scan(&n.ID, &n.Text, &n.Line, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	n.CreatedAt = t
	return &n, nil
}

// scanNotes scans multiple note rows.
func scanNotes(rows *sql.Rows) ([]*Note, error) {
	var notes []*Note
	for rows.Next() {
		var n Note
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Text, &n.Line, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		n.CreatedAt = t
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}
	return notes, nil
}

// textFromLine strips a leading "[stamp] " prefix.
func textFromLine(line string) string {
	if strings.HasPrefix(line, "[") {
		if i := strings.Index(line, "] "); i > 0 {
			return line[i+2:]
		}
	}
	return line
}
