package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/emty-pyie/Jane/internal/db"
)

// NoteOption customizes a test note.
type NoteOption func(*db.Note)

// MakeNote creates and inserts a note into the DB.
func MakeNote(t *testing.T, database *db.DB, opts ...NoteOption) *db.Note {
	t.Helper()

	created := time.Now().UTC()
	text := "note-" + randHex(6)
	n := &db.Note{
		Text:      text,
		Line:      fmt.Sprintf("[%s] %s", created.Format("2006-01-02 15:04:05"), text),
		CreatedAt: created,
	}
	for _, opt := range opts {
		opt(n)
	}
	RequireNoError(t, database.CreateNote(context.Background(), n), "create note")
	return n
}

// WithNoteText sets the note body and rebuilds the line.
func WithNoteText(text string) NoteOption {
	return func(n *db.Note) {
		n.Text = text
		n.Line = fmt.Sprintf("[%s] %s", n.CreatedAt.Format("2006-01-02 15:04:05"), text)
	}
}

// WithNoteCreatedAt overrides the creation time.
func WithNoteCreatedAt(t time.Time) NoteOption {
	return func(n *db.Note) { n.CreatedAt = t }
}

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// NoSleep is a countdown sleep that returns immediately unless ctx is done.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// randHex returns a cryptographically random hex string for unique test IDs.
func randHex(n int) string {
	b := make([]byte, (n+1)/2) // Each byte produces 2 hex chars
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)[:n]
}
