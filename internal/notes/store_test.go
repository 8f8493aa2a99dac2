package notes

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{FilePath: filepath.Join(dir, "n.txt")})
	if err != nil {
		t.Fatalf("Open(file): %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("default backend = %T, want *FileStore", s)
	}

	s, err = Open(Options{Backend: "SQLite", DatabasePath: filepath.Join(dir, "n.db")})
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("sqlite backend = %T, want *SQLiteStore", s)
	}

	if _, err := Open(Options{Backend: "redis"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpenFileDefaultsPath(t *testing.T) {
	s, err := Open(Options{Backend: BackendFile})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Location() != DefaultFilePath {
		t.Errorf("Location = %q, want %q", s.Location(), DefaultFilePath)
	}
}

func TestFileStoreAppendsExactlyOneLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "jane_notes.txt")
	s := NewFileStore(path)
	ctx := context.Background()

	if err := s.AppendNote(ctx, "[2024-03-01 10:00:00] buy milk"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}
	if err := s.AppendNote(ctx, "[2024-03-01 10:01:00] call mom"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "[2024-03-01 10:00:00] buy milk\n[2024-03-01 10:01:00] call mom\n"
	if string(data) != want {
		t.Fatalf("file contents = %q, want %q", data, want)
	}

	lines, err := s.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(lines) != 1 || !strings.HasSuffix(lines[0], "call mom") {
		t.Fatalf("List(1) = %v", lines)
	}
}

func TestFileStoreRejectsNewlines(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "n.txt"))
	if err := s.AppendNote(context.Background(), "a\nb"); err == nil {
		t.Fatal("expected error for multi-line note")
	}
}

func TestFileStoreListMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing.txt"))
	lines, err := s.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %v", lines)
	}
}

func TestFileStoreAppendErrorOnDirectory(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	if err := s.AppendNote(context.Background(), "x"); err == nil {
		t.Fatal("expected error writing to a directory")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	if err := s.AppendNote(ctx, "[2024-03-01 10:00:00] buy milk"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}
	lines, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(lines) != 1 || lines[0] != "[2024-03-01 10:00:00] buy milk" {
		t.Fatalf("List = %v", lines)
	}
	if !strings.HasSuffix(s.Location(), "notes.db") {
		t.Errorf("Location = %q", s.Location())
	}
}

func TestFileStoreFollowStreamsNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jane_notes.txt")
	s := NewFileStore(path)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := s.AppendNote(ctx, "[old] existing"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() { done <- s.Follow(ctx, func(line string) { got <- line }) }()

	// Give the watcher time to attach before writing.
	time.Sleep(200 * time.Millisecond)
	if err := s.AppendNote(ctx, "[new] fresh"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}

	select {
	case line := <-got:
		if line != "[new] fresh" {
			t.Fatalf("followed line = %q, want %q", line, "[new] fresh")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for followed line")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}
