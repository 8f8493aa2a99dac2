package cli

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/emty-pyie/Jane/internal/config"
)

func TestNotesCommand_Empty(t *testing.T) {
	h := newCLIHarness(t)

	stdout, _, err := executeCommand(rootCmd, "notes")
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	if !strings.Contains(stdout, "No notes yet in "+h.NotesPath) {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestNotesCommand_FileBackend(t *testing.T) {
	h := newCLIHarness(t)
	body := "[2026-01-01 09:00:00] one\n[2026-01-01 09:01:00] two\n[2026-01-01 09:02:00] three\n"
	if err := os.WriteFile(h.NotesPath, []byte(body), 0600); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	stdout, _, err := executeCommand(rootCmd, "notes", "-n", "2", "-j")
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	var got struct {
		Location string   `json:"location"`
		Notes    []string `json:"notes"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if got.Location != h.NotesPath {
		t.Errorf("location = %q, want %q", got.Location, h.NotesPath)
	}
	if strings.Join(got.Notes, "|") != "[2026-01-01 09:01:00] two|[2026-01-01 09:02:00] three" {
		t.Errorf("notes = %v", got.Notes)
	}
}

func TestNotesCommand_SQLiteBackend(t *testing.T) {
	h := newCLIHarness(t)
	h.WriteProjectConfig("[notes]\nbackend = \"sqlite\"\n")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	store, err := openNotes(cfg, h.ProjectDir)
	if err != nil {
		t.Fatalf("openNotes: %v", err)
	}
	if err := store.AppendNote(context.Background(), "[2026-01-01 09:00:00] from sqlite"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	stdout, _, err := executeCommand(rootCmd, "notes")
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	if !strings.Contains(stdout, "from sqlite") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestOpenNotes_ResolvesRelativePaths(t *testing.T) {
	h := newCLIHarness(t)
	cfg := config.DefaultConfig()

	store, err := openNotes(cfg, h.ProjectDir)
	if err != nil {
		t.Fatalf("openNotes: %v", err)
	}
	defer store.Close()
	if store.Location() != h.NotesPath {
		t.Errorf("Location() = %q, want %q", store.Location(), h.NotesPath)
	}
}
