package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Harness is a lightweight integration test environment.
//
// It provisions a temp project directory with a `.jane/` directory, points
// HOME at a temp dir so user config never leaks in, and keeps cleanup
// automatic via t.Cleanup.
type Harness struct {
	T          *testing.T
	ProjectDir string
	JaneDir    string
	HomeDir    string
	NotesPath  string
	DBPath     string
}

// NewHarness creates a harness. It calls t.Setenv, so the test must not be parallel.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	projectDir := t.TempDir()
	janeDir := filepath.Join(projectDir, ".jane")
	if err := os.MkdirAll(janeDir, 0750); err != nil {
		t.Fatalf("NewHarness: mkdir .jane: %v", err)
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	return &Harness{
		T:          t,
		ProjectDir: projectDir,
		JaneDir:    janeDir,
		HomeDir:    home,
		NotesPath:  filepath.Join(projectDir, "jane_notes.txt"),
		DBPath:     filepath.Join(janeDir, "notes.db"),
	}
}

// MustPath joins ProjectDir with parts, failing the test on error.
func (h *Harness) MustPath(parts ...string) string {
	h.T.Helper()
	if h == nil || h.ProjectDir == "" {
		h.T.Fatalf("Harness.MustPath: harness not initialized")
	}
	all := append([]string{h.ProjectDir}, parts...)
	return filepath.Join(all...)
}

// WriteFile writes a file relative to the project directory.
func (h *Harness) WriteFile(rel string, data []byte, perm os.FileMode) string {
	h.T.Helper()
	if strings.TrimSpace(rel) == "" {
		h.T.Fatalf("Harness.WriteFile: rel path is required")
	}
	abs := h.MustPath(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
		h.T.Fatalf("Harness.WriteFile: mkdir: %v", err)
	}
	if err := os.WriteFile(abs, data, perm); err != nil {
		h.T.Fatalf("Harness.WriteFile: write: %v", err)
	}
	return abs
}

// WriteProjectConfig writes .jane/config.toml and returns its path.
func (h *Harness) WriteProjectConfig(toml string) string {
	h.T.Helper()
	return h.WriteFile(filepath.Join(".jane", "config.toml"), []byte(toml), 0600)
}

func (h *Harness) String() string {
	if h == nil {
		return "Harness<nil>"
	}
	return fmt.Sprintf("Harness(project=%s, notes=%s)", h.ProjectDir, h.NotesPath)
}
