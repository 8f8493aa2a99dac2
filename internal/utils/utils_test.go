package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSanitizeInput(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"open chrome", "open chrome"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"bell\x07 and del\x7f", "bell and del"},
		{"keeps\ttabs\nand newlines", "keeps\ttabs\nand newlines"},
		{"\x00nul", "nul"},
	}
	for _, tc := range cases {
		if got := SanitizeInput(tc.in); got != tc.want {
			t.Fatalf("SanitizeInput(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("  save note\n buy\tmilk \x1b[1m"); got != "save note buy milk" {
		t.Fatalf("SingleLine = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"unbounded", 0, "unbounded"},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("Truncate(%q, %d)=%q want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"unknown", log.InfoLevel},
	}

	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestInitLogger_WritesOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LoggerOptions{
		Level:  "debug",
		Output: &buf,
		Prefix: "test",
	})

	logger.Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected output to contain message; got %q", buf.String())
	}
}

func TestInitLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LoggerOptions{Level: "warn", Output: &buf})

	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level; got %q", buf.String())
	}
}

func TestInitDefaultLogger_RespectsEnvOverride(t *testing.T) {
	t.Setenv("JANE_LOG_LEVEL", "debug")
	logger := InitDefaultLogger("error")
	if logger.GetLevel() != log.DebugLevel {
		t.Fatalf("expected env to override level, got %v", logger.GetLevel())
	}
}

func TestInitDaemonLogger_CreatesLogFileUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	logger, closer, err := InitDaemonLogger("info")
	if err != nil {
		t.Fatalf("InitDaemonLogger: %v", err)
	}
	t.Cleanup(func() { _ = closer.Close() })
	logger.Info("daemon up")

	path := filepath.Join(home, ".jane", "daemon.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected daemon log file at %s: %v", path, err)
	}
	if !strings.Contains(string(data), "daemon up") {
		t.Fatalf("expected log line in file, got %q", data)
	}
}
