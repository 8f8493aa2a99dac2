package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerOptions configures InitLogger.
type LoggerOptions struct {
	Level           string
	Output          io.Writer
	Prefix          string
	ReportTimestamp bool
}

// InitLogger builds a charmbracelet logger from opts. Output defaults to
// stderr.
func InitLogger(opts LoggerOptions) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return log.NewWithOptions(out, log.Options{
		Level:           parseLevel(opts.Level),
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.ReportTimestamp,
		TimeFormat:      time.Kitchen,
	})
}

// InitDefaultLogger builds the CLI logger. JANE_LOG_LEVEL overrides level.
func InitDefaultLogger(level string) *log.Logger {
	if env := os.Getenv("JANE_LOG_LEVEL"); env != "" {
		level = env
	}
	return InitLogger(LoggerOptions{Level: level, Prefix: "jane"})
}

// DaemonLogPath returns ~/.jane/daemon.log.
func DaemonLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".jane", "daemon.log"), nil
}

// InitDaemonLogger logs to stderr and appends to ~/.jane/daemon.log. The
// returned closer releases the file.
func InitDaemonLogger(level string) (*log.Logger, io.Closer, error) {
	path, err := DaemonLogPath()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open daemon log: %w", err)
	}
	logger := InitLogger(LoggerOptions{
		Level:           level,
		Output:          io.MultiWriter(os.Stderr, f),
		Prefix:          "jane",
		ReportTimestamp: true,
	})
	return logger, f, nil
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}
