package daemon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Environment variables that point clients at a TCP listener.
const (
	EnvHost      = "JANE_HOST"
	EnvAuthToken = "JANE_AUTH_TOKEN"
)

// projectKey is a short stable hash of the project directory, so two
// projects on one machine get separate daemons. An empty project means the
// working directory.
func projectKey(project string) string {
	if project == "" {
		if cwd, err := os.Getwd(); err == nil {
			project = cwd
		} else {
			project = "."
		}
	}
	if abs, err := filepath.Abs(project); err == nil {
		project = abs
	}
	sum := sha256.Sum256([]byte(project))
	return hex.EncodeToString(sum[:])[:12]
}

// DefaultSocketPath returns $TMPDIR/jane-{hash}.sock for project.
func DefaultSocketPath(project string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("jane-%s.sock", projectKey(project)))
}

// DefaultPIDFile returns $TMPDIR/jane-{hash}.pid for project.
func DefaultPIDFile(project string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("jane-%s.pid", projectKey(project)))
}

// WritePIDFile records the current process id at path.
func WritePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// ReadPIDFile returns the process id stored at path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in %s", path)
	}
	return pid, nil
}

// processAlive sends signal 0 to pid.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
