package daemon

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestDefaultPaths(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()

	sock := DefaultSocketPath(a)
	if !filepath.IsAbs(sock) || !strings.HasPrefix(sock, os.TempDir()) {
		t.Errorf("socket not under temp dir: %s", sock)
	}
	if !strings.HasPrefix(filepath.Base(sock), "jane-") || filepath.Ext(sock) != ".sock" {
		t.Errorf("unexpected socket name: %s", sock)
	}
	if DefaultSocketPath(a) != sock {
		t.Error("socket path is not stable for the same project")
	}
	if DefaultSocketPath(b) == sock {
		t.Error("different projects must not share a socket")
	}

	pid := DefaultPIDFile(a)
	if filepath.Ext(pid) != ".pid" || strings.TrimSuffix(pid, ".pid") != strings.TrimSuffix(sock, ".sock") {
		t.Errorf("pid file %s does not pair with socket %s", pid, sock)
	}
}

func TestHealth_String(t *testing.T) {
	tests := []struct {
		health   Health
		expected string
	}{
		{Running, "running"},
		{NotRunning, "not running"},
		{Unresponsive, "unresponsive"},
		{Health(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.health.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestProbe_NoPIDFile(t *testing.T) {
	t.Setenv(EnvHost, "")
	p := NewProbe("/nonexistent/jane.sock", "/nonexistent/jane.pid")

	r := p.Check(context.Background())
	if r.Health != NotRunning || r.Reachable() {
		t.Errorf("health = %s, want not running", r.Health)
	}
	if r.PIDFile != "/nonexistent/jane.pid" || r.Socket != "/nonexistent/jane.sock" {
		t.Errorf("paths not reported: %+v", r)
	}
	if r.Message == "" {
		t.Error("Message should not be empty")
	}
}

func TestProbe_StalePIDFile(t *testing.T) {
	t.Setenv(EnvHost, "")
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "test.pid")
	if err := os.WriteFile(pidFile, []byte("999999999"), 0644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	r := NewProbe(filepath.Join(dir, "test.sock"), pidFile).Check(context.Background())
	if r.Health != NotRunning || !strings.Contains(r.Message, "stale") {
		t.Errorf("report = %+v", r)
	}
}

func TestProbe_ProcessAliveNoSocket(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("signal 0 probing is unix only")
	}
	t.Setenv(EnvHost, "")
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "test.pid")
	if err := WritePIDFile(pidFile); err != nil {
		t.Fatalf("WritePIDFile: %v", err)
	}

	r := NewProbe(filepath.Join(dir, "nonexistent.sock"), pidFile).Check(context.Background())
	if r.Health != Unresponsive {
		t.Errorf("health = %s, want unresponsive", r.Health)
	}
}

// pendingAssistant reports a fixed queue length through the status RPC.
type pendingAssistant struct {
	Assistant
	pending int
}

func (a pendingAssistant) Pending() int { return a.pending }

func TestProbe_ReportsStatusFromDaemon(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix socket tests not supported on windows")
	}
	t.Setenv(EnvHost, "")
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "d.sock")
	pidFile := filepath.Join(dir, "d.pid")

	srv, err := NewIPCServer(socketPath, log.New(io.Discard), WithAssistant(pendingAssistant{pending: 2}))
	if err != nil {
		t.Fatalf("NewIPCServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = srv.Stop()
	})
	go func() { _ = srv.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)

	if err := WritePIDFile(pidFile); err != nil {
		t.Fatalf("WritePIDFile: %v", err)
	}

	p := NewProbe(socketPath, pidFile)
	if !p.Running(context.Background()) {
		t.Fatal("Running() = false for a serving daemon")
	}
	r := p.Check(context.Background())
	if r.Health != Running {
		t.Fatalf("report = %+v", r)
	}
	if r.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", r.PID, os.Getpid())
	}
	if r.Pending != 2 {
		t.Errorf("Pending = %d, want 2", r.Pending)
	}
	if r.Endpoint != "unix "+socketPath {
		t.Errorf("Endpoint = %q", r.Endpoint)
	}
	if r.StartedAt.IsZero() || !strings.Contains(r.Message, "2 pending") {
		t.Errorf("report = %+v", r)
	}
}

func TestWriteAndReadPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jane.pid")
	if err := WritePIDFile(path); err != nil {
		t.Fatalf("WritePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("pid file = %q", data)
	}
	pid, err := ReadPIDFile(path)
	if err != nil || pid != os.Getpid() {
		t.Errorf("ReadPIDFile = %d, %v", pid, err)
	}

	if err := os.WriteFile(path, []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPIDFile(path); err == nil {
		t.Error("expected error for garbage pid file")
	}
}
