package daemon

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emty-pyie/Jane/internal/core"
)

type fakeHTTP struct {
	addr   chan string
	failed error
}

func (f *fakeHTTP) Serve(ctx context.Context, addr string) error {
	f.addr <- addr
	if f.failed != nil {
		return f.failed
	}
	<-ctx.Done()
	return nil
}

func TestRun_ServesAndCleansUp(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix socket tests not supported on windows")
	}
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "jane.sock")
	pidFile := filepath.Join(dir, "jane.pid")

	hub := NewEventHub()
	ctrl := core.NewController(core.ControllerConfig{
		Dispatcher: &stubDispatcher{},
		Listener:   hub,
		Logger:     log.New(io.Discard),
	})
	httpSrv := &fakeHTTP{addr: make(chan string, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			SocketPath: socketPath,
			PIDFile:    pidFile,
			HTTPAddr:   "127.0.0.1:0",
			HTTP:       httpSrv,
			Assistant:  ctrl,
			Hub:        hub,
			Logger:     log.New(io.Discard),
			Ready:      ready,
		})
	}()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not become ready")
	}

	raw, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if got := strings.TrimSpace(string(raw)); got != strconv.Itoa(os.Getpid()) {
		t.Fatalf("pid file = %q, want %d", got, os.Getpid())
	}

	select {
	case addr := <-httpSrv.addr:
		if addr != "127.0.0.1:0" {
			t.Fatalf("http addr = %q", addr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("http server not started")
	}

	client := NewIPCClient(socketPath)
	t.Cleanup(func() { _ = client.Close() })
	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	out, err := client.Submit(callCtx, "what time is it")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != core.OutcomeExecuted {
		t.Fatalf("status = %q, want executed", out.Status)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Fatalf("pid file not removed: %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Fatalf("socket not removed: %v", err)
	}
}

func TestRun_HTTPFailureStopsDaemon(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix socket tests not supported on windows")
	}
	boom := errors.New("bind failed")
	httpSrv := &fakeHTTP{addr: make(chan string, 1), failed: boom}

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(context.Background(), Options{
			SocketPath: filepath.Join(t.TempDir(), "jane.sock"),
			HTTPAddr:   "127.0.0.1:0",
			HTTP:       httpSrv,
			Logger:     log.New(io.Discard),
		})
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, boom) {
			t.Fatalf("Run error = %v, want %v", err, boom)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after http failure")
	}
}

func TestRun_TCPRequiresToken(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix socket tests not supported on windows")
	}
	socketPath := filepath.Join(t.TempDir(), "jane.sock")
	err := Run(context.Background(), Options{
		SocketPath: socketPath,
		TCP:        &TCPServerOptions{Addr: "127.0.0.1:0", RequireAuth: true},
		Logger:     log.New(io.Discard),
	})
	if err == nil || !strings.Contains(err.Error(), "no auth token") {
		t.Fatalf("expected auth token error, got %v", err)
	}
	if _, statErr := os.Stat(socketPath); !os.IsNotExist(statErr) {
		t.Fatalf("socket left behind: %v", statErr)
	}
}
