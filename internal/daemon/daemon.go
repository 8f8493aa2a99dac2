// Package daemon runs JANE as a long-lived process. Front ends talk to it
// over line-delimited JSON-RPC on a unix socket, optionally over TCP with a
// token handshake, and optionally over the HTTP dashboard API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// HTTPServer is served alongside the RPC listeners when HTTPAddr is set.
type HTTPServer interface {
	Serve(ctx context.Context, addr string) error
}

// Options configures Run.
type Options struct {
	SocketPath string
	// PIDFile is written on start and removed on exit when set.
	PIDFile string
	// TCP enables the remote listener when non-nil.
	TCP *TCPServerOptions

	HTTPAddr string
	HTTP     HTTPServer

	Assistant Assistant
	// Hub must be the Listener the controller publishes to for subscribers
	// to see events.
	Hub    *EventHub
	Logger *log.Logger

	// Ready is closed once every listener is bound.
	Ready chan<- struct{}
}

// Run serves until ctx is done or a listener fails, then stops every
// listener.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("daemon")
	if opts.SocketPath == "" {
		opts.SocketPath = DefaultSocketPath("")
	}
	if opts.Hub == nil {
		opts.Hub = NewEventHub()
	}

	serverOpts := []ServerOption{WithEventHub(opts.Hub)}
	if opts.Assistant != nil {
		serverOpts = append(serverOpts, WithAssistant(opts.Assistant))
	}

	if opts.PIDFile != "" {
		if err := WritePIDFile(opts.PIDFile); err != nil {
			return err
		}
		defer func() {
			if err := os.Remove(opts.PIDFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warn("remove pid file", "path", opts.PIDFile, "error", err)
			}
		}()
	}

	servers := make([]*IPCServer, 0, 2)
	ipc, err := NewIPCServer(opts.SocketPath, logger, serverOpts...)
	if err != nil {
		return err
	}
	servers = append(servers, ipc)

	if opts.TCP != nil && opts.TCP.Addr != "" {
		tcp, err := NewTCPServer(*opts.TCP, logger, serverOpts...)
		if err != nil {
			_ = ipc.Stop()
			return fmt.Errorf("start tcp listener: %w", err)
		}
		servers = append(servers, tcp)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}
	if opts.HTTP != nil && opts.HTTPAddr != "" {
		g.Go(func() error {
			if err := opts.HTTP.Serve(gctx, opts.HTTPAddr); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	logger.Info("started", "socket", opts.SocketPath, "pid", os.Getpid())
	if opts.Ready != nil {
		close(opts.Ready)
	}

	err = g.Wait()
	logger.Info("stopped")
	return err
}
