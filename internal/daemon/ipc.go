package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emty-pyie/Jane/internal/core"
)

// Assistant is the part of *core.Controller the server drives.
type Assistant interface {
	Explain(text string) (core.Command, string)
	Process(ctx context.Context, text string) (core.Outcome, error)
	ApproveAndWait(ctx context.Context) (core.Outcome, error)
	DenyOutcome(ctx context.Context) (core.Outcome, error)
	Snapshot() core.Snapshot
	Pending() int
}

// maxLineBytes bounds one request line.
const maxLineBytes = 1 << 20

// ServerOption configures an IPCServer.
type ServerOption func(*IPCServer)

// WithAssistant attaches the controller the RPC methods act on.
func WithAssistant(a Assistant) ServerOption {
	return func(s *IPCServer) {
		s.assistant = a
	}
}

// WithEventHub sets the hub subscribers attach to.
func WithEventHub(h *EventHub) ServerOption {
	return func(s *IPCServer) {
		s.hub = h
	}
}

// WithRequestTimeout bounds how long submit and approve wait for a result.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *IPCServer) {
		s.requestTimeout = d
	}
}

// connGuard runs before a connection may issue requests.
type connGuard func(conn net.Conn, scanner *bufio.Scanner) error

// IPCServer serves line-delimited JSON-RPC over a listener.
type IPCServer struct {
	listener       net.Listener
	addr           string
	socketPath     string
	logger         *log.Logger
	guard          connGuard
	assistant      Assistant
	hub            *EventHub
	requestTimeout time.Duration
	startTime      time.Time

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	stopped bool
	cancel  context.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// NewIPCServer listens on a unix socket at socketPath. A stale socket file is
// removed first and the new socket is restricted to the owner.
func NewIPCServer(socketPath string, logger *log.Logger, opts ...ServerOption) (*IPCServer, error) {
	if strings.TrimSpace(socketPath) == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	s := newIPCServer(ln, socketPath, logger, nil, opts...)
	s.socketPath = socketPath
	return s, nil
}

func newIPCServer(ln net.Listener, addr string, logger *log.Logger, guard connGuard, opts ...ServerOption) *IPCServer {
	if logger == nil {
		logger = log.Default()
	}
	s := &IPCServer{
		listener:       ln,
		addr:           addr,
		logger:         logger.WithPrefix("ipc"),
		guard:          guard,
		requestTimeout: 2 * time.Minute,
		startTime:      time.Now(),
		conns:          make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewEventHub()
	}
	return s
}

// Addr returns the listening address.
func (s *IPCServer) Addr() string {
	return s.listener.Addr().String()
}

// Start accepts connections until ctx is done or Stop is called.
func (s *IPCServer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	s.logger.Info("listening", "addr", s.addr)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isStopped() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(ctx, conn)
		}()
	}
}

// Stop closes the listener and every connection and removes the socket file.
func (s *IPCServer) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()

		s.stopErr = s.listener.Close()
		if errors.Is(s.stopErr, net.ErrClosed) {
			s.stopErr = nil
		}
		s.wg.Wait()
		if s.socketPath != "" {
			_ = os.Remove(s.socketPath)
		}
	})
	return s.stopErr
}

func (s *IPCServer) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *IPCServer) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *IPCServer) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = c.Close()
}

func (s *IPCServer) handleConn(ctx context.Context, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if s.guard != nil {
		if err := s.guard(conn, scanner); err != nil {
			s.logger.Warn("connection rejected", "remote", conn.RemoteAddr(), "error", err)
			return
		}
	}

	enc := json.NewEncoder(conn)
	for scanner.Scan() {
		var req RPCRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			_ = enc.Encode(&RPCResponse{Error: &RPCError{Code: ErrCodeParse, Message: "parse error: " + err.Error()}})
			continue
		}
		if req.Method == MethodSubscribe {
			s.streamEvents(ctx, conn, enc, req.ID)
			return
		}
		if err := enc.Encode(s.dispatch(ctx, req)); err != nil {
			return
		}
	}
}

// streamEvents acknowledges a subscribe request and then writes one Event
// per line until the client goes away.
func (s *IPCServer) streamEvents(ctx context.Context, conn net.Conn, enc *json.Encoder, id int) {
	events, leave := s.hub.Subscribe()
	defer leave()

	if err := enc.Encode(&RPCResponse{ID: id, Result: map[string]any{"subscribed": true}}); err != nil {
		return
	}

	// Reading until EOF notices a closed client.
	gone := make(chan struct{})
	go func() {
		buf := make([]byte, 256)
		for {
			if _, err := conn.Read(buf); err != nil {
				close(gone)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
		}
	}
}

func (s *IPCServer) dispatch(ctx context.Context, req RPCRequest) *RPCResponse {
	resp := &RPCResponse{ID: req.ID}
	switch req.Method {
	case MethodPing:
		resp.Result = map[string]any{"pong": true}
		return resp
	case MethodStatus:
		resp.Result = s.status()
		return resp
	case MethodClassify, MethodSubmit, MethodApprove, MethodDeny, MethodState:
	default:
		resp.Error = &RPCError{Code: ErrCodeMethodNotFound, Message: "method not found: " + req.Method}
		return resp
	}

	if s.assistant == nil {
		resp.Error = &RPCError{Code: ErrCodeUnavailable, Message: "assistant not attached"}
		return resp
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	var (
		result any
		err    error
	)
	switch req.Method {
	case MethodClassify:
		var p TextParams
		if rpcErr := decodeParams(req.Params, &p); rpcErr != nil {
			resp.Error = rpcErr
			return resp
		}
		cmd, rule := s.assistant.Explain(p.Text)
		result = ClassifyResult{Command: cmd.View(), Rule: rule}
	case MethodSubmit:
		var p TextParams
		if rpcErr := decodeParams(req.Params, &p); rpcErr != nil {
			resp.Error = rpcErr
			return resp
		}
		result, err = s.assistant.Process(reqCtx, p.Text)
	case MethodApprove:
		result, err = s.assistant.ApproveAndWait(reqCtx)
	case MethodDeny:
		result, err = s.assistant.DenyOutcome(reqCtx)
	case MethodState:
		result = s.assistant.Snapshot().View()
	}

	switch {
	case err == nil:
		resp.Result = result
	case core.IsNothingPending(err):
		resp.Error = &RPCError{Code: ErrCodeNotFound, Message: core.MsgNothingPending}
	default:
		s.logger.Warn("request failed", "method", req.Method, "error", err)
		resp.Error = &RPCError{Code: ErrCodeInternal, Message: err.Error()}
	}
	return resp
}

func (s *IPCServer) status() StatusResult {
	st := StatusResult{
		Subscribers:   s.hub.Len(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		StartedAt:     s.startTime.UTC(),
		Assistant:     s.assistant != nil,
	}
	if s.assistant != nil {
		st.PendingCount = s.assistant.Pending()
	}
	return st
}

func decodeParams(raw json.RawMessage, dst *TextParams) *RPCError {
	if len(raw) == 0 {
		return &RPCError{Code: ErrCodeInvalidParams, Message: "params are required"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &RPCError{Code: ErrCodeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}
