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

	"github.com/emty-pyie/Jane/internal/core"
)

// ErrNotConnected is returned when a call is made before Connect.
var ErrNotConnected = errors.New("not connected to daemon")

// IPCClient speaks the daemon protocol over one connection. It dials
// JANE_HOST over TCP when set and falls back to the unix socket.
type IPCClient struct {
	socketPath string

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	nextID int
}

// NewIPCClient creates a client for the socket at socketPath.
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{socketPath: socketPath}
}

// Connect dials the daemon. It is a no-op when already connected.
func (c *IPCClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	if host := strings.TrimSpace(os.Getenv(EnvHost)); host != "" {
		conn, err := connectTCP(ctx, host, strings.TrimSpace(os.Getenv(EnvAuthToken)))
		if err == nil {
			c.setConn(conn)
			return nil
		}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("connect to daemon at %s: %w", c.socketPath, err)
	}
	c.setConn(conn)
	return nil
}

// connectTCP dials addr, sends the auth handshake and proves the session
// with a ping, since a rejected handshake only shows up as a closed
// connection.
func connectTCP(ctx context.Context, addr, token string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	hello, err := json.Marshal(map[string]string{"auth": token})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("marshal handshake: %w", err)
	}
	if _, err := conn.Write(append(hello, '\n')); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("write handshake: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	probe := &IPCClient{}
	probe.setConn(conn)
	if _, err := probe.roundTrip(pctx, MethodPing, nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}

func (c *IPCClient) setConn(conn net.Conn) {
	c.conn = conn
	c.reader = bufio.NewReader(conn)
}

// Endpoint returns "network addr" for the live connection, or "" when not
// connected.
func (c *IPCClient) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	addr := c.conn.RemoteAddr()
	return addr.Network() + " " + addr.String()
}

// Close closes the connection. It is safe to call more than once.
func (c *IPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// call sends one request on the existing connection.
func (c *IPCClient) call(method string, params any) (json.RawMessage, error) {
	return c.callContext(context.Background(), method, params)
}

func (c *IPCClient) callContext(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.roundTrip(ctx, method, params)
}

// roundTrip writes a request and reads its response. c.mu must be held or
// the client must not be shared.
func (c *IPCClient) roundTrip(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.nextID++
	req := RPCRequest{Method: method, ID: c.nextID}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = raw
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("write %s: %w", method, err)
	}
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
		ID     int             `json:"id"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal %s response: %w", method, err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// Call connects if needed, performs method and decodes the result into out
// when out is non-nil.
func (c *IPCClient) Call(ctx context.Context, method string, params, out any) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	raw, err := c.callContext(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Ping checks that the daemon answers.
func (c *IPCClient) Ping(ctx context.Context) error {
	var res struct {
		Pong bool `json:"pong"`
	}
	if err := c.Call(ctx, MethodPing, nil, &res); err != nil {
		return err
	}
	if !res.Pong {
		return fmt.Errorf("unexpected ping response")
	}
	return nil
}

// Status returns daemon status.
func (c *IPCClient) Status(ctx context.Context) (*StatusResult, error) {
	var res StatusResult
	if err := c.Call(ctx, MethodStatus, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Classify classifies text without acting on it.
func (c *IPCClient) Classify(ctx context.Context, text string) (*ClassifyResult, error) {
	var res ClassifyResult
	if err := c.Call(ctx, MethodClassify, TextParams{Text: text}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Submit sends text to the assistant and waits for the outcome.
func (c *IPCClient) Submit(ctx context.Context, text string) (*core.Outcome, error) {
	var res core.Outcome
	if err := c.Call(ctx, MethodSubmit, TextParams{Text: text}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Approve approves the oldest pending command and waits for it to run.
func (c *IPCClient) Approve(ctx context.Context) (*core.Outcome, error) {
	var res core.Outcome
	if err := c.Call(ctx, MethodApprove, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Deny drops the oldest pending command.
func (c *IPCClient) Deny(ctx context.Context) (*core.Outcome, error) {
	var res core.Outcome
	if err := c.Call(ctx, MethodDeny, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// State returns the pending queue and transcript.
func (c *IPCClient) State(ctx context.Context) (*core.StateView, error) {
	var res core.StateView
	if err := c.Call(ctx, MethodState, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Subscribe turns the connection into an event stream. The channel closes
// when ctx is done or the daemon goes away; the client cannot make further
// calls afterwards.
func (c *IPCClient) Subscribe(ctx context.Context) (<-chan Event, error) {
	if err := c.Call(ctx, MethodSubscribe, nil, nil); err != nil {
		return nil, err
	}

	c.mu.Lock()
	conn, reader := c.conn, c.reader
	c.mu.Unlock()
	_ = conn.SetDeadline(time.Time{})

	events := make(chan Event, subscriberBuffer)
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	go func() {
		defer close(events)
		defer stop()
		for {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				return
			}
			var ev Event
			if err := json.Unmarshal(line, &ev); err != nil {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// IsNothingPending reports whether err is the daemon's empty-queue error.
func IsNothingPending(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == ErrCodeNotFound
}
