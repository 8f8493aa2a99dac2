package daemon

import (
	"context"
	"fmt"
	"time"
)

// Health is the daemon's liveness as seen from a client.
type Health int

const (
	// Running means the daemon answered the status RPC.
	Running Health = iota
	// NotRunning means nothing answered and no live process owns the PID file.
	NotRunning
	// Unresponsive means the PID file names a live process that does not answer.
	Unresponsive
)

// String returns a human-readable health description.
func (h Health) String() string {
	switch h {
	case Running:
		return "running"
	case NotRunning:
		return "not running"
	case Unresponsive:
		return "unresponsive"
	default:
		return "unknown"
	}
}

const defaultProbeTimeout = 500 * time.Millisecond

// Report is what a Probe learned about the daemon.
type Report struct {
	Health  Health
	PID     int
	PIDFile string
	// Socket is the configured unix socket.
	Socket string
	// Endpoint is the connection that answered, e.g. "unix /tmp/jane-x.sock"
	// or "tcp 10.0.0.2:7777" when JANE_HOST is set.
	Endpoint string

	Pending     int
	Subscribers int
	Uptime      time.Duration
	StartedAt   time.Time

	Message string
}

// Reachable reports whether the daemon answered.
func (r Report) Reachable() bool { return r.Health == Running }

// Probe checks a daemon through its RPC endpoint and PID file.
type Probe struct {
	socket  string
	pidFile string
	timeout time.Duration
}

// NewProbe creates a probe for the daemon at socket. pidFile may be empty.
func NewProbe(socket, pidFile string) *Probe {
	return &Probe{socket: socket, pidFile: pidFile, timeout: defaultProbeTimeout}
}

// Running reports whether the daemon answers the status RPC.
func (p *Probe) Running(ctx context.Context) bool {
	return p.Check(ctx).Reachable()
}

// Check asks the daemon for its status. When nothing answers, the PID file
// tells a stopped daemon from a hung one.
func (p *Probe) Check(ctx context.Context) Report {
	r := Report{PIDFile: p.pidFile, Socket: p.socket}
	if pid, err := ReadPIDFile(p.pidFile); err == nil {
		r.PID = pid
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	st, endpoint, err := p.status(cctx)
	if err == nil {
		r.Health = Running
		r.Endpoint = endpoint
		r.Pending = st.PendingCount
		r.Subscribers = st.Subscribers
		r.Uptime = time.Duration(st.UptimeSeconds) * time.Second
		r.StartedAt = st.StartedAt
		r.Message = fmt.Sprintf("JANE is up %s with %d pending high-risk command(s)", r.Uptime, r.Pending)
		return r
	}

	switch {
	case r.PID == 0:
		r.Health = NotRunning
		r.Message = fmt.Sprintf("No daemon answering at %s", p.socket)
	case !processAlive(r.PID):
		r.Health = NotRunning
		r.Message = fmt.Sprintf("Process %d is not running (stale PID file)", r.PID)
	default:
		r.Health = Unresponsive
		r.Message = fmt.Sprintf("Process %d exists but does not answer: %v", r.PID, err)
	}
	return r
}

func (p *Probe) status(ctx context.Context) (*StatusResult, string, error) {
	client := NewIPCClient(p.socket)
	if err := client.Connect(ctx); err != nil {
		return nil, "", err
	}
	defer client.Close()
	st, err := client.Status(ctx)
	if err != nil {
		return nil, "", err
	}
	return st, client.Endpoint(), nil
}
