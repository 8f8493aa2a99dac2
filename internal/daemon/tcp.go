package daemon

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// TCPServerOptions configures the optional TCP listener for remote front ends.
type TCPServerOptions struct {
	Addr        string
	RequireAuth bool
	AllowedIPs  []string

	// AuthToken is the shared secret clients present in the handshake.
	AuthToken string

	// ValidateAuth overrides the AuthToken comparison.
	ValidateAuth func(ctx context.Context, token string) (bool, error)
}

// NewTCPServer starts a TCP listener speaking the same line-delimited JSON-RPC
// protocol as the unix socket, behind an auth handshake.
//
// Handshake: the client first sends one line {"auth":"<token>"}. When
// RequireAuth is set the token must validate; otherwise it may be empty.
func NewTCPServer(opts TCPServerOptions, logger *log.Logger, serverOpts ...ServerOption) (*IPCServer, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("tcp addr is required")
	}

	allowedNets, err := parseAllowedIPNets(opts.AllowedIPs)
	if err != nil {
		return nil, err
	}

	validate := opts.ValidateAuth
	if validate == nil && opts.AuthToken != "" {
		want := []byte(opts.AuthToken)
		validate = func(_ context.Context, token string) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(token), want) == 1, nil
		}
	}
	if opts.RequireAuth && validate == nil {
		return nil, fmt.Errorf("tcp auth required but no auth token configured")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
	}

	guard := func(conn net.Conn, scanner *bufio.Scanner) error {
		remoteIP, err := extractRemoteIP(conn.RemoteAddr())
		if err != nil {
			return err
		}
		if len(allowedNets) > 0 && !ipAllowed(remoteIP, allowedNets) {
			return fmt.Errorf("tcp client ip not allowed: %s", remoteIP.String())
		}

		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("handshake read error: %w", err)
			}
			return fmt.Errorf("handshake missing")
		}

		var hello struct {
			Auth string `json:"auth"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &hello); err != nil {
			return fmt.Errorf("invalid handshake: %w", err)
		}

		auth := strings.TrimSpace(hello.Auth)
		if opts.RequireAuth && auth == "" {
			return fmt.Errorf("auth required")
		}

		if auth != "" && validate != nil {
			vctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			ok, err := validate(vctx, auth)
			if err != nil {
				return fmt.Errorf("auth validation error: %w", err)
			}
			if !ok {
				return fmt.Errorf("invalid auth")
			}
		}

		return nil
	}

	return newIPCServer(ln, addr, logger, guard, serverOpts...), nil
}

func parseAllowedIPNets(values []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(values))
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			_, n, err := net.ParseCIDR(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid allowed ip cidr %q: %w", raw, err)
			}
			nets = append(nets, n)
			continue
		}

		ip := net.ParseIP(raw)
		if ip == nil {
			return nil, fmt.Errorf("invalid allowed ip %q", raw)
		}
		if ip.To4() != nil {
			ip4 := ip.To4()
			nets = append(nets, &net.IPNet{IP: ip4, Mask: net.CIDRMask(32, 32)})
		} else if ip16 := ip.To16(); ip16 != nil {
			nets = append(nets, &net.IPNet{IP: ip16, Mask: net.CIDRMask(128, 128)})
		} else {
			return nil, fmt.Errorf("invalid allowed ip %q", raw)
		}
	}
	return nets, nil
}

func extractRemoteIP(addr net.Addr) (net.IP, error) {
	if addr == nil {
		return nil, fmt.Errorf("missing remote address")
	}

	if tcp, ok := addr.(*net.TCPAddr); ok && tcp.IP != nil {
		return tcp.IP, nil
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		ip := net.ParseIP(addr.String())
		if ip == nil {
			return nil, fmt.Errorf("unable to parse remote ip: %s", addr.String())
		}
		return ip, nil
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("unable to parse remote ip: %s", host)
	}
	return ip, nil
}

func ipAllowed(ip net.IP, allowed []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, n := range allowed {
		if n != nil && n.Contains(ip) {
			return true
		}
	}
	return false
}
