package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Elevation errors.
var (
	ErrElevationUnavailable = errors.New("admin tools unavailable")
	ErrElevationFailed      = errors.New("admin execution failed")
	ErrElevatedExit         = errors.New("admin command exited with error")
)

// ElevatedCommand describes a command to run with administrator privileges.
type ElevatedCommand struct {
	// Argv is the command and its arguments.
	Argv []string
	// Reason is a short human-readable description used in messages.
	Reason string
	// Wait blocks until the elevated command exits and checks its exit code.
	Wait bool
}

// Elevator runs commands through the host's privilege escalation mechanism:
// an administrator prompt on Windows, an AppleScript administrator prompt on
// macOS, and pkexec or sudo elsewhere.
type Elevator struct {
	launcher Launcher
	platform Platform
}

// NewElevator creates an elevator for the given platform.
func NewElevator(l Launcher, p Platform) *Elevator {
	if l == nil {
		l = ExecLauncher{}
	}
	return &Elevator{launcher: l, platform: p}
}

// Run executes cmd with elevation. On success it returns a human-readable
// message; every failure comes back as an error whose text is suitable for
// display.
func (e *Elevator) Run(ctx context.Context, cmd ElevatedCommand) (string, error) {
	if len(cmd.Argv) == 0 {
		return "", fmt.Errorf("%w for %s: empty command", ErrElevationFailed, cmd.Reason)
	}

	name, args, err := e.wrap(cmd)
	if err != nil {
		return "", err
	}

	if cmd.Wait {
		res, err := e.launcher.Run(ctx, name, args...)
		if err != nil {
			return "", fmt.Errorf("%w for %s: %v", ErrElevationFailed, cmd.Reason, err)
		}
		if res.ExitCode != 0 {
			return "", fmt.Errorf("%w: %s (exit code %d)", ErrElevatedExit, cmd.Reason, res.ExitCode)
		}
		return fmt.Sprintf("Admin command completed for: %s", cmd.Reason), nil
	}

	if err := e.launcher.Start(ctx, name, args...); err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrElevationFailed, cmd.Reason, err)
	}
	return fmt.Sprintf("Admin request launched for: %s", cmd.Reason), nil
}

// wrap returns the launcher invocation that runs cmd elevated.
func (e *Elevator) wrap(cmd ElevatedCommand) (string, []string, error) {
	switch e.platform {
	case Windows:
		cmdline := strings.ReplaceAll(JoinCommandLine(cmd.Argv), "'", "''")
		script := fmt.Sprintf("Start-Process cmd -Verb RunAs -ArgumentList '/c %s'", cmdline)
		if cmd.Wait {
			script += " -Wait"
		}
		return "powershell", []string{"-Command", script}, nil
	case Darwin:
		script := fmt.Sprintf(`do shell script "%s" with administrator privileges`, escapeAppleScript(JoinCommandLine(cmd.Argv)))
		return "osascript", []string{"-e", script}, nil
	default:
		for _, tool := range []string{"pkexec", "sudo"} {
			if _, err := e.launcher.LookPath(tool); err == nil {
				return tool, cmd.Argv, nil
			}
		}
		return "", nil, fmt.Errorf("%w for: %s", ErrElevationUnavailable, cmd.Reason)
	}
}

// JoinCommandLine quotes argv for a POSIX shell.
func JoinCommandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = shellQuote(a)
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("@%+=:,./-_", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
