package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SendDesktopNotification sends a best-effort desktop notification on the given platform.
func SendDesktopNotification(ctx context.Context, l Launcher, p Platform, title, message string) error {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" {
		title = "JANE"
	}
	if message == "" {
		return fmt.Errorf("message is required")
	}

	switch p {
	case Darwin:
		if _, err := l.LookPath("osascript"); err != nil {
			return fmt.Errorf("osascript not found")
		}
		script := fmt.Sprintf(
			`display notification "%s" with title "%s"`,
			escapeAppleScript(message),
			escapeAppleScript(title),
		)
		return runNoOutput(ctx, l, "osascript", "-e", script)
	case Linux:
		if _, err := l.LookPath("notify-send"); err != nil {
			return fmt.Errorf("notify-send not found")
		}
		return runNoOutput(ctx, l, "notify-send", title, message)
	case Windows:
		return errors.New("desktop notifications not implemented on windows")
	default:
		return fmt.Errorf("unsupported platform: %s", p)
	}
}

func runNoOutput(ctx context.Context, l Launcher, name string, args ...string) error {
	res, err := l.Run(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s failed: exit code %d (%s)", name, res.ExitCode, strings.TrimSpace(res.Output))
	}
	return nil
}
