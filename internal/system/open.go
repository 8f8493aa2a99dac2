package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidTarget is returned when a target cannot be handed to the OS opener.
var ErrInvalidTarget = errors.New("invalid open target")

// OpenURL hands target to the platform's default opener (browser, file
// association or app launcher) without waiting for it.
func OpenURL(ctx context.Context, l Launcher, p Platform, target string) error {
	target = strings.TrimSpace(target)
	if err := validateTarget(target); err != nil {
		return err
	}

	switch p {
	case Windows:
		return l.Start(ctx, "rundll32", "url.dll,FileProtocolHandler", target)
	case Darwin:
		return l.Start(ctx, "open", target)
	default:
		return l.Start(ctx, "xdg-open", target)
	}
}

func validateTarget(target string) error {
	if target == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTarget)
	}
	// A leading dash would be parsed as an option by the opener.
	if strings.HasPrefix(target, "-") {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	for _, r := range target {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: contains control characters", ErrInvalidTarget)
		}
	}
	return nil
}
