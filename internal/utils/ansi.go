// Package utils holds small helpers shared by the CLI and the TUI.
package utils

import (
	"regexp"
	"strings"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape codes from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// SanitizeInput removes ANSI codes and control characters other than
// newlines and tabs, so typed or piped text cannot repaint the terminal.
func SanitizeInput(s string) string {
	s = StripANSI(s)
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// SingleLine sanitizes s and folds line breaks into spaces.
func SingleLine(s string) string {
	s = SanitizeInput(s)
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most width runes, ending with "..." when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
