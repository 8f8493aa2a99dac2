// Package theme provides color schemes for the JANE terminal UI.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/emty-pyie/Jane/internal/core"
)

// Theme defines a color scheme for the TUI.
type Theme struct {
	Accent lipgloss.Color // Title, focused input
	Blue   lipgloss.Color // Section headers
	Green  lipgloss.Color // Executed, approved
	Yellow lipgloss.Color // Warnings, queued
	Red    lipgloss.Color // Failed, denied, high risk
	Peach  lipgloss.Color // Boot lines
	Pink   lipgloss.Color // Assistant speech

	Text    lipgloss.Color
	Subtext lipgloss.Color

	Surface lipgloss.Color // Panels
	Base    lipgloss.Color // Background
	Mantle  lipgloss.Color // Log background

	Overlay lipgloss.Color // Borders, disabled text

	Name   string
	IsDark bool
}

// FlavorName names a built-in theme.
type FlavorName string

const (
	FlavorJane  FlavorName = "jane"
	FlavorMocha FlavorName = "mocha"
	FlavorLatte FlavorName = "latte"
)

// Flavors lists every built-in theme name.
func Flavors() []FlavorName {
	return []FlavorName{FlavorJane, FlavorMocha, FlavorLatte}
}

// Current holds the active theme.
var Current = Jane()

// SetTheme sets the current theme by name. Unknown names select the default.
func SetTheme(flavor FlavorName) {
	switch FlavorName(strings.ToLower(string(flavor))) {
	case FlavorMocha:
		Current = Mocha()
	case FlavorLatte:
		Current = Latte()
	default:
		Current = Jane()
	}
}

// RiskColor returns the color for a risk level.
func (t *Theme) RiskColor(r core.RiskLevel) lipgloss.Color {
	if r == core.RiskHigh {
		return t.Red
	}
	return t.Green
}

// OutcomeColor returns the color for an outcome status.
func (t *Theme) OutcomeColor(s core.OutcomeStatus) lipgloss.Color {
	switch s {
	case core.OutcomeExecuted:
		return t.Green
	case core.OutcomeQueued:
		return t.Yellow
	case core.OutcomeFailed, core.OutcomeDenied:
		return t.Red
	default:
		return t.Subtext
	}
}

// OutcomeIcon returns the icon for an outcome status.
func OutcomeIcon(s core.OutcomeStatus) string {
	switch s {
	case core.OutcomeExecuted:
		return "✓"
	case core.OutcomeQueued:
		return "⏳"
	case core.OutcomeFailed:
		return "✗"
	case core.OutcomeDenied:
		return "⊘"
	default:
		return "·"
	}
}
