// Package styles provides reusable lipgloss styles for the JANE TUI.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/emty-pyie/Jane/internal/core"
	"github.com/emty-pyie/Jane/internal/tui/theme"
)

// Styles contains all the styled lipgloss renderers.
type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	SectionHead lipgloss.Style

	Normal lipgloss.Style
	Dimmed lipgloss.Style
	Bold   lipgloss.Style

	// Transcript line styles, selected by line prefix.
	LogUser     lipgloss.Style
	LogAssist   lipgloss.Style
	LogBoot     lipgloss.Style
	LogApproved lipgloss.Style
	LogWarn     lipgloss.Style

	RiskHigh   lipgloss.Style
	RiskNormal lipgloss.Style

	Panel    lipgloss.Style
	LogPanel lipgloss.Style
	Input    lipgloss.Style

	ButtonGrant    lipgloss.Style
	ButtonDeny     lipgloss.Style
	ButtonDisabled lipgloss.Style

	Help lipgloss.Style
}

// New creates styles from the current theme.
func New() *Styles {
	return FromTheme(theme.Current)
}

// FromTheme creates styles from a specific theme.
func FromTheme(t *theme.Theme) *Styles {
	s := &Styles{}

	s.Title = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)

	s.Subtitle = lipgloss.NewStyle().
		Foreground(t.Subtext).
		Italic(true)

	s.SectionHead = lipgloss.NewStyle().
		Foreground(t.Blue).
		Bold(true)

	s.Normal = lipgloss.NewStyle().Foreground(t.Text)
	s.Dimmed = lipgloss.NewStyle().Foreground(t.Subtext)
	s.Bold = lipgloss.NewStyle().Foreground(t.Text).Bold(true)

	s.LogUser = lipgloss.NewStyle().Foreground(t.Text).Bold(true)
	s.LogAssist = lipgloss.NewStyle().Foreground(t.Pink)
	s.LogBoot = lipgloss.NewStyle().Foreground(t.Peach)
	s.LogApproved = lipgloss.NewStyle().Foreground(t.Green)
	s.LogWarn = lipgloss.NewStyle().Foreground(t.Yellow)

	badge := lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(t.Base)
	s.RiskHigh = badge.Background(t.Red)
	s.RiskNormal = badge.Background(t.Green)

	s.Panel = lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Overlay)

	s.LogPanel = lipgloss.NewStyle().
		Background(t.Mantle).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Overlay)

	s.Input = lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent)

	button := lipgloss.NewStyle().Padding(0, 2).Bold(true)
	s.ButtonGrant = button.Foreground(t.Base).Background(t.Green)
	s.ButtonDeny = button.Foreground(t.Base).Background(t.Red)
	s.ButtonDisabled = button.Foreground(t.Overlay).Background(t.Surface)

	s.Help = lipgloss.NewStyle().Foreground(t.Overlay)

	return s
}

// LogLine styles one transcript line by its prefix.
func (s *Styles) LogLine(line string) string {
	switch {
	case strings.HasPrefix(line, "You: "):
		return s.LogUser.Render(line)
	case strings.HasPrefix(line, "JANE: "):
		return s.LogAssist.Render(line)
	case strings.HasPrefix(line, "[BOOT]"):
		return s.LogBoot.Render(line)
	case strings.HasPrefix(line, "[APPROVED]"):
		return s.LogApproved.Render(line)
	case strings.HasPrefix(line, "[WARN]"):
		return s.LogWarn.Render(line)
	default:
		return s.Normal.Render(line)
	}
}

// RiskBadge renders a risk level as a badge.
func (s *Styles) RiskBadge(r core.RiskLevel) string {
	if r == core.RiskHigh {
		return s.RiskHigh.Render("HIGH RISK")
	}
	return s.RiskNormal.Render("normal")
}
