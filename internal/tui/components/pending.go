// Package components provides reusable TUI components for JANE.
package components

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/emty-pyie/Jane/internal/core"
	"github.com/emty-pyie/Jane/internal/tui/styles"
	"github.com/emty-pyie/Jane/internal/tui/theme"
	"github.com/emty-pyie/Jane/internal/utils"
)

// PendingCard renders the head of the approval queue.
type PendingCard struct {
	Command  core.CommandView
	Queued   int // total commands waiting, including this one
	MaxWidth int
}

// NewPendingCard creates a card for cmd.
func NewPendingCard(cmd core.CommandView, queued int) *PendingCard {
	return &PendingCard{Command: cmd, Queued: queued, MaxWidth: 80}
}

// WithMaxWidth sets the maximum width.
func (c *PendingCard) WithMaxWidth(width int) *PendingCard {
	c.MaxWidth = width
	return c
}

// Render renders the card.
func (c *PendingCard) Render() string {
	t := theme.Current
	s := styles.New()

	raw := utils.SingleLine(c.Command.Raw)
	if c.MaxWidth > 8 {
		raw = utils.Truncate(raw, c.MaxWidth-8)
	}

	risk := core.RiskNormal
	if c.Command.HighRisk {
		risk = core.RiskHigh
	}

	header := s.RiskBadge(risk) + " " + s.Bold.Render(string(c.Command.Action))
	if c.Queued > 1 {
		header += s.Dimmed.Render(fmt.Sprintf("  (1 of %d waiting)", c.Queued))
	}

	lines := []string{
		header,
		lipgloss.NewStyle().Foreground(t.Green).Render(raw),
	}
	if params := formatParams(c.Command.Params); params != "" {
		lines = append(lines, s.Dimmed.Render(params))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.RiskColor(risk)).
		Padding(0, 1)
	if c.MaxWidth > 0 {
		box = box.MaxWidth(c.MaxWidth)
	}
	return box.Render(strings.Join(lines, "\n"))
}

// RenderCompact renders a one-line summary for the queue list.
func (c *PendingCard) RenderCompact() string {
	s := styles.New()
	raw := utils.Truncate(utils.SingleLine(c.Command.Raw), 40)
	return s.Dimmed.Render(string(c.Command.Action)+": ") + s.Normal.Render(raw)
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := slices.Sorted(maps.Keys(params))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(parts, " ")
}
