package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/emty-pyie/Jane/internal/core"
	"github.com/emty-pyie/Jane/internal/tui/theme"
	"golang.org/x/term"
)

// helpStyles are derived from the active TUI theme.
type helpStyles struct {
	title   lipgloss.Style
	section lipgloss.Style
	command lipgloss.Style
	flag    lipgloss.Style
	high    lipgloss.Style
	normal  lipgloss.Style
	muted   lipgloss.Style
	box     lipgloss.Style
}

func newHelpStyles(t *theme.Theme) helpStyles {
	return helpStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(t.Accent).MarginBottom(1),
		section: lipgloss.NewStyle().Bold(true).Foreground(t.Blue).MarginTop(1),
		command: lipgloss.NewStyle().Foreground(t.Green),
		flag:    lipgloss.NewStyle().Foreground(t.Yellow),
		high:    lipgloss.NewStyle().Bold(true).Foreground(t.Red),
		normal:  lipgloss.NewStyle().Foreground(t.Green),
		muted:   lipgloss.NewStyle().Foreground(t.Overlay),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Blue).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1),
	}
}

func showQuickReference(w io.Writer) {
	fmt.Fprintln(w, renderQuickReference(clampWidth(detectWidth()), supportsUnicode()))
}

func renderQuickReference(width int, useUnicode bool) string {
	s := newHelpStyles(theme.Current)

	border := lipgloss.RoundedBorder()
	if !useUnicode {
		border = lipgloss.Border{
			Top:         "-",
			Bottom:      "-",
			Left:        "|",
			Right:       "|",
			TopLeft:     "+",
			TopRight:    "+",
			BottomLeft:  "+",
			BottomRight: "+",
		}
	}
	container := s.box.Border(border).Width(width)

	titleText := "JANE QUICK REFERENCE - ask first, act after"
	title := s.title.Width(width - 4).Align(lipgloss.Center).Render(titleText)

	talk := renderSection(s, useUnicode, "💬 TALK TO JANE", []string{
		s.bullet("jane run", "interactive assistant (grant: ctrl+g, deny: ctrl+x)"),
		s.bullet("jane run --wake", "every line must start with the wake word"),
		s.bullet("jane classify \"shutdown the computer\"", "see what a command would do"),
		s.bullet("jane wake \"hey jane what time is it\"", "strip the wake word from a transcript"),
	})

	daemonSection := renderSection(s, useUnicode, "🛰 DAEMON", []string{
		s.bullet("jane daemon start", "serve the socket, TCP and HTTP front ends"),
		s.bullet("jane submit \"open youtube\" -j", "send a command to the daemon"),
		s.bullet("jane pending", "list high-risk commands waiting"),
		s.bullet("jane approve | jane deny", "decide the oldest waiting command"),
		s.bullet("jane pending --watch", "stream approval events"),
	})

	setup := renderSection(s, useUnicode, "🔧 SETUP", []string{
		s.bullet("jane config", "show merged settings"),
		s.bullet("jane config set assistant.speak_enabled true", "voice replies"),
		s.bullet("jane config set notes.backend sqlite", "keep notes in SQLite"),
		s.bullet("jane notes --follow", "watch notes as they are saved"),
	})

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		talk,
		daemonSection,
		setup,
		riskLegend(s, useUnicode),
		flagLegend(s, useUnicode),
		s.muted.Render("HELP: jane <command> --help"),
	)
	return container.Render(content)
}

func (s helpStyles) bullet(command, desc string) string {
	return s.command.Render("  "+command) + s.muted.Render("  "+desc)
}

func clampWidth(w int) int {
	if w < 72 {
		return 72
	}
	if w > 100 {
		return 100
	}
	return w
}

func detectWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	// fall back to environment or default
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if v, err := strconv.Atoi(cols); err == nil && v > 0 {
			return v
		}
	}
	return 80
}

func supportsUnicode() bool {
	termEnv := strings.ToLower(os.Getenv("TERM"))
	locale := strings.ToLower(strings.Join([]string{
		os.Getenv("LC_ALL"),
		os.Getenv("LC_CTYPE"),
		os.Getenv("LANG"),
	}, " "))
	if strings.Contains(termEnv, "dumb") {
		return false
	}
	return strings.Contains(locale, "utf-8") || strings.Contains(locale, "utf8")
}

func renderSection(s helpStyles, useUnicode bool, title string, lines []string) string {
	if !useUnicode {
		// strip the leading icon for ASCII terminals
		if _, rest, ok := strings.Cut(title, " "); ok {
			title = rest
		}
	}
	header := s.section.Render(title)
	body := strings.Join(lines, "\n")
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func riskLegend(s helpStyles, useUnicode bool) string {
	names := make([]string, 0, len(core.HighRiskActions()))
	for _, a := range core.HighRiskActions() {
		names = append(names, string(a))
	}
	high := "HIGH (approval): " + strings.Join(names, ", ")
	normal := "NORMAL: runs immediately"
	if useUnicode {
		high = "🔴 " + high
		normal = "🟢 " + normal
	}
	heading := "🎯 RISK"
	if !useUnicode {
		heading = "RISK"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		s.section.Render(heading),
		"  "+s.high.Render(high),
		"  "+s.normal.Render(normal),
	)
}

func flagLegend(s helpStyles, useUnicode bool) string {
	prefix := "🚩 GLOBAL FLAGS"
	if !useUnicode {
		prefix = "FLAGS"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		s.section.Render(prefix),
		s.flag.Render("  -j, --json")+s.muted.Render("              structured output"),
		s.flag.Render("  -o, --output <fmt>")+s.muted.Render("      text, json or yaml"),
		s.flag.Render("  -C, --project <dir>")+s.muted.Render("     override project path"),
		s.flag.Render("  -c, --config <file>")+s.muted.Render("     config file"),
	)
}
