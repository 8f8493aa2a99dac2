package components

import (
	"strings"

	"github.com/emty-pyie/Jane/internal/tui/styles"
	"github.com/emty-pyie/Jane/internal/utils"
)

// Transcript renders the assistant log, newest line last.
type Transcript struct {
	Lines []string
	// Height keeps only the last Height lines when > 0.
	Height int
	// Width truncates each line when > 0.
	Width int
}

// NewTranscript creates a transcript for lines.
func NewTranscript(lines []string) *Transcript {
	return &Transcript{Lines: lines}
}

// WithSize bounds the rendered area.
func (t *Transcript) WithSize(width, height int) *Transcript {
	t.Width = width
	t.Height = height
	return t
}

// Visible returns the lines that fit, oldest first.
func (t *Transcript) Visible() []string {
	lines := t.Lines
	if t.Height > 0 && len(lines) > t.Height {
		lines = lines[len(lines)-t.Height:]
	}
	return lines
}

// Render renders the visible lines styled by their prefix.
func (t *Transcript) Render() string {
	s := styles.New()
	visible := t.Visible()
	out := make([]string, 0, len(visible))
	for _, line := range visible {
		line = utils.SingleLine(line)
		if t.Width > 0 {
			line = utils.Truncate(line, t.Width)
		}
		out = append(out, s.LogLine(line))
	}
	return strings.Join(out, "\n")
}
