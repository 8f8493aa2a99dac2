// Package output formats command results as text, JSON or YAML.
// JSON and YAML keys are snake_case.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.yaml.in/yaml/v3"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a --output flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use text, json or yaml)", s)
	}
}

// ErrorPayload is the structured form of an error.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Writer handles formatted output.
type Writer struct {
	format Format
	out    io.Writer
	errOut io.Writer
}

// Option configures the Writer.
type Option func(*Writer)

// WithOutput sets the standard output writer.
func WithOutput(w io.Writer) Option {
	return func(wr *Writer) {
		wr.out = w
	}
}

// WithErrorOutput sets the error output writer.
func WithErrorOutput(w io.Writer) Option {
	return func(wr *Writer) {
		wr.errOut = w
	}
}

// New creates a new output writer.
func New(format Format, opts ...Option) *Writer {
	w := &Writer{
		format: format,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Format returns the configured format.
func (w *Writer) Format() Format {
	return w.format
}

// Structured reports whether output is machine-readable.
func (w *Writer) Structured() bool {
	return w.format == FormatJSON || w.format == FormatYAML
}

// Write outputs data in the configured format. Text mode prints data with %v.
func (w *Writer) Write(data any) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		b, err := marshalYAML(data)
		if err != nil {
			return err
		}
		_, err = w.out.Write(b)
		return err
	case FormatText:
		_, err := fmt.Fprintf(w.out, "%v\n", data)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
}

// WriteNDJSON outputs one compact JSON document per call in JSON mode.
// Used for streams such as notes --follow.
func (w *Writer) WriteNDJSON(data any) error {
	switch w.format {
	case FormatJSON:
		return json.NewEncoder(w.out).Encode(data)
	case FormatText:
		_, err := fmt.Fprintf(w.out, "%v\n", data)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
}

// Success outputs a success message.
func (w *Writer) Success(msg string) {
	if w.Structured() {
		_ = w.Write(map[string]any{"status": "success", "message": msg})
		return
	}
	fmt.Fprintf(w.errOut, "✓ %s\n", msg)
}

// Error outputs an error message.
func (w *Writer) Error(err error) {
	if w.Structured() {
		_ = w.Write(ErrorPayload{
			Error:   "error",
			Message: err.Error(),
			Details: map[string]any{"code": 1},
		})
		return
	}
	fmt.Fprintf(w.errOut, "✗ %s\n", err.Error())
}

// Table prints rows under headers as aligned text columns. Only the column
// gaps are drawn so piped output stays greppable.
func (w *Writer) Table(headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(true).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().PaddingRight(1)
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w.out, t.String())
	return err
}

// List prints one item per line.
func (w *Writer) List(items []string) error {
	for _, item := range items {
		if _, err := fmt.Fprintln(w.out, item); err != nil {
			return err
		}
	}
	return nil
}

// normalizeForYAML round-trips through JSON so YAML uses the json tags.
func normalizeForYAML(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var normalized any
	if err := dec.Decode(&normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func marshalYAML(v any) ([]byte, error) {
	normalized, err := normalizeForYAML(v)
	if err != nil {
		return nil, err
	}
	b, err := yaml.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || b[len(b)-1] != '\n' {
		b = append(b, '\n')
	}
	return b, nil
}
