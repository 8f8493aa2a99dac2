// Package speech voices assistant output through an external TTS command.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/emty-pyie/Jane/internal/system"
)

// ErrQueueClosed is returned by Close when called twice.
var ErrQueueClosed = errors.New("speech queue closed")

// Backend speaks one utterance and returns when it is done.
type Backend interface {
	Speak(ctx context.Context, text string) error
}

// CommandSpeaker runs a TTS command line for each utterance. The text
// replaces a "{text}" placeholder, or is appended as the last argument.
type CommandSpeaker struct {
	argv     []string
	launcher system.Launcher
}

// NewCommandSpeaker parses line (for example `espeak -s 160`).
func NewCommandSpeaker(line string, l system.Launcher) (*CommandSpeaker, error) {
	argv, err := system.SplitCommandLine(line)
	if err != nil {
		return nil, fmt.Errorf("tts command: %w", err)
	}
	if l == nil {
		l = system.ExecLauncher{}
	}
	return &CommandSpeaker{argv: argv, launcher: l}, nil
}

// DefaultCommand returns the TTS command line used when speech is enabled
// without an explicit tts_command, or "" when the platform has none.
func DefaultCommand(p system.Platform) string {
	switch p {
	case system.Darwin:
		return "say"
	case system.Linux:
		return "espeak"
	case system.Windows:
		return `powershell -NoProfile -Command "Add-Type -AssemblyName System.Speech; (New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak('{text}')"`
	default:
		return ""
	}
}

// Speak runs the TTS command and waits for it.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	args := make([]string, 0, len(s.argv))
	substituted := false
	for _, a := range s.argv[1:] {
		if strings.Contains(a, "{text}") {
			a = strings.ReplaceAll(a, "{text}", text)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, text)
	}

	res, err := s.launcher.Run(ctx, s.argv[0], args...)
	if err != nil {
		return fmt.Errorf("tts: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("tts: %s exited with code %d", s.argv[0], res.ExitCode)
	}
	return nil
}

// Queue serializes utterances onto one goroutine so Say never blocks the
// caller. It implements core.Speaker.
type Queue struct {
	backend Backend
	logger  *log.Logger

	mu     sync.Mutex
	items  chan string
	closed bool
	done   chan struct{}
}

// DefaultQueueSize bounds the number of utterances waiting to be spoken.
const DefaultQueueSize = 64

// NewQueue starts a queue feeding backend.
func NewQueue(backend Backend, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	q := &Queue{
		backend: backend,
		logger:  logger.WithPrefix("speech"),
		items:   make(chan string, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	go q.loop()
	return q
}

// Say enqueues text. When the queue is full or closed the utterance is
// dropped and logged.
func (q *Queue) Say(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.items <- text:
	default:
		q.logger.Warn("speech queue full, dropping utterance", "text", text)
	}
}

// Close stops accepting utterances and waits for queued ones to be spoken,
// or for ctx.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) loop() {
	defer close(q.done)
	for text := range q.items {
		if err := q.backend.Speak(context.Background(), text); err != nil {
			q.logger.Warn("TTS failed", "error", err)
		}
	}
}
