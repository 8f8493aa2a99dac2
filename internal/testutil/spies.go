package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// SpeakerSpy records every utterance. It satisfies core.Speaker.
type SpeakerSpy struct {
	mu    sync.Mutex
	lines []string
}

// Say records text.
func (s *SpeakerSpy) Say(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

// Lines returns a copy of everything said, in order.
func (s *SpeakerSpy) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

// CountPrefix returns how many utterances start with prefix.
func (s *SpeakerSpy) CountPrefix(prefix string) int {
	n := 0
	for _, l := range s.Lines() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

// NoteSpy records appended notes. It satisfies core.NoteSink.
type NoteSpy struct {
	// Err, when set, is returned by AppendNote and nothing is recorded.
	Err error

	mu    sync.Mutex
	lines []string
}

// AppendNote records line.
func (n *NoteSpy) AppendNote(_ context.Context, line string) error {
	if n.Err != nil {
		return n.Err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lines = append(n.lines, line)
	return nil
}

// Location returns a fixed name.
func (n *NoteSpy) Location() string { return "jane_notes.txt" }

// Lines returns a copy of the recorded notes.
func (n *NoteSpy) Lines() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.lines)
}

// ChatStub is a canned chat backend. It satisfies core.ChatBackend.
type ChatStub struct {
	Configured bool
	Reply      string
	Err        error

	mu      sync.Mutex
	prompts []string
}

// Ready reports Configured.
func (c *ChatStub) Ready() bool { return c.Configured }

// Generate records prompt and returns the canned reply.
func (c *ChatStub) Generate(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return c.Reply, c.Err
}

// Prompts returns the prompts received.
func (c *ChatStub) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.prompts)
}
