package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/emty-pyie/Jane/internal/system"
)

// CommandCall records a single process launch.
type CommandCall struct {
	Name string
	Args []string
	// Waited is true for Run and false for Start.
	Waited bool
}

// Argv returns the call as a single argv slice.
func (c CommandCall) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// MockLauncher records and simulates process launches. It satisfies
// system.Launcher.
type MockLauncher struct {
	mu sync.Mutex

	// RecordedCalls contains all launches, in order.
	RecordedCalls []CommandCall

	// ExitCode and Output are returned by Run.
	ExitCode int
	Output   string

	// Err is returned by Start and Run.
	Err error

	// StartFunc, when set, decides the Start error per command.
	StartFunc func(name string, args []string) error

	// Available lists executables LookPath finds. Nil means every lookup succeeds.
	Available []string
}

// NewMockLauncher creates a launcher where every launch succeeds.
func NewMockLauncher() *MockLauncher {
	return &MockLauncher{}
}

// NewFailingLauncher creates a launcher where every launch fails with err.
func NewFailingLauncher(err error) *MockLauncher {
	return &MockLauncher{Err: err}
}

var _ system.Launcher = (*MockLauncher)(nil)

// Start records the call and returns the configured error.
func (m *MockLauncher) Start(_ context.Context, name string, args ...string) error {
	m.mu.Lock()
	m.RecordedCalls = append(m.RecordedCalls, CommandCall{Name: name, Args: args})
	fn := m.StartFunc
	err := m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(name, args)
	}
	return err
}

// Run records the call and returns the configured result.
func (m *MockLauncher) Run(ctx context.Context, name string, args ...string) (*system.CommandResult, error) {
	m.mu.Lock()
	m.RecordedCalls = append(m.RecordedCalls, CommandCall{Name: name, Args: args, Waited: true})
	exit, out, err := m.ExitCode, m.Output, m.Err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return &system.CommandResult{ExitCode: exit, Output: out}, nil
}

// LookPath succeeds for executables listed in Available.
func (m *MockLauncher) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Available == nil || slices.Contains(m.Available, name) {
		return "/usr/bin/" + name, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

// Calls returns a copy of the recorded calls.
func (m *MockLauncher) Calls() []CommandCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.RecordedCalls)
}

// CallCount returns the number of recorded calls.
func (m *MockLauncher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RecordedCalls)
}

// LastCall returns the most recent call, or nil if none.
func (m *MockLauncher) LastCall() *CommandCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.RecordedCalls) == 0 {
		return nil
	}
	call := m.RecordedCalls[len(m.RecordedCalls)-1]
	return &call
}

// WasCalled returns true if any process was launched.
func (m *MockLauncher) WasCalled() bool {
	return m.CallCount() > 0
}

// WasCalledWith returns true if the specified command was launched.
func (m *MockLauncher) WasCalledWith(name string, args ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.RecordedCalls {
		if call.Name == name && slices.Equal(call.Args, args) {
			return true
		}
	}
	return false
}

// Reset clears all recorded calls.
func (m *MockLauncher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordedCalls = nil
}
