package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// CommandResult holds the result of running a command to completion.
type CommandResult struct {
	// ExitCode is the command's exit code.
	ExitCode int
	// Output is the combined stdout/stderr.
	Output string
	// Duration is the execution time.
	Duration time.Duration
}

// Launcher starts OS processes. Production code uses ExecLauncher; tests use
// testutil.MockLauncher.
type Launcher interface {
	// Start launches a process without waiting for it.
	Start(ctx context.Context, name string, args ...string) error
	// Run launches a process and waits for it to exit.
	Run(ctx context.Context, name string, args ...string) (*CommandResult, error)
	// LookPath reports where an executable is found on PATH.
	LookPath(name string) (string, error)
}

// ExecLauncher implements Launcher with os/exec.
type ExecLauncher struct {
	// Stream receives a copy of process output from Run. Nil discards it.
	Stream io.Writer
}

// Start launches name detached from the caller. The process is reaped in the
// background so it does not linger as a zombie.
func (l ExecLauncher) Start(_ context.Context, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Run executes name and captures combined output.
func (l ExecLauncher) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	startTime := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()

	var outputBuf bytes.Buffer
	writers := []io.Writer{&outputBuf}
	if l.Stream != nil {
		writers = append(writers, l.Stream)
	}
	multiWriter := io.MultiWriter(writers...)
	cmd.Stdout = multiWriter
	cmd.Stderr = multiWriter

	err := cmd.Run()
	duration := time.Since(startTime)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		} else {
			return nil, fmt.Errorf("running %s: %w", name, err)
		}
	}

	return &CommandResult{
		ExitCode: exitCode,
		Output:   outputBuf.String(),
		Duration: duration,
	}, nil
}

// LookPath wraps exec.LookPath.
func (l ExecLauncher) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// SplitCommandLine splits a command line such as "open -a Calculator" into argv.
func SplitCommandLine(line string) ([]string, error) {
	argv, err := shellwords.Parse(strings.TrimSpace(line))
	if err != nil {
		return nil, fmt.Errorf("parsing command line %q: %w", line, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command line")
	}
	return argv, nil
}

// StartLine splits line and starts it with l.
func StartLine(ctx context.Context, l Launcher, line string) error {
	argv, err := SplitCommandLine(line)
	if err != nil {
		return err
	}
	return l.Start(ctx, argv[0], argv[1:]...)
}
