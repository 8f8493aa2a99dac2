package core

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// Controller errors.
var (
	ErrNothingPending   = errors.New("no pending high-risk command")
	ErrControllerClosed = errors.New("controller is closed")
)

// Dispatcher executes a classified command. *Executor implements it.
type Dispatcher interface {
	Execute(ctx context.Context, cmd Command) ActionResult
}

// Listener receives controller events. Callbacks run on controller or job
// goroutines and must not block.
type Listener interface {
	OnApprovalRequired(cmd Command)
	OnResult(cmd Command, result ActionResult)
	OnDenied(cmd Command)
}

// NopListener ignores all events.
type NopListener struct{}

func (NopListener) OnApprovalRequired(Command)     {}
func (NopListener) OnResult(Command, ActionResult) {}
func (NopListener) OnDenied(Command)               {}

// SubmitStatus is the outcome of Submit.
type SubmitStatus string

const (
	// SubmitIgnored means the text was blank.
	SubmitIgnored SubmitStatus = "ignored"
	// SubmitQueued means the command waits for approval.
	SubmitQueued SubmitStatus = "queued"
	// SubmitDispatched means the command is running.
	SubmitDispatched SubmitStatus = "dispatched"
)

// Submission reports what Submit did with the text.
type Submission struct {
	Status  SubmitStatus
	Command Command
	// Job is set when Status is SubmitDispatched.
	Job *Job
}

// Job is one dispatched command. It completes exactly once.
type Job struct {
	Command Command

	done   chan struct{}
	result ActionResult
}

func newJob(cmd Command) *Job {
	return &Job{Command: cmd, done: make(chan struct{})}
}

func (j *Job) finish(res ActionResult) {
	j.result = res
	close(j.done)
}

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result returns the result and true once the job has finished.
func (j *Job) Result() (ActionResult, bool) {
	select {
	case <-j.done:
		return j.result, true
	default:
		return ActionResult{}, false
	}
}

// Wait blocks until the job finishes or ctx is done. Giving up on the wait
// does not cancel the job.
func (j *Job) Wait(ctx context.Context) (ActionResult, error) {
	select {
	case <-j.done:
		return j.result, nil
	case <-ctx.Done():
		return ActionResult{}, ctx.Err()
	}
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Pending []Command
	Log     []string
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Classifier defaults to NewClassifier().
	Classifier *Classifier
	// Speaker voices assistant output. It should not block for long.
	Speaker Speaker
	// Listener defaults to NopListener.
	Listener Listener
	// Logger defaults to a discarding logger.
	Logger *log.Logger
	// HistorySize bounds the transcript log (default DefaultHistorySize).
	HistorySize int
	// ExecutorOptions configure the executor the controller builds. The
	// controller always installs its own speaker so countdowns are logged.
	ExecutorOptions []ExecutorOption
	// Dispatcher replaces the built executor when set.
	Dispatcher Dispatcher
}

// Controller owns the approval queue and the transcript log and decides
// whether a command runs now, waits for approval, or is dropped.
type Controller struct {
	classifier *Classifier
	dispatcher Dispatcher
	speaker    Speaker
	listener   Listener
	logger     *log.Logger

	mu      sync.Mutex
	queue   ApprovalQueue
	history *History
	closed  bool

	jobs sync.WaitGroup
}

// NewController creates a controller.
func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		classifier: cfg.Classifier,
		speaker:    cfg.Speaker,
		listener:   cfg.Listener,
		logger:     cfg.Logger,
		history:    NewHistory(cfg.HistorySize),
	}
	if c.classifier == nil {
		c.classifier = NewClassifier()
	}
	if c.speaker == nil {
		c.speaker = SpeakerFunc(func(string) {})
	}
	if c.listener == nil {
		c.listener = NopListener{}
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	c.logger = c.logger.WithPrefix("controller")

	c.dispatcher = cfg.Dispatcher
	if c.dispatcher == nil {
		opts := slices.Concat(cfg.ExecutorOptions, []ExecutorOption{WithSpeaker(SpeakerFunc(c.Say))})
		c.dispatcher = NewExecutor(opts...)
	}
	return c
}

// Log appends a raw line to the transcript.
func (c *Controller) Log(line string) {
	c.mu.Lock()
	c.history.Append(line)
	c.mu.Unlock()
}

// Say logs text as assistant output and voices it.
func (c *Controller) Say(text string) {
	c.Log("JANE: " + text)
	c.speaker.Say(text)
}

// Classify classifies text without acting on it.
func (c *Controller) Classify(text string) Command {
	return c.classifier.Classify(text)
}

// Explain classifies text and names the rule that matched.
func (c *Controller) Explain(text string) (Command, string) {
	return c.classifier.Explain(text)
}

// Submit classifies text and acts on it: blank text is ignored, high-risk
// commands are queued for approval and everything else is dispatched.
func (c *Controller) Submit(ctx context.Context, text string) (Submission, error) {
	cmd := c.classifier.Classify(text)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Submission{}, ErrControllerClosed
	}
	c.history.Append("You: " + text)

	switch {
	case cmd.Action == ActionEmpty:
		c.mu.Unlock()
		return Submission{Status: SubmitIgnored, Command: cmd}, nil

	case cmd.HighRisk():
		c.queue.Enqueue(cmd)
		pending := c.queue.Len()
		c.mu.Unlock()

		c.logger.Info("queued for approval", "action", cmd.Action, "id", cmd.ID, "pending", pending)
		c.Say("High-risk command queued for approval: " + cmd.Raw)
		c.listener.OnApprovalRequired(cmd)
		return Submission{Status: SubmitQueued, Command: cmd}, nil

	default:
		job := c.startLocked(ctx, cmd)
		c.mu.Unlock()
		return Submission{Status: SubmitDispatched, Command: cmd, Job: job}, nil
	}
}

// Approve removes the oldest pending command and dispatches it.
func (c *Controller) Approve(ctx context.Context) (*Job, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrControllerClosed
	}
	cmd, ok := c.queue.Pop()
	if !ok {
		c.mu.Unlock()
		return nil, ErrNothingPending
	}
	c.history.Append("[APPROVED] " + cmd.Raw)
	job := c.startLocked(ctx, cmd)
	c.mu.Unlock()

	c.logger.Info("approved", "action", cmd.Action, "id", cmd.ID)
	return job, nil
}

// Deny removes the oldest pending command without running it.
func (c *Controller) Deny(context.Context) (Command, error) {
	c.mu.Lock()
	cmd, ok := c.queue.Pop()
	c.mu.Unlock()
	if !ok {
		return Command{}, ErrNothingPending
	}

	c.logger.Info("denied", "action", cmd.Action, "id", cmd.ID)
	c.Say("Denied: " + cmd.Raw)
	c.listener.OnDenied(cmd)
	return cmd, nil
}

// Pending returns the number of commands awaiting approval.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// Snapshot returns a consistent copy of the pending queue and the log.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Pending: c.queue.Snapshot(),
		Log:     c.history.Lines(),
	}
}

// Close stops accepting work and waits for running jobs or ctx.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startLocked starts cmd on its own goroutine. c.mu must be held so the job
// is counted before Close can observe the wait group.
func (c *Controller) startLocked(ctx context.Context, cmd Command) *Job {
	job := newJob(cmd)
	c.jobs.Add(1)

	// Jobs outlive the request that started them.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer c.jobs.Done()
		c.logger.Debug("dispatching", "action", cmd.Action, "id", cmd.ID)

		res := c.dispatcher.Execute(runCtx, cmd)
		if !res.OK {
			c.logger.Warn("action failed", "action", cmd.Action, "message", res.Message)
		}
		c.Say(res.Message)
		c.listener.OnResult(cmd, res)
		job.finish(res)
	}()
	return job
}
