package core

import (
	"context"
	"errors"
)

// OutcomeStatus is the front-end facing result of a request.
type OutcomeStatus string

const (
	OutcomeIgnored  OutcomeStatus = "ignored"
	OutcomeQueued   OutcomeStatus = "queued"
	OutcomeExecuted OutcomeStatus = "executed"
	OutcomeFailed   OutcomeStatus = "failed"
	OutcomeDenied   OutcomeStatus = "denied"
)

// AssistantName is reported in state snapshots and boot lines.
const AssistantName = "JANE"

// Messages returned alongside non-executed outcomes.
const (
	MsgEmptyCommand     = "Empty command."
	MsgAwaitingApproval = "High-risk command is waiting for approval."
	MsgNothingPending   = "No pending high-risk command."
)

// Boot writes the start-up line for surface ("" for the interactive
// assistant, "Web" for the dashboard) and speaks greeting.
func (c *Controller) Boot(surface, greeting string) {
	name := AssistantName
	if surface != "" {
		name += " " + surface
	}
	c.Log("[BOOT] " + name + " is online.")
	if greeting != "" {
		c.Say(greeting)
	}
}

// Outcome is what synchronous front ends (IPC, HTTP, CLI) report for one
// request.
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
	Parsed  *CommandView  `json:"parsed,omitempty"`
}

func outcomeOf(res ActionResult) OutcomeStatus {
	if res.OK {
		return OutcomeExecuted
	}
	return OutcomeFailed
}

// Process submits text and, when it was dispatched, waits for the result on
// the caller's goroutine. Giving up on ctx leaves the job running.
func (c *Controller) Process(ctx context.Context, text string) (Outcome, error) {
	sub, err := c.Submit(ctx, text)
	if err != nil {
		return Outcome{}, err
	}
	view := sub.Command.View()
	switch sub.Status {
	case SubmitIgnored:
		return Outcome{Status: OutcomeIgnored, Message: MsgEmptyCommand}, nil
	case SubmitQueued:
		return Outcome{Status: OutcomeQueued, Message: MsgAwaitingApproval, Parsed: &view}, nil
	}
	res, err := sub.Job.Wait(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: outcomeOf(res), Message: res.Message, Parsed: &view}, nil
}

// ApproveAndWait approves the oldest pending command and waits for it.
func (c *Controller) ApproveAndWait(ctx context.Context) (Outcome, error) {
	job, err := c.Approve(ctx)
	if err != nil {
		return Outcome{}, err
	}
	res, err := job.Wait(ctx)
	if err != nil {
		return Outcome{}, err
	}
	view := job.Command.View()
	return Outcome{Status: outcomeOf(res), Message: res.Message, Parsed: &view}, nil
}

// DenyOutcome denies the oldest pending command.
func (c *Controller) DenyOutcome(ctx context.Context) (Outcome, error) {
	cmd, err := c.Deny(ctx)
	if err != nil {
		return Outcome{}, err
	}
	view := cmd.View()
	return Outcome{Status: OutcomeDenied, Message: "Denied: " + cmd.Raw, Parsed: &view}, nil
}

// IsNothingPending reports whether err means the approval queue was empty.
func IsNothingPending(err error) bool {
	return errors.Is(err, ErrNothingPending)
}

// StateView is the serializable form of a Snapshot.
type StateView struct {
	Name    string        `json:"name"`
	Pending []CommandView `json:"pending"`
	Logs    []string      `json:"logs"`
}

// View returns the serializable form of s.
func (s Snapshot) View() StateView {
	pending := make([]CommandView, len(s.Pending))
	for i, cmd := range s.Pending {
		pending[i] = cmd.View()
	}
	logs := s.Log
	if logs == nil {
		logs = []string{}
	}
	return StateView{Name: AssistantName, Pending: pending, Logs: logs}
}

// MultiListener fans events out to every listener in order.
type MultiListener []Listener

func (m MultiListener) OnApprovalRequired(cmd Command) {
	for _, l := range m {
		l.OnApprovalRequired(cmd)
	}
}

func (m MultiListener) OnResult(cmd Command, res ActionResult) {
	for _, l := range m {
		l.OnResult(cmd, res)
	}
}

func (m MultiListener) OnDenied(cmd Command) {
	for _, l := range m {
		l.OnDenied(cmd)
	}
}
