package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestProcessOutcomes(t *testing.T) {
	d := &recordingDispatcher{}
	c := newTestController(t, ControllerConfig{Dispatcher: d})
	ctx := context.Background()

	out, err := c.Process(ctx, "   ")
	if err != nil {
		t.Fatalf("Process(blank): %v", err)
	}
	if out.Status != OutcomeIgnored || out.Message != MsgEmptyCommand || out.Parsed != nil {
		t.Fatalf("blank outcome = %+v", out)
	}

	out, err = c.Process(ctx, "what time is it")
	if err != nil {
		t.Fatalf("Process(time): %v", err)
	}
	if out.Status != OutcomeExecuted || out.Message != "done what time is it" {
		t.Fatalf("time outcome = %+v", out)
	}
	if out.Parsed == nil || out.Parsed.Action != ActionTellTime {
		t.Fatalf("parsed = %+v", out.Parsed)
	}

	out, err = c.Process(ctx, "shut down")
	if err != nil {
		t.Fatalf("Process(shutdown): %v", err)
	}
	if out.Status != OutcomeQueued || out.Message != MsgAwaitingApproval || !out.Parsed.HighRisk {
		t.Fatalf("shutdown outcome = %+v", out)
	}
	if len(d.Executed()) != 1 {
		t.Fatalf("queued command executed: %v", d.Executed())
	}
}

func TestProcessFailedResult(t *testing.T) {
	c := newTestController(t, ControllerConfig{Dispatcher: failingDispatcher{}})
	out, err := c.Process(context.Background(), "open youtube")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Status != OutcomeFailed || out.Message != "nope" {
		t.Fatalf("outcome = %+v", out)
	}
}

type failingDispatcher struct{}

func (failingDispatcher) Execute(context.Context, Command) ActionResult {
	return Failed("nope")
}

func TestApproveAndDenyOutcomes(t *testing.T) {
	d := &recordingDispatcher{}
	c := newTestController(t, ControllerConfig{Dispatcher: d})
	ctx := context.Background()

	if _, err := c.ApproveAndWait(ctx); !IsNothingPending(err) {
		t.Fatalf("ApproveAndWait on empty queue: %v", err)
	}
	if _, err := c.DenyOutcome(ctx); !IsNothingPending(err) {
		t.Fatalf("DenyOutcome on empty queue: %v", err)
	}

	for _, text := range []string{"shut down", "open settings theme"} {
		if _, err := c.Process(ctx, text); err != nil {
			t.Fatalf("Process(%q): %v", text, err)
		}
	}

	out, err := c.ApproveAndWait(ctx)
	if err != nil {
		t.Fatalf("ApproveAndWait: %v", err)
	}
	if out.Status != OutcomeExecuted || out.Parsed.Raw != "shut down" {
		t.Fatalf("approve outcome = %+v", out)
	}

	out, err = c.DenyOutcome(ctx)
	if err != nil {
		t.Fatalf("DenyOutcome: %v", err)
	}
	if out.Status != OutcomeDenied || out.Message != "Denied: open settings theme" {
		t.Fatalf("deny outcome = %+v", out)
	}
}

func TestProcessWaitGivesUpWithoutCancellingJob(t *testing.T) {
	d := &recordingDispatcher{block: make(chan struct{})}
	c := newTestController(t, ControllerConfig{Dispatcher: d})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Process(ctx, "what time is it"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Process err = %v, want deadline exceeded", err)
	}

	close(d.block)
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := c.Close(closeCtx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(d.Executed()) != 1 {
		t.Fatalf("job was not completed after the wait gave up")
	}
}

func TestSnapshotViewAndBoot(t *testing.T) {
	c := newTestController(t, ControllerConfig{Dispatcher: &recordingDispatcher{}})
	c.Boot("Web", "Hello, I am JANE. Ready on the web dashboard.")
	if _, err := c.Process(context.Background(), "shutdown"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	v := c.Snapshot().View()
	if v.Name != "JANE" {
		t.Fatalf("Name = %q", v.Name)
	}
	if len(v.Pending) != 1 || v.Pending[0].Action != ActionShutdownSystem {
		t.Fatalf("Pending = %+v", v.Pending)
	}
	if len(v.Logs) < 2 || v.Logs[0] != "[BOOT] JANE Web is online." || v.Logs[1] != "JANE: Hello, I am JANE. Ready on the web dashboard." {
		t.Fatalf("Logs = %q", v.Logs)
	}

	empty := Snapshot{}.View()
	if empty.Logs == nil || empty.Pending == nil {
		t.Fatal("empty view should serialize as empty arrays")
	}
}

func TestMultiListenerFansOut(t *testing.T) {
	a, b := &listenerSpy{}, &listenerSpy{}
	m := MultiListener{a, b}
	cmd := Classify("shutdown")
	m.OnApprovalRequired(cmd)
	m.OnResult(cmd, Succeeded("ok"))
	m.OnDenied(cmd)
	for _, l := range []*listenerSpy{a, b} {
		if len(l.required) != 1 || len(l.results) != 1 || len(l.denied) != 1 {
			t.Fatalf("listener missed events: %+v", l)
		}
	}
}
