package tui

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/emty-pyie/Jane/internal/core"
	"github.com/emty-pyie/Jane/internal/utils"
)

type fakeDispatcher struct {
	mu  sync.Mutex
	ran []string
}

func (d *fakeDispatcher) Execute(_ context.Context, cmd core.Command) core.ActionResult {
	d.mu.Lock()
	d.ran = append(d.ran, cmd.Raw)
	d.mu.Unlock()
	return core.Succeeded("did %s", cmd.Raw)
}

func (d *fakeDispatcher) Ran() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ran...)
}

func newController(t *testing.T) (*core.Controller, *fakeDispatcher) {
	t.Helper()
	d := &fakeDispatcher{}
	ctrl := core.NewController(core.ControllerConfig{Dispatcher: d, Logger: log.New(io.Discard)})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = ctrl.Close(ctx)
	})
	return ctrl, d
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

// press sends key and runs the returned command once, feeding an
// outcomeMsg back into the model.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	updated, cmd := m.Update(k)
	m = updated.(Model)
	if cmd == nil {
		return m
	}
	msg := cmd()
	if out, ok := msg.(outcomeMsg); ok {
		updated, _ = m.Update(out)
		m = updated.(Model)
	}
	return m
}

func TestView_LoadingUntilSized(t *testing.T) {
	m := New(Options{})
	if m.View() != "Loading..." {
		t.Fatalf("expected loading view, got %q", m.View())
	}
	m = sized(t, m)
	if m.width != 100 || m.height != 40 {
		t.Fatalf("expected 100x40, got %dx%d", m.width, m.height)
	}
}

func TestSubmit_ExecutesAndShowsOutcome(t *testing.T) {
	ctrl, d := newController(t)
	m := sized(t, New(Options{Assistant: ctrl}))

	m = typeText(m, "what time is it")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if got := d.Ran(); len(got) != 1 || got[0] != "what time is it" {
		t.Fatalf("dispatched %v", got)
	}
	if !strings.Contains(m.status, "did what time is it") {
		t.Fatalf("status = %q", m.status)
	}
	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}
	view := utils.StripANSI(m.View())
	if !strings.Contains(view, "You: what time is it") {
		t.Fatalf("transcript missing user line:\n%s", view)
	}
}

func TestGrantAndDeny(t *testing.T) {
	ctrl, d := newController(t)
	m := sized(t, New(Options{Assistant: ctrl}))

	m = typeText(m, "shutdown")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(m, "open terminal and download numpy")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(m.snapshot.Pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(m.snapshot.Pending))
	}
	view := utils.StripANSI(m.View())
	if !strings.Contains(view, "HIGH RISK") || !strings.Contains(view, "1 of 2 waiting") {
		t.Fatalf("pending card missing:\n%s", view)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	if !strings.Contains(m.status, "Denied: shutdown") {
		t.Fatalf("status after deny = %q", m.status)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	if got := d.Ran(); len(got) != 1 || got[0] != "open terminal and download numpy" {
		t.Fatalf("dispatched %v", got)
	}
	if len(m.snapshot.Pending) != 0 {
		t.Fatalf("expected empty queue, got %d", len(m.snapshot.Pending))
	}
}

func TestGrant_EmptyQueue(t *testing.T) {
	ctrl, _ := newController(t)
	m := sized(t, New(Options{Assistant: ctrl}))

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	m = updated.(Model)
	if cmd != nil {
		t.Fatal("expected no command for empty queue")
	}
	if m.status != core.MsgNothingPending {
		t.Fatalf("status = %q", m.status)
	}
}

func TestWakeWordRequired(t *testing.T) {
	ctrl, d := newController(t)
	m := sized(t, New(Options{Assistant: ctrl, WakeWord: "hey jane"}))

	m = typeText(m, "what time is it")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(d.Ran()) != 0 {
		t.Fatal("command without wake word must not run")
	}
	if !strings.Contains(m.status, "hey jane") {
		t.Fatalf("status = %q", m.status)
	}

	m = typeText(m, "Hey JANE")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(d.Ran()) != 0 {
		t.Fatal("bare wake word must not run anything")
	}

	m = typeText(m, "hey jane, what time is it")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := d.Ran(); len(got) != 1 || got[0] != "what time is it" {
		t.Fatalf("dispatched %v", got)
	}
}

func TestTickRefreshesSnapshot(t *testing.T) {
	ctrl, _ := newController(t)
	m := sized(t, New(Options{Assistant: ctrl}))

	ctrl.Boot("", "Hello, I am JANE. How can I assist you today?")
	updated, cmd := m.Update(tickMsg(time.Now()))
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("expected tick to reschedule")
	}
	view := utils.StripANSI(m.View())
	if !strings.Contains(view, "[BOOT] JANE is online.") {
		t.Fatalf("boot line missing:\n%s", view)
	}
}

func TestQuit(t *testing.T) {
	m := sized(t, New(Options{}))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}
