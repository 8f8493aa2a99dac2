// Package tui implements the Bubble Tea terminal front end for JANE: a
// transcript, a command input and a grant/deny panel for the approval queue.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/emty-pyie/Jane/internal/core"
	"github.com/emty-pyie/Jane/internal/tui/components"
	"github.com/emty-pyie/Jane/internal/tui/styles"
	"github.com/emty-pyie/Jane/internal/tui/theme"
	"github.com/emty-pyie/Jane/internal/utils"
)

// Assistant is the part of *core.Controller the TUI drives.
type Assistant interface {
	Process(ctx context.Context, text string) (core.Outcome, error)
	ApproveAndWait(ctx context.Context) (core.Outcome, error)
	DenyOutcome(ctx context.Context) (core.Outcome, error)
	Snapshot() core.Snapshot
}

// Options configures the TUI.
type Options struct {
	Assistant Assistant
	// WakeWord, when set, must prefix every typed command.
	WakeWord string
	Theme    string
	// RefreshInterval defaults to 500ms.
	RefreshInterval time.Duration
	// RequestTimeout bounds each submit or approve (default 2m).
	RequestTimeout time.Duration
}

type keyMap struct {
	Submit key.Binding
	Grant  key.Binding
	Deny   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Grant:  key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "grant")),
		Deny:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "deny")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

type tickMsg time.Time

type outcomeMsg struct {
	outcome core.Outcome
	err     error
}

// Model is the root Bubble Tea model.
type Model struct {
	opts   Options
	keys   keyMap
	styles *styles.Styles

	input    textinput.Model
	log      viewport.Model
	snapshot core.Snapshot

	inFlight int
	status   string

	ready  bool
	width  int
	height int
}

// New creates the model.
func New(opts Options) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 500 * time.Millisecond
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Minute
	}
	if opts.Theme != "" {
		theme.SetTheme(theme.FlavorName(opts.Theme))
	}

	ti := textinput.New()
	ti.Placeholder = "Type a command for JANE..."
	ti.Prompt = "› "
	ti.CharLimit = 500
	ti.Focus()

	m := Model{
		opts:   opts,
		keys:   defaultKeyMap(),
		styles: styles.New(),
		input:  ti,
		log:    viewport.New(0, 0),
	}
	if opts.Assistant != nil {
		m.snapshot = opts.Assistant.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.input.Width = max(msg.Width-8, 10)
		m.resizeLog()
		return m, nil

	case tickMsg:
		m.refresh()
		return m, m.tick()

	case outcomeMsg:
		m.inFlight--
		m.status = describeOutcome(msg.outcome, msg.err)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Submit):
			return m.submit()
		case key.Matches(msg, m.keys.Grant):
			return m.decide(true)
		case key.Matches(msg, m.keys.Deny):
			return m.decide(false)
		case msg.Type == tea.KeyPgUp, msg.Type == tea.KeyPgDown:
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input line, after wake word extraction when configured.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := utils.SingleLine(m.input.Value())
	m.input.Reset()
	if text == "" || m.opts.Assistant == nil {
		return m, nil
	}

	if m.opts.WakeWord != "" {
		cmd, err := core.ExtractWakeWordCommand(text, m.opts.WakeWord)
		switch {
		case errors.Is(err, core.ErrWakeWordMissing):
			m.status = "Start with \"" + m.opts.WakeWord + "\" to address JANE."
			return m, nil
		case errors.Is(err, core.ErrNoCommand):
			m.status = "Listening. What should I do?"
			return m, nil
		}
		text = cmd
	}

	m.inFlight++
	m.status = "Working..."
	a, timeout := m.opts.Assistant, m.opts.RequestTimeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		out, err := a.Process(ctx, text)
		return outcomeMsg{outcome: out, err: err}
	}
}

// decide grants or denies the head of the approval queue.
func (m Model) decide(grant bool) (tea.Model, tea.Cmd) {
	if m.opts.Assistant == nil || len(m.snapshot.Pending) == 0 {
		m.status = core.MsgNothingPending
		return m, nil
	}
	m.inFlight++
	a, timeout := m.opts.Assistant, m.opts.RequestTimeout
	if !grant {
		m.status = "Denying..."
		return m, func() tea.Msg {
			out, err := a.DenyOutcome(context.Background())
			return outcomeMsg{outcome: out, err: err}
		}
	}
	m.status = "Granted. Running..."
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		out, err := a.ApproveAndWait(ctx)
		return outcomeMsg{outcome: out, err: err}
	}
}

func (m *Model) refresh() {
	if m.opts.Assistant == nil {
		return
	}
	m.snapshot = m.opts.Assistant.Snapshot()
	if m.ready {
		m.resizeLog()
		return
	}
	m.renderLog()
}

func (m *Model) resizeLog() {
	// title + subtitle + input box + pending panel + buttons + help
	chrome := 2 + 3 + m.pendingHeight() + 1 + 1 + 2
	m.log.Width = max(m.width-4, 10)
	m.log.Height = max(m.height-chrome-2, 3)
	m.renderLog()
}

func (m *Model) renderLog() {
	atBottom := m.log.AtBottom()
	tr := components.NewTranscript(m.snapshot.Log).WithSize(m.log.Width, 0)
	m.log.SetContent(tr.Render())
	if atBottom {
		m.log.GotoBottom()
	}
}

func (m Model) pendingHeight() int {
	if len(m.snapshot.Pending) == 0 {
		return 1
	}
	return 5
}

func describeOutcome(out core.Outcome, err error) string {
	switch {
	case err == nil:
		return theme.OutcomeIcon(out.Status) + " " + out.Message
	case core.IsNothingPending(err):
		return core.MsgNothingPending
	case errors.Is(err, context.DeadlineExceeded):
		return "Still running in the background."
	default:
		return "[WARN] " + err.Error()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	s := m.styles

	header := s.Title.Render(core.AssistantName) + "  " + s.Subtitle.Render("your assistant core")

	logPanel := s.LogPanel.Width(max(m.width-2, 10)).Render(m.log.View())
	inputBox := s.Input.Width(max(m.width-4, 10)).Render(m.input.View())

	var pending string
	if len(m.snapshot.Pending) == 0 {
		pending = s.Dimmed.Render("No pending high-risk commands.")
	} else {
		head := m.snapshot.Pending[0].View()
		pending = components.NewPendingCard(head, len(m.snapshot.Pending)).
			WithMaxWidth(max(m.width-2, 20)).
			Render()
	}

	grant, deny := s.ButtonDisabled, s.ButtonDisabled
	if len(m.snapshot.Pending) > 0 {
		grant, deny = s.ButtonGrant, s.ButtonDeny
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		grant.Render("✅ Grant (ctrl+g)"), "  ", deny.Render("❌ Deny (ctrl+x)"))

	status := m.status
	if m.inFlight > 0 && status == "" {
		status = "Working..."
	}

	help := s.Help.Render(strings.Join([]string{
		m.keys.Submit.Help().Key + " " + m.keys.Submit.Help().Desc,
		m.keys.Grant.Help().Key + " " + m.keys.Grant.Help().Desc,
		m.keys.Deny.Help().Key + " " + m.keys.Deny.Help().Desc,
		"pgup/pgdn scroll",
		m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc,
	}, " • "))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		logPanel,
		inputBox,
		pending,
		buttons,
		s.Normal.Render(status),
		help,
	)
}

// Run starts the TUI and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
