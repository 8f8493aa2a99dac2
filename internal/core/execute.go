package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/emty-pyie/Jane/internal/chat"
	"github.com/emty-pyie/Jane/internal/system"
)

const (
	whatsAppWebURL = "https://web.whatsapp.com"

	msgUnknownAction = "I could not understand that command."
	msgChatHint      = "Gemini is not configured. Set GEMINI_API_KEY (or GEMENI_API_KEY / GOOGLE_API_KEY) to enable AI chat."
	msgNoReply       = "I could not generate a response."
)

// knownSites maps spoken shortcuts to canonical URLs for open_app_or_site.
var knownSites = map[string]string{
	"whatsapp": whatsAppWebURL,
	"youtube":  "https://youtube.com",
	"gmail":    "https://mail.google.com",
	"chrome":   "https://www.google.com",
}

var (
	calculatorCandidates = []string{"calc", "gnome-calculator", "open -a Calculator"}
	notepadCandidates    = []string{"notepad", "gedit", "open -a TextEdit"}
)

// Speaker voices assistant output. Say may block until the utterance is done.
type Speaker interface {
	Say(text string)
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(text string)

// Say calls f(text).
func (f SpeakerFunc) Say(text string) { f(text) }

// NoteSink persists notes, one line per note.
type NoteSink interface {
	AppendNote(ctx context.Context, line string) error
	// Location describes where notes end up, for user-facing messages.
	Location() string
}

// ChatBackend answers free-form prompts.
type ChatBackend interface {
	// Ready reports whether the backend is configured and usable.
	Ready() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

type handlerFunc func(e *Executor, ctx context.Context, cmd Command) ActionResult

// handlers is the static action registry. ActionEmpty has no handler.
var handlers = map[Action]handlerFunc{
	ActionOpenWhatsAppWeb: (*Executor).openWhatsAppWeb,
	ActionChangeTheme:     (*Executor).changeTheme,
	ActionInstallLibrary:  (*Executor).installLibrary,
	ActionShutdownSystem:  (*Executor).shutdownSystem,
	ActionTellTime:        (*Executor).tellTime,
	ActionTellDate:        (*Executor).tellDate,
	ActionSaveNote:        (*Executor).saveNote,
	ActionOpenCalculator:  (*Executor).openCalculator,
	ActionOpenNotepad:     (*Executor).openNotepad,
	ActionOpenAppOrSite:   (*Executor).openAppOrSite,
	ActionChat:            (*Executor).chatReply,
}

// HasHandler reports whether the executor can dispatch a.
func HasHandler(a Action) bool {
	_, ok := handlers[a]
	return ok
}

// Executor runs classified commands against the host system.
type Executor struct {
	speaker  Speaker
	launcher system.Launcher
	platform system.Platform
	elevator *system.Elevator
	notes    NoteSink
	chat     ChatBackend
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSpeaker sets where countdown announcements go.
func WithSpeaker(s Speaker) ExecutorOption {
	return func(e *Executor) { e.speaker = s }
}

// WithLauncher sets the process launcher.
func WithLauncher(l system.Launcher) ExecutorOption {
	return func(e *Executor) { e.launcher = l }
}

// WithPlatform overrides platform detection.
func WithPlatform(p system.Platform) ExecutorOption {
	return func(e *Executor) { e.platform = p }
}

// WithNoteSink sets where save_note writes.
func WithNoteSink(n NoteSink) ExecutorOption {
	return func(e *Executor) { e.notes = n }
}

// WithChatBackend sets the backend used for chat commands.
func WithChatBackend(c ChatBackend) ExecutorOption {
	return func(e *Executor) { e.chat = c }
}

// WithClock sets the clock used for time, date and note stamps.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// WithSleep replaces the countdown sleep. Tests pass a no-op.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) { e.sleep = sleep }
}

// NewExecutor creates an executor. Unset collaborators fall back to the real
// OS launcher, the detected platform and silent speech.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		speaker:  SpeakerFunc(func(string) {}),
		launcher: system.ExecLauncher{},
		platform: system.Detect(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.elevator = system.NewElevator(e.launcher, e.platform)
	return e
}

// Execute dispatches cmd to its handler. It never panics and never returns an
// error: every failure is reported through ActionResult. No deadline is added;
// a running handler ends only when it finishes or ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, cmd Command) (result ActionResult) {
	h, ok := handlers[cmd.Action]
	if !ok {
		return Failed(msgUnknownAction)
	}

	defer func() {
		if r := recover(); r != nil {
			result = Failed("Action %s failed: %v", cmd.Action, r)
		}
	}()
	return h(e, ctx, cmd)
}

func (e *Executor) openWhatsAppWeb(ctx context.Context, _ Command) ActionResult {
	// Fire-and-forget: a browser that fails to launch is not reported.
	_ = system.OpenURL(ctx, e.launcher, e.platform, whatsAppWebURL)
	return Succeeded("Opening WhatsApp Web in browser.")
}

func (e *Executor) changeTheme(ctx context.Context, _ Command) ActionResult {
	var err error
	switch e.platform {
	case system.Windows:
		return e.runElevated(ctx, system.ElevatedCommand{
			Argv:   []string{"start", "ms-settings:colors"},
			Reason: "Open Windows color settings",
		})
	case system.Darwin:
		err = e.launcher.Start(ctx, "open", "x-apple.systempreferences:")
	default:
		err = e.launcher.Start(ctx, "gnome-control-center", "appearance")
	}
	if err != nil {
		return Failed("Unable to open settings: %v", err)
	}
	return Succeeded("Opened settings. Please apply your theme preference.")
}

func (e *Executor) installLibrary(ctx context.Context, cmd Command) ActionResult {
	library := strings.TrimSpace(cmd.String(ParamLibrary))
	if library == "" {
		return Failed("No library name was provided.")
	}
	return e.runElevated(ctx, system.ElevatedCommand{
		Argv:   []string{"python", "-m", "pip", "install", library},
		Reason: "Install library: " + library,
		Wait:   true,
	})
}

func (e *Executor) shutdownSystem(ctx context.Context, cmd Command) ActionResult {
	seconds := cmd.Int(ParamCountdown, DefaultShutdownCountdown)
	for s := seconds; s > 0; s-- {
		e.speaker.Say(fmt.Sprintf("Shutdown in %d", s))
		if err := e.sleep(ctx, time.Second); err != nil {
			return Failed("Shutdown cancelled: %v", err)
		}
	}
	e.speaker.Say("System Black Out")

	var argv []string
	switch e.platform {
	case system.Windows:
		argv = []string{"shutdown", "/s", "/t", "0"}
	case system.Darwin:
		argv = []string{"shutdown", "-h", "now"}
	default:
		argv = []string{"shutdown", "now"}
	}
	return e.runElevated(ctx, system.ElevatedCommand{Argv: argv, Reason: "Shutdown system"})
}

func (e *Executor) openAppOrSite(ctx context.Context, cmd Command) ActionResult {
	target := strings.TrimSpace(cmd.String(ParamTarget))
	if target == "" {
		return Failed("Nothing to open.")
	}
	key := strings.ToLower(target)
	if url, ok := knownSites[key]; ok {
		_ = system.OpenURL(ctx, e.launcher, e.platform, url)
		return Succeeded("Opening %s.", key)
	}
	if err := system.OpenURL(ctx, e.launcher, e.platform, target); err != nil {
		return Failed("Open failed: %v", err)
	}
	return Succeeded("Attempting to open %s.", target)
}

func (e *Executor) tellTime(context.Context, Command) ActionResult {
	return Succeeded("Current time is %s.", e.now().Format("03:04 PM"))
}

func (e *Executor) tellDate(context.Context, Command) ActionResult {
	return Succeeded("Today is %s.", e.now().Format("Monday, 02 January 2006"))
}

func (e *Executor) saveNote(ctx context.Context, cmd Command) ActionResult {
	note := strings.TrimSpace(cmd.String(ParamNote))
	if note == "" {
		return Failed("Note text was empty.")
	}
	if e.notes == nil {
		return Failed("Note storage is not configured.")
	}
	// Notes are line-oriented; embedded newlines would split one note in two.
	note = strings.Join(strings.Fields(note), " ")
	line := fmt.Sprintf("[%s] %s", e.now().Format("2006-01-02 15:04:05"), note)
	if err := e.notes.AppendNote(ctx, line); err != nil {
		return Failed("Could not save note: %v", err)
	}
	return Succeeded("Note saved to %s", e.notes.Location())
}

func (e *Executor) openCalculator(ctx context.Context, _ Command) ActionResult {
	return e.openSystemApp(ctx, calculatorCandidates)
}

func (e *Executor) openNotepad(ctx context.Context, _ Command) ActionResult {
	return e.openSystemApp(ctx, notepadCandidates)
}

// openSystemApp starts the first candidate that applies to the platform and
// launches successfully.
func (e *Executor) openSystemApp(ctx context.Context, candidates []string) ActionResult {
	for _, line := range candidates {
		if !candidateApplies(e.platform, line) {
			continue
		}
		if err := system.StartLine(ctx, e.launcher, line); err != nil {
			continue
		}
		return Succeeded("Launching app via: %s", line)
	}
	return Failed("Unable to open requested app on this system.")
}

// candidateApplies skips launchers that cannot exist on the platform:
// "open -a" is macOS only and the bare Windows/Linux tools are absent on macOS.
func candidateApplies(p system.Platform, line string) bool {
	macOnly := strings.HasPrefix(line, "open -a ")
	switch p {
	case system.Windows:
		return !macOnly
	case system.Darwin:
		return macOnly
	default:
		return true
	}
}

func (e *Executor) chatReply(ctx context.Context, cmd Command) ActionResult {
	prompt := strings.TrimSpace(cmd.String(ParamPrompt))
	if prompt == "" {
		return Succeeded("How can I assist you?")
	}
	if e.chat == nil || !e.chat.Ready() {
		return Succeeded(msgChatHint)
	}
	reply, err := e.chat.Generate(ctx, prompt)
	if errors.Is(err, chat.ErrNotConfigured) {
		// The key can vanish between Ready and Generate.
		return Succeeded(msgChatHint)
	}
	if err != nil {
		return Failed("AI request failed: %v", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Succeeded(msgNoReply)
	}
	return Succeeded("%s", reply)
}

func (e *Executor) runElevated(ctx context.Context, cmd system.ElevatedCommand) ActionResult {
	msg, err := e.elevator.Run(ctx, cmd)
	if err != nil {
		return Failed("%s", sentence(err))
	}
	return Succeeded("%s", msg)
}

// sentence upper-cases the first letter of an error message for display.
func sentence(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsUnknownAction reports whether r is the result of dispatching an action
// with no handler.
func IsUnknownAction(r ActionResult) bool {
	return !r.OK && r.Message == msgUnknownAction
}
