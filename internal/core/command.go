// Package core implements command classification, risk gating and dispatch.
package core

import (
	"fmt"
	"maps"
	"time"
)

// Action identifies which executor handler a classified command maps to.
type Action string

// Action identifiers. The set is closed: the executor has exactly one handler
// per identifier except ActionEmpty, which is never dispatched.
const (
	ActionEmpty           Action = "empty"
	ActionOpenWhatsAppWeb Action = "open_whatsapp_web"
	ActionChangeTheme     Action = "change_theme"
	ActionInstallLibrary  Action = "install_library"
	ActionShutdownSystem  Action = "shutdown_system"
	ActionTellTime        Action = "tell_time"
	ActionTellDate        Action = "tell_date"
	ActionSaveNote        Action = "save_note"
	ActionOpenCalculator  Action = "open_calculator"
	ActionOpenNotepad     Action = "open_notepad"
	ActionOpenAppOrSite   Action = "open_app_or_site"
	ActionChat            Action = "chat"
)

// AllActions returns every action identifier in declaration order.
func AllActions() []Action {
	return []Action{
		ActionEmpty,
		ActionOpenWhatsAppWeb,
		ActionChangeTheme,
		ActionInstallLibrary,
		ActionShutdownSystem,
		ActionTellTime,
		ActionTellDate,
		ActionSaveNote,
		ActionOpenCalculator,
		ActionOpenNotepad,
		ActionOpenAppOrSite,
		ActionChat,
	}
}

// Valid reports whether a is one of the known action identifiers.
func (a Action) Valid() bool {
	for _, known := range AllActions() {
		if a == known {
			return true
		}
	}
	return false
}

// Parameter names carried in Command.Params.
const (
	ParamBrowser   = "browser"
	ParamLibrary   = "library"
	ParamCountdown = "countdown"
	ParamNote      = "note"
	ParamTarget    = "target"
	ParamPrompt    = "prompt"
)

// Command is a classified utterance. It is a value object: once returned by
// the classifier it is never mutated, and Params hands out copies.
type Command struct {
	// ID identifies this classification for audit and display.
	ID string `json:"id"`
	// Raw is the original input text, preserved verbatim.
	Raw string `json:"raw"`
	// Action is the handler this command dispatches to.
	Action Action `json:"action"`
	// Risk is fixed at classification time.
	Risk RiskLevel `json:"risk"`
	// CreatedAt is when the command was classified.
	CreatedAt time.Time `json:"created_at"`

	params map[string]any
}

// Params returns a copy of the command parameters.
func (c Command) Params() map[string]any {
	out := make(map[string]any, len(c.params))
	maps.Copy(out, c.params)
	return out
}

// HighRisk reports whether the command requires approval before execution.
func (c Command) HighRisk() bool {
	return c.Risk == RiskHigh
}

// String returns the parameter as a string, or "" when absent.
func (c Command) String(key string) string {
	v, ok := c.params[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the parameter as an int, or def when absent or not numeric.
func (c Command) Int(key string, def int) int {
	switch v := c.params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Equivalent reports whether two commands carry the same classification,
// ignoring the per-call ID and timestamp.
func (c Command) Equivalent(other Command) bool {
	if c.Raw != other.Raw || c.Action != other.Action || c.Risk != other.Risk {
		return false
	}
	if len(c.params) != len(other.params) {
		return false
	}
	for k, v := range c.params {
		if ov, ok := other.params[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// CommandView is the serializable form of a Command.
type CommandView struct {
	ID        string         `json:"id"`
	Raw       string         `json:"raw"`
	Action    Action         `json:"action"`
	Params    map[string]any `json:"params"`
	HighRisk  bool           `json:"high_risk"`
	CreatedAt string         `json:"created_at"`
}

// View returns the serializable form of c.
func (c Command) View() CommandView {
	return CommandView{
		ID:        c.ID,
		Raw:       c.Raw,
		Action:    c.Action,
		Params:    c.Params(),
		HighRisk:  c.HighRisk(),
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ActionResult is the outcome of executing one command.
type ActionResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Succeeded builds a successful result.
func Succeeded(format string, args ...any) ActionResult {
	return ActionResult{OK: true, Message: fmt.Sprintf(format, args...)}
}

// Failed builds a failed result.
func Failed(format string, args ...any) ActionResult {
	return ActionResult{OK: false, Message: fmt.Sprintf(format, args...)}
}
