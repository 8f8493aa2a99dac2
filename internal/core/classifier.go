package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultShutdownCountdown is the countdown attached to shutdown commands.
const DefaultShutdownCountdown = 10

// Rule names, reported by Explain for the rule that produced a command.
const (
	RuleEmpty          = "empty"
	RuleWhatsAppWeb    = "browser_whatsapp"
	RuleChangeTheme    = "open_settings_theme"
	RuleInstallLibrary = "terminal_download"
	RuleShutdown       = "shutdown"
	RuleTellTime       = "time_query"
	RuleTellDate       = "date_query"
	RuleSaveNote       = "note_prefix"
	RuleCalculator     = "open_calculator"
	RuleNotepad        = "open_notepad"
	RuleOpenGeneric    = "open_generic"
	RuleChatFallback   = "chat_fallback"
)

var (
	downloadPattern = mustCompile(`download\s+(?:this\s+library\s+)?([a-z0-9_\-.]+)`)
	notePattern     = mustCompile(`(?s)^note\s*[:\-]\s*(.*)$`)
	openPattern     = mustCompile(`(?s)^open\s+(.+)`)

	timePhrases = []string{"what time", "what's the time", "whats the time", "current time", "tell me the time", "time is it"}
	datePhrases = []string{"what date", "what's the date", "whats the date", "today's date", "todays date", "what day", "current date"}
)

// mustCompile compiles a builtin pattern case-insensitively. Builtin patterns
// must always be valid.
func mustCompile(p string) *regexp.Regexp {
	compiled, err := regexp.Compile("(?i)" + p)
	if err != nil {
		panic(fmt.Sprintf("invalid builtin pattern %q: %v", p, err))
	}
	return compiled
}

// match is the input to a rule: the trimmed original text and its lower-cased form.
type match struct {
	raw        string
	trimmed    string
	normalized string
}

// rule is one entry of the ordered rule list. apply returns ok=false when the
// rule does not match.
type rule struct {
	name   string
	action Action
	apply  func(m match) (params map[string]any, ok bool)
}

// Classifier turns raw text into a Command. It has no mutable state after
// construction and is safe for concurrent use.
type Classifier struct {
	countdown int
	now       func() time.Time
	newID     func() string
	rules     []rule
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithShutdownCountdown sets the countdown attached to shutdown commands.
func WithShutdownCountdown(seconds int) ClassifierOption {
	return func(c *Classifier) {
		if seconds > 0 {
			c.countdown = seconds
		}
	}
}

// WithClassifierClock sets the clock used for Command.CreatedAt.
func WithClassifierClock(now func() time.Time) ClassifierOption {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClassifier creates a classifier with the builtin rule list.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		countdown: DefaultShutdownCountdown,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rules = c.builtinRules()
	return c
}

// builtinRules returns the rule list. Order is significant: the first
// matching rule wins.
func (c *Classifier) builtinRules() []rule {
	countdown := c.countdown
	return []rule{
		{RuleWhatsAppWeb, ActionOpenWhatsAppWeb, func(m match) (map[string]any, bool) {
			if strings.Contains(m.normalized, "open chrome") && strings.Contains(m.normalized, "whatsapp") {
				return map[string]any{ParamBrowser: "chrome"}, true
			}
			return nil, false
		}},
		{RuleChangeTheme, ActionChangeTheme, func(m match) (map[string]any, bool) {
			ok := strings.HasPrefix(m.normalized, "open ") &&
				strings.Contains(m.normalized, "settings") &&
				strings.Contains(m.normalized, "theme")
			return nil, ok
		}},
		{RuleInstallLibrary, ActionInstallLibrary, func(m match) (map[string]any, bool) {
			if !strings.Contains(m.normalized, "open terminal") {
				return nil, false
			}
			sub := downloadPattern.FindStringSubmatch(m.normalized)
			if sub == nil {
				return nil, false
			}
			return map[string]any{ParamLibrary: sub[1]}, true
		}},
		{RuleShutdown, ActionShutdownSystem, func(m match) (map[string]any, bool) {
			if strings.Contains(m.normalized, "shut down") || strings.Contains(m.normalized, "shutdown") {
				return map[string]any{ParamCountdown: countdown}, true
			}
			return nil, false
		}},
		{RuleTellTime, ActionTellTime, func(m match) (map[string]any, bool) {
			return nil, containsAny(m.normalized, timePhrases)
		}},
		{RuleTellDate, ActionTellDate, func(m match) (map[string]any, bool) {
			return nil, containsAny(m.normalized, datePhrases)
		}},
		{RuleSaveNote, ActionSaveNote, func(m match) (map[string]any, bool) {
			sub := notePattern.FindStringSubmatch(m.trimmed)
			if sub == nil {
				return nil, false
			}
			return map[string]any{ParamNote: strings.TrimSpace(sub[1])}, true
		}},
		{RuleCalculator, ActionOpenCalculator, func(m match) (map[string]any, bool) {
			return nil, strings.Contains(m.normalized, "open calculator")
		}},
		{RuleNotepad, ActionOpenNotepad, func(m match) (map[string]any, bool) {
			return nil, strings.Contains(m.normalized, "open notepad") || strings.Contains(m.normalized, "open editor")
		}},
		{RuleOpenGeneric, ActionOpenAppOrSite, func(m match) (map[string]any, bool) {
			sub := openPattern.FindStringSubmatch(m.normalized)
			if sub == nil {
				return nil, false
			}
			return map[string]any{ParamTarget: strings.TrimSpace(sub[1])}, true
		}},
	}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Classify converts text into a Command. It never fails: unmatched text
// becomes a chat command carrying the original text as the prompt.
func (c *Classifier) Classify(text string) Command {
	cmd, _ := c.Explain(text)
	return cmd
}

// Explain is Classify that also reports the name of the rule that matched.
func (c *Classifier) Explain(text string) (Command, string) {
	trimmed := strings.TrimSpace(text)
	m := match{
		raw:        text,
		trimmed:    trimmed,
		normalized: strings.ToLower(trimmed),
	}

	if m.normalized == "" {
		return Command{Raw: text, Action: ActionEmpty, Risk: RiskNormal}, RuleEmpty
	}

	for _, r := range c.rules {
		if params, ok := r.apply(m); ok {
			return c.build(text, r.action, params), r.name
		}
	}

	return c.build(text, ActionChat, map[string]any{ParamPrompt: text}), RuleChatFallback
}

func (c *Classifier) build(raw string, action Action, params map[string]any) Command {
	if params == nil {
		params = map[string]any{}
	}
	return Command{
		ID:        c.newID(),
		Raw:       raw,
		Action:    action,
		Risk:      RiskOf(action),
		CreatedAt: c.now().UTC(),
		params:    params,
	}
}

// RuleNames lists the rule names in evaluation order, including the empty
// check and the chat fallback.
func (c *Classifier) RuleNames() []string {
	names := make([]string, 0, len(c.rules)+2)
	names = append(names, RuleEmpty)
	for _, r := range c.rules {
		names = append(names, r.name)
	}
	return append(names, RuleChatFallback)
}

// defaultClassifier backs Classify and uses the default shutdown countdown.
var defaultClassifier = NewClassifier()

// Classify is a convenience function using the default classifier.
func Classify(text string) Command {
	return defaultClassifier.Classify(text)
}
