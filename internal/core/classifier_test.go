package core

import (
	"errors"
	"testing"
	"time"
)

func TestClassifyRules(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		action Action
		params map[string]any
		rule   string
	}{
		{"empty", "", ActionEmpty, nil, RuleEmpty},
		{"whitespace", "   \t\n", ActionEmpty, nil, RuleEmpty},
		{"whatsapp", "Open Chrome and go to WhatsApp", ActionOpenWhatsAppWeb, map[string]any{ParamBrowser: "chrome"}, RuleWhatsAppWeb},
		{"theme", "open settings and change theme to dark", ActionChangeTheme, nil, RuleChangeTheme},
		{"theme anywhere", "Open the settings, I want a new theme", ActionChangeTheme, nil, RuleChangeTheme},
		{"install with phrase", "open terminal and download this library requests", ActionInstallLibrary, map[string]any{ParamLibrary: "requests"}, RuleInstallLibrary},
		{"install bare", "Open Terminal, download numpy-1.2", ActionInstallLibrary, map[string]any{ParamLibrary: "numpy-1.2"}, RuleInstallLibrary},
		{"shut down", "shut down now", ActionShutdownSystem, map[string]any{ParamCountdown: DefaultShutdownCountdown}, RuleShutdown},
		{"shutdown", "please SHUTDOWN the computer", ActionShutdownSystem, map[string]any{ParamCountdown: DefaultShutdownCountdown}, RuleShutdown},
		{"time", "What time is it?", ActionTellTime, nil, RuleTellTime},
		{"time alt", "tell me the time please", ActionTellTime, nil, RuleTellTime},
		{"date", "what's the date today", ActionTellDate, nil, RuleTellDate},
		{"day", "What day is it", ActionTellDate, nil, RuleTellDate},
		{"note colon", "Note: Buy Milk", ActionSaveNote, map[string]any{ParamNote: "Buy Milk"}, RuleSaveNote},
		{"note dash", "  note - call mom at 5  ", ActionSaveNote, map[string]any{ParamNote: "call mom at 5"}, RuleSaveNote},
		{"calculator", "open calculator", ActionOpenCalculator, nil, RuleCalculator},
		{"notepad", "open notepad", ActionOpenNotepad, nil, RuleNotepad},
		{"editor", "please open editor", ActionOpenNotepad, nil, RuleNotepad},
		{"open site", "open YouTube", ActionOpenAppOrSite, map[string]any{ParamTarget: "youtube"}, RuleOpenGeneric},
		{"open url", "open https://example.com/a", ActionOpenAppOrSite, map[string]any{ParamTarget: "https://example.com/a"}, RuleOpenGeneric},
		{"chat", "tell me a joke", ActionChat, map[string]any{ParamPrompt: "tell me a joke"}, RuleChatFallback},
		{"bare open", "open", ActionChat, map[string]any{ParamPrompt: "open"}, RuleChatFallback},
	}

	c := NewClassifier()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, rule := c.Explain(tc.input)
			if cmd.Action != tc.action {
				t.Fatalf("Classify(%q).Action = %s, want %s", tc.input, cmd.Action, tc.action)
			}
			if rule != tc.rule {
				t.Errorf("rule = %s, want %s", rule, tc.rule)
			}
			if cmd.Raw != tc.input {
				t.Errorf("Raw = %q, want original %q", cmd.Raw, tc.input)
			}
			got := cmd.Params()
			if len(got) != len(tc.params) {
				t.Fatalf("Params = %v, want %v", got, tc.params)
			}
			for k, v := range tc.params {
				if got[k] != v {
					t.Errorf("Params[%s] = %v, want %v", k, got[k], v)
				}
			}
			if cmd.Risk != RiskOf(tc.action) {
				t.Errorf("Risk = %s, want %s", cmd.Risk, RiskOf(tc.action))
			}
		})
	}
}

func TestClassifyRuleOrder(t *testing.T) {
	tests := []struct {
		input string
		want  Action
	}{
		// Theme beats shutdown.
		{"open settings theme then shut down", ActionChangeTheme},
		// Install needs a library token; otherwise shutdown wins.
		{"open terminal and shutdown", ActionShutdownSystem},
		// Shutdown beats the time query.
		{"what time will you shut down", ActionShutdownSystem},
		// Time beats date.
		{"what time and what date", ActionTellTime},
		// Note prefix beats the calculator rule.
		{"note: open calculator tomorrow", ActionSaveNote},
		// Calculator beats generic open.
		{"open calculator app", ActionOpenCalculator},
		// WhatsApp needs both words.
		{"open chrome", ActionOpenAppOrSite},
		// Note must be a prefix.
		{"remember this note: milk", ActionChat},
	}
	for _, tc := range tests {
		if got := Classify(tc.input).Action; got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestClassifyEmptyCarriesNoParams(t *testing.T) {
	for _, in := range []string{"", " ", "\n\t "} {
		cmd := Classify(in)
		if cmd.Action != ActionEmpty {
			t.Fatalf("Classify(%q) = %s, want empty", in, cmd.Action)
		}
		if len(cmd.Params()) != 0 {
			t.Errorf("empty command has params %v", cmd.Params())
		}
		if cmd.ID != "" {
			t.Errorf("empty command has ID %q", cmd.ID)
		}
		if cmd.HighRisk() {
			t.Error("empty command is high risk")
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	inputs := []string{
		"", "open calculator", "shut down now", "Note: Buy Milk",
		"open terminal and download this library requests", "what's the time",
		"open youtube", "hello there", "OPEN SETTINGS THEME",
	}
	for _, in := range inputs {
		a, b := Classify(in), Classify(in)
		if !a.Equivalent(b) {
			t.Errorf("Classify(%q) not deterministic: %+v vs %+v", in, a.View(), b.View())
		}
	}
}

func TestClassifyNeverPanics(t *testing.T) {
	inputs := []string{
		"open ", "note:", "note", "download", "open terminal download ",
		"\x00\x01", "ǅemo open", "İstanbul open calculator", "((((", `\`, "open ​",
		"note:\nline two", "🙂 shutdown 🙂",
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Classify(%q) panicked: %v", in, r)
				}
			}()
			cmd := Classify(in)
			if !cmd.Action.Valid() {
				t.Errorf("Classify(%q) produced invalid action %q", in, cmd.Action)
			}
		}()
	}
}

func TestClassifierOptions(t *testing.T) {
	at := time.Date(2024, 3, 4, 15, 4, 5, 0, time.UTC)
	c := NewClassifier(WithShutdownCountdown(3), WithClassifierClock(func() time.Time { return at }))

	cmd := c.Classify("shutdown")
	if got := cmd.Int(ParamCountdown, -1); got != 3 {
		t.Errorf("countdown = %d, want 3", got)
	}
	if !cmd.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", cmd.CreatedAt, at)
	}

	// Non-positive countdowns keep the default.
	c = NewClassifier(WithShutdownCountdown(0))
	if got := c.Classify("shutdown").Int(ParamCountdown, -1); got != DefaultShutdownCountdown {
		t.Errorf("countdown = %d, want %d", got, DefaultShutdownCountdown)
	}
}

func TestCommandParamsAreCopied(t *testing.T) {
	cmd := Classify("open youtube")
	p := cmd.Params()
	p[ParamTarget] = "mutated"
	if cmd.String(ParamTarget) != "youtube" {
		t.Fatalf("mutating Params() changed the command: %q", cmd.String(ParamTarget))
	}
}

func TestCommandIDsAreUnique(t *testing.T) {
	a, b := Classify("open youtube"), Classify("open youtube")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct non-empty IDs, got %q and %q", a.ID, b.ID)
	}
}

func TestCommandView(t *testing.T) {
	v := Classify("open terminal and download this library requests").View()
	if !v.HighRisk || v.Action != ActionInstallLibrary || v.Params[ParamLibrary] != "requests" {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestRuleNames(t *testing.T) {
	names := NewClassifier().RuleNames()
	if len(names) != 12 {
		t.Fatalf("expected 12 rules, got %d: %v", len(names), names)
	}
	if names[0] != RuleEmpty || names[len(names)-1] != RuleChatFallback {
		t.Errorf("unexpected rule order: %v", names)
	}
}

func TestExtractWakeWordCommand(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		wake       string
		want       string
		wantErr    error
	}{
		{"plain", "hey jane open calculator", "hey jane", "open calculator", nil},
		{"case and punctuation", "Hey JANE, open calculator", "hey jane", "open calculator", nil},
		{"leading chatter", "um hey jane: what time is it", "hey jane", "what time is it", nil},
		{"default wake word", "hey jane shut down", "", "shut down", nil},
		{"custom wake word", "computer, open notepad", "Computer", "open notepad", nil},
		{"missing", "open calculator", "hey jane", "", ErrWakeWordMissing},
		{"only wake word", "hey jane", "hey jane", "", ErrNoCommand},
		{"only punctuation", "hey jane ...!", "hey jane", "", ErrNoCommand},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractWakeWordCommand(tc.transcript, tc.wake)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}

	if errors.Is(ErrNoCommand, ErrWakeWordMissing) {
		t.Fatal("wake word sentinels must be distinct")
	}
}
