package cli

import (
	"strings"
	"testing"

	"github.com/emty-pyie/Jane/internal/config"
	"github.com/spf13/cobra"
)

func TestCompleteConfigKeys_AllKeys(t *testing.T) {
	newCLIHarness(t)

	got, directive := completeConfigKeys(configGetCmd, nil, "")
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("directive = %v, want NoFileComp", directive)
	}
	if len(got) != len(config.Keys()) {
		t.Fatalf("got %d completions, want %d", len(got), len(config.Keys()))
	}
	for _, c := range got {
		if !strings.Contains(c, "\t") {
			t.Errorf("completion %q has no description", c)
		}
	}
}

func TestCompleteConfigKeys_PrefixAndValue(t *testing.T) {
	h := newCLIHarness(t)
	h.WriteProjectConfig("[assistant]\nwake_word = \"computer\"\n")

	got, _ := completeConfigKeys(configGetCmd, nil, "assistant.wake")
	if len(got) != 1 {
		t.Fatalf("completions = %v, want one", got)
	}
	if got[0] != "assistant.wake_word\tcomputer" {
		t.Errorf("completion = %q", got[0])
	}
}

func TestCompleteConfigKeys_SecondArgNoCompletions(t *testing.T) {
	newCLIHarness(t)

	got, _ := completeConfigKeys(configSetCmd, []string{"assistant.wake_word"}, "")
	if len(got) != 0 {
		t.Errorf("expected no completions for the value, got %v", got)
	}
}

func TestFormatCompletionValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"", "(unset)"},
		{"hey jane", "hey jane"},
		{[]string{"127.0.0.1", "::1"}, "127.0.0.1,::1"},
		{true, "true"},
		{10, "10"},
	}
	for _, tt := range tests {
		if got := formatCompletionValue(tt.in); got != tt.want {
			t.Errorf("formatCompletionValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompleteThemes(t *testing.T) {
	got, _ := completeThemes(runCmd, nil, "")
	if len(got) < 3 {
		t.Fatalf("themes = %v, want at least jane, mocha and latte", got)
	}

	got, _ = completeThemes(runCmd, nil, "la")
	if len(got) != 1 || got[0] != "latte" {
		t.Errorf("prefix completion = %v, want [latte]", got)
	}
}

func TestCompleteOutputFormats(t *testing.T) {
	got, _ := completeOutputFormats(rootCmd, nil, "")
	if strings.Join(got, ",") != "text,json,yaml" {
		t.Errorf("formats = %v", got)
	}
}
