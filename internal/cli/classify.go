package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/emty-pyie/Jane/internal/core"
	"github.com/spf13/cobra"
)

var flagWakeSubmit bool

func init() {
	wakeCmd.Flags().BoolVar(&flagWakeSubmit, "submit", false, "send the extracted command to the running daemon")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(wakeCmd)
}

// classifyView is the structured output of classify.
type classifyView struct {
	Command  core.CommandView `json:"command"`
	Rule     string           `json:"rule"`
	Risk     core.RiskLevel   `json:"risk"`
	Approval bool             `json:"needs_approval"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Show how JANE would interpret a command without running it",
	Long: `Classify text with the configured rules and print the action, its
parameters, the rule that matched and whether it would wait for approval.

Examples:
  jane classify "shutdown the computer"
  jane classify "open youtube" -j`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		classifier := core.NewClassifier(core.WithShutdownCountdown(cfg.Assistant.ShutdownCountdown))
		parsed, rule := classifier.Explain(strings.Join(args, " "))

		view := classifyView{
			Command:  parsed.View(),
			Rule:     rule,
			Risk:     parsed.Risk,
			Approval: parsed.HighRisk(),
		}

		out := newWriter(cmd)
		if out.Structured() {
			return out.Write(view)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "action:   %s\n", parsed.Action)
		fmt.Fprintf(w, "rule:     %s\n", rule)
		fmt.Fprintf(w, "risk:     %s\n", parsed.Risk)
		if params := formatParams(parsed.Params()); params != "" {
			fmt.Fprintf(w, "params:   %s\n", params)
		}
		if view.Approval {
			fmt.Fprintln(w, "approval: required (jane approve / jane deny)")
		} else {
			fmt.Fprintln(w, "approval: not required")
		}
		return nil
	},
}

var wakeCmd = &cobra.Command{
	Use:   "wake <transcript>",
	Short: "Extract the command that follows the wake word in a transcript",
	Long: `Voice front ends pass every transcript through the wake word filter.
Only text that follows the configured assistant.wake_word (default "hey jane")
is treated as a command.

Exit status is non-zero when the wake word is missing or nothing follows it.

Examples:
  jane wake "hey jane what time is it"
  jane wake "ok so hey jane, open youtube" --submit`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		transcript := strings.Join(args, " ")
		text, err := core.ExtractWakeWordCommand(transcript, cfg.Assistant.WakeWord)
		switch {
		case errors.Is(err, core.ErrWakeWordMissing):
			return fmt.Errorf("wake word %q not found in transcript", cfg.Assistant.WakeWord)
		case errors.Is(err, core.ErrNoCommand):
			return fmt.Errorf("heard %q but no command followed", cfg.Assistant.WakeWord)
		case err != nil:
			return err
		}

		if flagWakeSubmit {
			return submitText(cmd, text)
		}

		out := newWriter(cmd)
		if out.Structured() {
			return out.Write(map[string]any{
				"wake_word": cfg.Assistant.WakeWord,
				"command":   text,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

// formatParams renders params as sorted key=value pairs.
func formatParams(params map[string]any) string {
	keys := slices.Sorted(maps.Keys(params))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(parts, " ")
}
