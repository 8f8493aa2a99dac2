package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emty-pyie/Jane/internal/core"
	"github.com/emty-pyie/Jane/internal/tui"
	"github.com/emty-pyie/Jane/internal/tui/theme"
	"github.com/emty-pyie/Jane/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// desktopGreeting is spoken when the interactive assistant starts.
const desktopGreeting = "Hello, I am JANE. How can I assist you today?"

var (
	flagRunWake    bool
	flagRunPlain   bool
	flagRunTheme   string
	flagRunTimeout int
)

func init() {
	runCmd.Flags().BoolVar(&flagRunWake, "wake", false, "require the wake word before every command")
	runCmd.Flags().BoolVar(&flagRunPlain, "plain", false, "use the line prompt even on a terminal")
	runCmd.Flags().StringVar(&flagRunTheme, "theme", "", "TUI theme (jane, mocha, latte)")
	runCmd.Flags().IntVar(&flagRunTimeout, "timeout", 120, "seconds to wait for each command result")
	_ = runCmd.RegisterFlagCompletionFunc("theme", completeThemes)

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive assistant",
	Long: `Start JANE in this terminal.

On a terminal the full-screen interface is used: a transcript, a command box
and a panel showing the oldest high-risk command with Grant (ctrl+g) and
Deny (ctrl+x) buttons. When stdin is not a terminal, or with --plain, a line
prompt reads one command per line. Prompt commands:
  /grant     run the oldest pending high-risk command
  /deny      drop the oldest pending high-risk command
  /pending   list the approval queue
  /quit      exit

With --wake every line must start with assistant.wake_word, as voice
transcripts do.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		project, err := projectPath()
		if err != nil {
			return err
		}

		interactive := !flagRunPlain && term.IsTerminal(int(os.Stdin.Fd()))

		logOut := cmd.ErrOrStderr()
		if interactive {
			// Log lines would tear the alt screen.
			logOut = io.Discard
		}
		logger := cliLogger(cmd, cfg)
		logger.SetOutput(logOut)

		a, err := newAssistant(cfg, project, logger, defaultAssistantDeps())
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.Close(ctx); err != nil {
				logger.Warn("shutdown incomplete", "error", err)
			}
		}()

		a.Boot("", desktopGreeting)

		wake := ""
		if flagRunWake {
			wake = cfg.Assistant.WakeWord
		}
		timeout := time.Duration(flagRunTimeout) * time.Second

		if interactive {
			return tui.Run(tui.Options{
				Assistant:      a,
				WakeWord:       wake,
				Theme:          flagRunTheme,
				RequestTimeout: timeout,
			})
		}
		return runREPL(cmd.Context(), a, replOptions{
			In:       cmd.InOrStdin(),
			Out:      cmd.OutOrStdout(),
			WakeWord: wake,
			Timeout:  timeout,
			Prompt:   !flagRunPlain && term.IsTerminal(int(os.Stdout.Fd())),
		})
	},
}

type replOptions struct {
	In       io.Reader
	Out      io.Writer
	WakeWord string
	Timeout  time.Duration
	// Prompt prints "> " before each line.
	Prompt bool
}

// runREPL reads one command per line until EOF, /quit or ctx is done.
func runREPL(ctx context.Context, a tui.Assistant, opts replOptions) error {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	for _, line := range a.Snapshot().Log {
		fmt.Fprintln(opts.Out, line)
	}

	scanner := bufio.NewScanner(opts.In)
	for {
		if opts.Prompt {
			fmt.Fprint(opts.Out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := utils.SingleLine(scanner.Text())
		if line == "" {
			continue
		}

		var (
			out core.Outcome
			err error
		)
		reqCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		switch strings.ToLower(line) {
		case "/quit", "/exit":
			cancel()
			return nil
		case "/grant", "/approve":
			out, err = a.ApproveAndWait(reqCtx)
		case "/deny":
			out, err = a.DenyOutcome(reqCtx)
		case "/pending":
			printPending(a.Snapshot(), opts.Out)
			cancel()
			continue
		default:
			text := line
			if opts.WakeWord != "" {
				text, err = core.ExtractWakeWordCommand(line, opts.WakeWord)
				switch {
				case errors.Is(err, core.ErrWakeWordMissing):
					fmt.Fprintf(opts.Out, "(start with %q to address JANE)\n", opts.WakeWord)
					cancel()
					continue
				case errors.Is(err, core.ErrNoCommand):
					fmt.Fprintln(opts.Out, "JANE: Listening. What should I do?")
					cancel()
					continue
				}
			}
			out, err = a.Process(reqCtx, text)
		}
		cancel()

		switch {
		case core.IsNothingPending(err):
			fmt.Fprintln(opts.Out, core.MsgNothingPending)
		case errors.Is(err, context.DeadlineExceeded):
			fmt.Fprintln(opts.Out, "Still running in the background.")
		case err != nil:
			return err
		case out.Status == core.OutcomeIgnored:
		case out.Status == core.OutcomeQueued:
			fmt.Fprintf(opts.Out, "%s %s /grant or /deny\n", theme.OutcomeIcon(out.Status), out.Message)
		default:
			fmt.Fprintf(opts.Out, "%s %s\n", theme.OutcomeIcon(out.Status), out.Message)
		}
	}
}

func printPending(snap core.Snapshot, w io.Writer) {
	if len(snap.Pending) == 0 {
		fmt.Fprintln(w, "No pending high-risk commands.")
		return
	}
	for i, cmd := range snap.Pending {
		fmt.Fprintf(w, "%d. %s: %s\n", i+1, cmd.Action, utils.SingleLine(cmd.Raw))
	}
}
