package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emty-pyie/Jane/internal/core"
	"github.com/emty-pyie/Jane/internal/daemon"
	"github.com/emty-pyie/Jane/internal/tui/theme"
	"github.com/emty-pyie/Jane/internal/utils"
	"github.com/spf13/cobra"
)

var (
	flagRemoteTimeoutSecs int
	flagPendingWatch      bool
	flagStateLines        int
)

func init() {
	for _, c := range []*cobra.Command{submitCmd, approveCmd, denyCmd, pendingCmd, stateCmd} {
		c.Flags().IntVar(&flagRemoteTimeoutSecs, "timeout", 120, "seconds to wait for the daemon")
	}
	pendingCmd.Flags().BoolVarP(&flagPendingWatch, "watch", "w", false, "stream approval events until interrupted")
	stateCmd.Flags().IntVarP(&flagStateLines, "lines", "n", 20, "number of log lines to show (0 for all)")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(denyCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(stateCmd)
}

// daemonSocket returns the configured socket, or the default for this
// project directory.
func daemonSocket() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	socket, _, err := daemonPaths(cfg)
	return socket, err
}

// withDaemon connects to the daemon and runs fn with a bounded context.
func withDaemon(cmd *cobra.Command, fn func(ctx context.Context, client *daemon.IPCClient) error) error {
	socket, err := daemonSocket()
	if err != nil {
		return err
	}
	timeout := time.Duration(flagRemoteTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client := daemon.NewIPCClient(socket)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("%w (is \"jane daemon start\" running?)", err)
	}
	defer client.Close()
	return fn(ctx, client)
}

// printOutcome renders an outcome. A failed action becomes the command error
// so scripts see a non-zero exit status.
func printOutcome(cmd *cobra.Command, out *core.Outcome) error {
	w := newWriter(cmd)
	if w.Structured() {
		return w.Write(out)
	}
	if out.Status == core.OutcomeFailed {
		return errors.New(out.Message)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", theme.OutcomeIcon(out.Status), out.Message)
	if out.Status == core.OutcomeQueued && out.Parsed != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s is waiting: run \"jane approve\" or \"jane deny\"\n", out.Parsed.Action)
	}
	return nil
}

// submitText sends text to the daemon and prints the outcome.
func submitText(cmd *cobra.Command, text string) error {
	return withDaemon(cmd, func(ctx context.Context, client *daemon.IPCClient) error {
		out, err := client.Submit(ctx, text)
		if err != nil {
			return err
		}
		return printOutcome(cmd, out)
	})
}

var submitCmd = &cobra.Command{
	Use:   "submit <text>",
	Short: "Send a command to the running daemon",
	Long: `Send text to the daemon as if it were typed into JANE.

Normal commands run immediately and the result is printed. High-risk
commands are queued; approve or deny them with "jane approve" / "jane deny".

Examples:
  jane submit "what time is it"
  jane submit "note: buy milk" -j`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitText(cmd, strings.Join(args, " "))
	},
}

func decide(cmd *cobra.Command, call func(client *daemon.IPCClient, ctx context.Context) (*core.Outcome, error)) error {
	return withDaemon(cmd, func(ctx context.Context, client *daemon.IPCClient) error {
		out, err := call(client, ctx)
		if daemon.IsNothingPending(err) {
			return errors.New(core.MsgNothingPending)
		}
		if err != nil {
			return err
		}
		return printOutcome(cmd, out)
	})
}

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Run the oldest high-risk command waiting for approval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, (*daemon.IPCClient).Approve)
	},
}

var denyCmd = &cobra.Command{
	Use:   "deny",
	Short: "Drop the oldest high-risk command waiting for approval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, (*daemon.IPCClient).Deny)
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List high-risk commands awaiting approval",
	Long: `List the approval queue, oldest first. "jane approve" and "jane deny"
always act on the first entry.

With --watch, approval events are streamed (one JSON object per line with -j)
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPendingWatch {
			return watchEvents(cmd)
		}
		return withDaemon(cmd, func(ctx context.Context, client *daemon.IPCClient) error {
			state, err := client.State(ctx)
			if err != nil {
				return err
			}
			out := newWriter(cmd)
			if out.Structured() {
				return out.Write(state.Pending)
			}
			if len(state.Pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending high-risk commands.")
				return nil
			}
			rows := make([][]string, 0, len(state.Pending))
			for i, p := range state.Pending {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					string(p.Action),
					utils.Truncate(utils.SingleLine(p.Raw), 50),
					queuedAt(p.CreatedAt),
				})
			}
			return out.Table([]string{"#", "ACTION", "COMMAND", "QUEUED"}, rows)
		})
	},
}

// queuedAt renders an RFC3339 queue stamp as local wall-clock time. A stamp
// that does not parse is shown as-is.
func queuedAt(stamp string) string {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	return t.Local().Format(time.Kitchen)
}

// watchEvents streams daemon events until the command context ends.
func watchEvents(cmd *cobra.Command) error {
	socket, err := daemonSocket()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client := daemon.NewIPCClient(socket)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("%w (is \"jane daemon start\" running?)", err)
	}
	events, err := client.Subscribe(ctx)
	if err != nil {
		_ = client.Close()
		return err
	}

	out := newWriter(cmd)
	for ev := range events {
		if out.Structured() {
			if err := out.WriteNDJSON(ev); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), describeEvent(ev))
	}
	return nil
}

func describeEvent(ev daemon.Event) string {
	stamp := ev.Time.Local().Format(time.Kitchen)
	raw := utils.SingleLine(ev.Command.Raw)
	switch ev.Type {
	case daemon.EventApprovalRequired:
		return fmt.Sprintf("%s  waiting   %s: %s", stamp, ev.Command.Action, raw)
	case daemon.EventDenied:
		return fmt.Sprintf("%s  denied    %s", stamp, raw)
	case daemon.EventResult:
		status := "done"
		msg := ""
		if ev.Result != nil {
			msg = ev.Result.Message
			if !ev.Result.OK {
				status = "failed"
			}
		}
		return fmt.Sprintf("%s  %-8s  %s: %s", stamp, status, raw, msg)
	default:
		return fmt.Sprintf("%s  %s  %s", stamp, ev.Type, raw)
	}
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the daemon's transcript and approval queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(cmd, func(ctx context.Context, client *daemon.IPCClient) error {
			state, err := client.State(ctx)
			if err != nil {
				return err
			}
			logs := state.Logs
			if flagStateLines > 0 && len(logs) > flagStateLines {
				logs = logs[len(logs)-flagStateLines:]
			}

			out := newWriter(cmd)
			if out.Structured() {
				view := *state
				view.Logs = logs
				return out.Write(view)
			}
			if err := out.List(logs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d pending high-risk command(s)\n", len(state.Pending))
			return nil
		})
	},
}
