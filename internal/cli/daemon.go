package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/emty-pyie/Jane/internal/config"
	"github.com/emty-pyie/Jane/internal/core"
	"github.com/emty-pyie/Jane/internal/daemon"
	"github.com/emty-pyie/Jane/internal/notes"
	"github.com/emty-pyie/Jane/internal/utils"
	"github.com/emty-pyie/Jane/internal/web"
	"github.com/spf13/cobra"
)

var (
	flagDaemonStartForeground bool
	flagDaemonNoHTTP          bool
	flagDaemonStopTimeoutSecs int
	flagDaemonLogsFollow      bool
	flagDaemonLogsLines       int
)

func init() {
	daemonStartCmd.Flags().BoolVar(&flagDaemonStartForeground, "foreground", false, "run in the foreground instead of detaching")
	daemonStartCmd.Flags().BoolVar(&flagDaemonNoHTTP, "no-http", false, "do not serve the HTTP dashboard API")
	daemonStopCmd.Flags().IntVar(&flagDaemonStopTimeoutSecs, "timeout", 10, "seconds to wait for the daemon to exit")
	daemonLogsCmd.Flags().BoolVarP(&flagDaemonLogsFollow, "follow", "f", false, "keep printing new log lines")
	daemonLogsCmd.Flags().IntVarP(&flagDaemonLogsLines, "lines", "n", 200, "number of lines to show")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonLogsCmd)

	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the JANE background daemon",
	Long: `The daemon owns one assistant and serves it to every front end:
  unix socket   line-delimited JSON-RPC (jane submit/approve/deny/pending/state)
  TCP           same protocol behind a token handshake (daemon.tcp_addr)
  HTTP          the dashboard API on daemon.http_addr

A desktop notification is raised whenever a high-risk command starts waiting.`,
}

// daemonProjectPath returns the project the daemon serves: --project, then
// JANE_PROJECT, then the working directory.
func daemonProjectPath() (string, error) {
	return projectPath()
}

// daemonPaths returns the socket and PID file for cfg. Unset paths default
// to per-project files under $TMPDIR.
func daemonPaths(cfg config.Config) (socket, pidFile string, err error) {
	socket, pidFile = cfg.Daemon.IPCSocket, cfg.Daemon.PIDFile
	if socket != "" && pidFile != "" {
		return socket, pidFile, nil
	}
	project, err := daemonProjectPath()
	if err != nil {
		return "", "", err
	}
	if socket == "" {
		socket = daemon.DefaultSocketPath(project)
	}
	if pidFile == "" {
		pidFile = daemon.DefaultPIDFile(project)
	}
	return socket, pidFile, nil
}

func daemonProbe(cfg config.Config) (*daemon.Probe, error) {
	socket, pidFile, err := daemonPaths(cfg)
	if err != nil {
		return nil, err
	}
	return daemon.NewProbe(socket, pidFile), nil
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		probe, err := daemonProbe(cfg)
		if err != nil {
			return err
		}
		if report := probe.Check(cmd.Context()); report.Reachable() {
			return fmt.Errorf("daemon already running: %s", report.Message)
		}
		if flagDaemonStartForeground {
			return runDaemonForeground(cmd, cfg)
		}
		return startDaemonBackground(cmd, cfg)
	},
}

// runDaemonForeground serves until SIGINT or SIGTERM.
func runDaemonForeground(cmd *cobra.Command, cfg config.Config) error {
	project, err := daemonProjectPath()
	if err != nil {
		return err
	}

	level := cfg.Daemon.LogLevel
	if flagVerbose {
		level = "debug"
	}
	logger, logFile, err := utils.InitDaemonLogger(level)
	if err != nil {
		return err
	}
	defer logFile.Close()

	hub := daemon.NewEventHub()
	deps := defaultAssistantDeps()
	notifier := daemon.NewNotificationManager(cfg.Notifications, logger, daemon.SystemNotifier(deps.launcher, deps.platform))
	deps.listener = core.MultiListener{hub, notifier}

	a, err := newAssistant(cfg, project, logger, deps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	socket, pidFile, err := daemonPaths(cfg)
	if err != nil {
		return err
	}
	opts := daemon.Options{
		SocketPath: socket,
		PIDFile:    pidFile,
		Assistant:  a,
		Hub:        hub,
		Logger:     logger,
	}
	if cfg.Daemon.TCPAddr != "" {
		opts.TCP = &daemon.TCPServerOptions{
			Addr:        cfg.Daemon.TCPAddr,
			RequireAuth: cfg.Daemon.TCPRequireAuth,
			AuthToken:   cfg.Daemon.TCPAuthToken,
			AllowedIPs:  cfg.Daemon.TCPAllowedIPs,
		}
	}
	if cfg.Daemon.HTTPAddr != "" && !flagDaemonNoHTTP {
		opts.HTTPAddr = cfg.Daemon.HTTPAddr
		opts.HTTP = web.New(a, logger, web.WithVersion(version), web.WithBaseContext(ctx))
		a.Boot("Web", web.Greeting)
	} else {
		a.Boot("", "")
	}

	runErr := daemon.Run(ctx, opts)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	notifier.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// startDaemonBackground re-executes jane in the foreground mode as a child
// and waits for it to answer on the socket.
func startDaemonBackground(cmd *cobra.Command, cfg config.Config) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating jane binary: %w", err)
	}
	project, err := daemonProjectPath()
	if err != nil {
		return err
	}

	childArgs := []string{"daemon", "start", "--foreground", "--project", project}
	if flagConfig != "" {
		abs, err := filepath.Abs(flagConfig)
		if err != nil {
			return err
		}
		childArgs = append(childArgs, "--config", abs)
	}
	if flagDaemonNoHTTP {
		childArgs = append(childArgs, "--no-http")
	}
	if flagVerbose {
		childArgs = append(childArgs, "--verbose")
	}

	child := exec.Command(exe, childArgs...)
	child.Dir = project
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	pid := child.Process.Pid
	_ = child.Process.Release()

	probe, err := daemonProbe(cfg)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if probe.Running(cmd.Context()) {
			out := newWriter(cmd)
			if out.Structured() {
				return out.Write(map[string]any{"status": "started", "pid": pid})
			}
			out.Success(fmt.Sprintf("daemon started (pid %d)", pid))
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	logPath, _ := utils.DaemonLogPath()
	return fmt.Errorf("daemon did not come up within 5s; see %s", logPath)
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		probe, err := daemonProbe(cfg)
		if err != nil {
			return err
		}
		info := probe.Check(cmd.Context())
		if info.PID == 0 || info.Health == daemon.NotRunning {
			return fmt.Errorf("daemon not running: %s", info.Message)
		}

		proc, err := os.FindProcess(info.PID)
		if err != nil {
			return fmt.Errorf("finding process %d: %w", info.PID, err)
		}
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("signalling process %d: %w", info.PID, err)
		}

		deadline := time.Now().Add(time.Duration(flagDaemonStopTimeoutSecs) * time.Second)
		for time.Now().Before(deadline) {
			if !probe.Running(cmd.Context()) {
				newWriter(cmd).Success(fmt.Sprintf("daemon stopped (pid %d)", info.PID))
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}
		return fmt.Errorf("daemon (pid %d) still running after %ds", info.PID, flagDaemonStopTimeoutSecs)
	},
}

// daemonStatusView is the structured output of daemon status.
type daemonStatusView struct {
	Status      string `json:"status"`
	PID         int    `json:"pid,omitempty"`
	PIDFile     string `json:"pid_file,omitempty"`
	Socket      string `json:"socket"`
	Endpoint    string `json:"endpoint,omitempty"`
	Message     string `json:"message"`
	Pending     *int   `json:"pending,omitempty"`
	Subscribers int    `json:"subscribers,omitempty"`
	Uptime      string `json:"uptime,omitempty"`
}

func newDaemonStatusView(r daemon.Report) daemonStatusView {
	view := daemonStatusView{
		Status:   r.Health.String(),
		PID:      r.PID,
		PIDFile:  r.PIDFile,
		Socket:   r.Socket,
		Endpoint: r.Endpoint,
		Message:  r.Message,
	}
	if r.Reachable() {
		pending := r.Pending
		view.Pending = &pending
		view.Subscribers = r.Subscribers
		view.Uptime = r.Uptime.String()
	}
	return view
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the daemon is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		probe, err := daemonProbe(cfg)
		if err != nil {
			return err
		}
		view := newDaemonStatusView(probe.Check(cmd.Context()))

		out := newWriter(cmd)
		if out.Structured() {
			return out.Write(view)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "daemon:  %s\n", view.Status)
		if view.PID != 0 {
			fmt.Fprintf(w, "pid:     %d\n", view.PID)
		}
		fmt.Fprintf(w, "socket:  %s\n", view.Socket)
		if view.Pending != nil {
			fmt.Fprintf(w, "via:     %s\n", view.Endpoint)
			fmt.Fprintf(w, "pending: %d\n", *view.Pending)
			fmt.Fprintf(w, "uptime:  %s\n", view.Uptime)
		}
		fmt.Fprintf(w, "%s\n", view.Message)
		return nil
	},
}

var daemonLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the daemon log (~/.jane/daemon.log)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := daemonLogPath()
		if err != nil {
			return err
		}
		lines, err := tailFileLines(path, flagDaemonLogsLines)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
		if !flagDaemonLogsFollow {
			return nil
		}
		return followFile(cmd.Context(), path, w)
	},
}

func daemonLogPath() (string, error) {
	return utils.DaemonLogPath()
}

// tailFileLines returns the last n lines of path. n <= 0 means 200.
func tailFileLines(path string, n int) ([]string, error) {
	if n <= 0 {
		n = 200
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ring, nil
}

// followFile prints lines appended to path until ctx is done. The log is
// tailed with the same fsnotify follower the notes file uses.
func followFile(ctx context.Context, path string, w io.Writer) error {
	return notes.NewFileStore(path).Follow(ctx, func(line string) {
		fmt.Fprintln(w, line)
	})
}
