// Package cli implements the Cobra command-line interface for JANE.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/emty-pyie/Jane/internal/config"
	"github.com/emty-pyie/Jane/internal/output"
	"github.com/emty-pyie/Jane/internal/utils"
	"github.com/spf13/cobra"
)

// Version information set by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flag values
var (
	flagConfig  string
	flagOutput  string
	flagJSON    bool
	flagVerbose bool
	flagProject string
)

var rootCmd = &cobra.Command{
	Use:   "jane",
	Short: "JANE - a local assistant that asks before doing anything risky",
	Long: `JANE turns short natural-language commands into desktop actions.

Commands are classified by an ordered rule list. Harmless actions (telling
the time, opening a site, saving a note) run immediately. High-risk actions
wait in a first-in first-out approval queue until you grant or deny them:
  shutdown_system   - power off after a spoken countdown
  install_library   - pip install with elevated rights
  change_theme      - switch the desktop color scheme

Run "jane run" for the interactive assistant or "jane daemon start" to serve
the socket, TCP and HTTP front ends.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagProject == "" {
			return nil
		}
		abs, err := filepath.Abs(flagProject)
		if err != nil {
			return err
		}
		flagProject = abs
		if err := os.Chdir(flagProject); err != nil {
			return fmt.Errorf("changing directory to %s: %w", flagProject, err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// When no subcommand given, show quick reference card
		showQuickReference(cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		goVersion := runtime.Version()
		project, _ := projectPath()
		userPath, projectConfig := config.ConfigPaths(project, flagConfig)

		payload := map[string]any{
			"version":        version,
			"commit":         commit,
			"build_date":     date,
			"go_version":     goVersion,
			"user_config":    userPath,
			"project_config": projectConfig,
			"project_path":   project,
		}

		out := newWriter(cmd)
		if out.Structured() {
			return out.Write(payload)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "jane %s\n", version)
		fmt.Fprintf(w, "  commit:  %s\n", commit)
		fmt.Fprintf(w, "  built:   %s\n", date)
		fmt.Fprintf(w, "  go:      %s\n", goVersion)
		fmt.Fprintf(w, "  config:  %s\n", projectConfig)
		fmt.Fprintf(w, "  user:    %s\n", userPath)
		fmt.Fprintf(w, "  project: %s\n", project)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetOutput returns the configured output format.
// Precedence: CLI flags > JANE_OUTPUT_FORMAT env > default
func GetOutput() string {
	if flagJSON {
		return "json"
	}
	if flagOutput != "" && flagOutput != "text" {
		return flagOutput
	}
	if envFormat := os.Getenv("JANE_OUTPUT_FORMAT"); envFormat != "" {
		switch envFormat {
		case "json", "yaml", "text":
			return envFormat
		}
	}
	if flagOutput == "" {
		return "text"
	}
	return flagOutput
}

// newWriter returns an output writer bound to the command's streams.
func newWriter(cmd *cobra.Command) *output.Writer {
	return output.New(output.Format(GetOutput()),
		output.WithOutput(cmd.OutOrStdout()),
		output.WithErrorOutput(cmd.ErrOrStderr()),
	)
}

// projectPath returns the directory configuration is resolved against:
// --project, then JANE_PROJECT, then the working directory.
func projectPath() (string, error) {
	if flagProject != "" {
		return filepath.Abs(flagProject)
	}
	if env := strings.TrimSpace(os.Getenv("JANE_PROJECT")); env != "" {
		return env, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return cwd, nil
}

// loadConfig loads the merged configuration for the current project.
func loadConfig() (config.Config, error) {
	project, err := projectPath()
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(config.LoadOptions{
		ProjectDir: project,
		ConfigPath: flagConfig,
	})
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// cliLogger returns the stderr logger for interactive commands.
func cliLogger(cmd *cobra.Command, cfg config.Config) *log.Logger {
	level := cfg.Daemon.LogLevel
	if flagVerbose {
		level = "debug"
	}
	logger := utils.InitDefaultLogger(level)
	logger.SetOutput(cmd.ErrOrStderr())
	return logger
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path (replaces .jane/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format: text, json, yaml (env: JANE_OUTPUT_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "shorthand for --output=json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "C", "", "project directory")
	_ = rootCmd.RegisterFlagCompletionFunc("output", completeOutputFormats)

	rootCmd.AddCommand(versionCmd)
}
