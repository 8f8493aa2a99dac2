package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/emty-pyie/Jane/internal/config"
	"github.com/emty-pyie/Jane/internal/system"
	"github.com/spf13/cobra"
)

var (
	flagConfigGlobal bool
)

func init() {
	configCmd.PersistentFlags().BoolVar(&flagConfigGlobal, "global", false, "operate on user config (~/.jane/config.toml)")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEditCmd)

	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or modify JANE configuration",
	Long: `Show the merged configuration. Layers apply in this order, later wins:
  built-in defaults
  ~/.jane/config.toml          (user, --global)
  <project>/.jane/config.toml  (project, or --config)
  JANE_<SECTION>_<KEY>         (environment, e.g. JANE_ASSISTANT_WAKE_WORD)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := newWriter(cmd)
		if out.Structured() {
			return out.Write(cfg)
		}
		rows := make([][]string, 0, len(config.Keys()))
		for _, key := range config.Keys() {
			val, _ := config.GetValue(cfg, key)
			rows = append(rows, []string{key, fmt.Sprintf("%v", val)})
		}
		return out.Table([]string{"KEY", "VALUE"}, rows)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		val, ok := config.GetValue(cfg, args[0])
		if !ok {
			return fmt.Errorf("unknown key %q", args[0])
		}
		out := newWriter(cmd)
		if !out.Structured() {
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", val)
			return nil
		}
		return out.Write(map[string]any{
			"key":   args[0],
			"value": val,
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the project (or --global) config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectPath()
		if err != nil {
			return err
		}
		userPath, projectPath := config.ConfigPaths(project, flagConfig)
		target := projectPath
		if flagConfigGlobal {
			target = userPath
		}

		value, err := config.ParseValue(args[0], args[1])
		if err != nil {
			return err
		}
		if err := config.WriteValue(target, args[0], value); err != nil {
			return err
		}

		out := newWriter(cmd)
		if !out.Structured() {
			out.Success(fmt.Sprintf("%s = %v (%s)", args[0], value, target))
			return nil
		}
		return out.Write(map[string]any{
			"path":  target,
			"key":   args[0],
			"value": value,
		})
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR (default: vi)",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectPath()
		if err != nil {
			return err
		}
		userPath, projectPath := config.ConfigPaths(project, flagConfig)
		target := projectPath
		if flagConfigGlobal {
			target = userPath
		}

		// Ensure the file exists with at least defaults for convenience.
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			if err := config.WriteValue(target, "assistant.wake_word", config.DefaultConfig().Assistant.WakeWord); err != nil {
				return err
			}
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", target, err)
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}
		argv, err := system.SplitCommandLine(editor)
		if err != nil {
			return fmt.Errorf("parsing $EDITOR: %w", err)
		}
		editCmd := exec.Command(argv[0], append(argv[1:], target)...)
		editCmd.Stdin = os.Stdin
		editCmd.Stdout = os.Stdout
		editCmd.Stderr = os.Stderr
		return editCmd.Run()
	},
}
