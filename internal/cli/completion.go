package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/emty-pyie/Jane/internal/config"
	"github.com/emty-pyie/Jane/internal/tui/theme"
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion scripts",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	configGetCmd.ValidArgsFunction = completeConfigKeys
	configSetCmd.ValidArgsFunction = completeConfigKeys
}

// completeConfigKeys completes the first argument with known config keys and
// their current value as the description.
func completeConfigKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	out := make([]string, 0, len(config.Keys()))
	for _, key := range config.Keys() {
		if toComplete != "" && !strings.HasPrefix(key, toComplete) {
			continue
		}
		val, _ := config.GetValue(cfg, key)
		out = append(out, key+"\t"+formatCompletionValue(val))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func formatCompletionValue(v any) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ",")
	case string:
		if val == "" {
			return "(unset)"
		}
		return val
	default:
		return fmt.Sprint(val)
	}
}

func completeOutputFormats(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
}

func completeThemes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	out := make([]string, 0, len(theme.Flavors()))
	for _, f := range theme.Flavors() {
		name := string(f)
		if strings.HasPrefix(name, toComplete) {
			out = append(out, name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
