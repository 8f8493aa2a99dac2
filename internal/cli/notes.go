package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	flagNotesLimit  int
	flagNotesFollow bool
)

func init() {
	notesCmd.Flags().IntVarP(&flagNotesLimit, "limit", "n", 20, "number of recent notes to show (0 for all)")
	notesCmd.Flags().BoolVarP(&flagNotesFollow, "follow", "f", false, "keep printing notes as they are saved")

	rootCmd.AddCommand(notesCmd)
}

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List notes saved with \"note: ...\"",
	Long: `List notes from the configured backend (notes.backend = file | sqlite).

With --follow, notes saved by any JANE front end are printed as they arrive
(one JSON object per line with -j) until interrupted.`,
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
		store, err := openNotes(cfg, project)
		if err != nil {
			return err
		}
		defer store.Close()

		lines, err := store.List(cmd.Context(), flagNotesLimit)
		if err != nil {
			return fmt.Errorf("listing notes: %w", err)
		}

		out := newWriter(cmd)
		if !flagNotesFollow {
			if out.Structured() {
				return out.Write(map[string]any{
					"location": store.Location(),
					"notes":    lines,
				})
			}
			if len(lines) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No notes yet in %s\n", store.Location())
				return nil
			}
			return out.List(lines)
		}

		emit := func(line string) {
			if out.Structured() {
				_ = out.WriteNDJSON(map[string]string{"note": line})
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		for _, line := range lines {
			emit(line)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return store.Follow(ctx, emit)
	},
}
