package cli

import (
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <project-id>",
	Short: "Reopen a saved project in the TUI",
	Long: `Load a project from the history and continue where it left off. A
project saved while a generation was running resumes in the state that
generation started from.

The id may be any unique prefix, as printed by list and search.

Examples:
  appforge resume 3f2a91c0
  appforge resume 3f2a`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	return runInteractive(cmd.Context(), args[0])
}
