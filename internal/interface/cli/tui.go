package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/neilberkman/appforge/internal/core/preview"
	"github.com/neilberkman/appforge/internal/interface/tui"
)

var exportDirFlag string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive app builder",
	Long: `Launch the interactive terminal UI: describe an app, review the plan and
code, preview it in the browser and refine it through chat.

Every step is saved to the project history; ctrl+o inside the TUI opens it.

Examples:
  appforge
  appforge tui --export-dir ~/projects`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVar(&exportDirFlag, "export-dir", "", "Directory for exported projects (default: current directory)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	return runInteractive(cmd.Context(), "")
}

// runInteractive runs the TUI, first loading the saved project resumeID when set
func runInteractive(ctx context.Context, resumeID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl, err := a.controller(ctx)
	if err != nil {
		return err
	}

	a.watchTemplates(ctx, ctrl)

	if resumeID != "" {
		s, err := a.db.GetSession(ctx, resumeID)
		if err != nil {
			return err
		}
		if err := ctrl.Load(s); err != nil {
			return fmt.Errorf("failed to resume %s: %w", resumeID, err)
		}
	}

	dir := exportDirFlag
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	srv := preview.NewServer(a.cfg.PreviewPort, a.logger)
	defer func() { _ = srv.Stop(context.Background()) }()

	model := tui.New(tui.Options{
		Controller:  ctrl,
		DB:          a.db,
		Preview:     srv,
		Opener:      preview.NewOpener(a.cfg.BrowserCommand),
		ExportDir:   dir,
		ProjectName: a.cfg.ProjectName,
		Context:     ctx,
	})
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
