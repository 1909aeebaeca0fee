package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neilberkman/appforge/internal/core/preview"
)

var (
	previewPort   int
	previewCheck  bool
	previewNoOpen bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <project-id>",
	Short: "Serve a saved project's live preview",
	Long: `Serve the preview page of a saved project on localhost and open it in
the browser. Runs until interrupted.

--check renders the page in a headless Chrome instead, reports whether the
app mounted, and exits non-zero if it did not.

Examples:
  appforge preview 3f2a91c0
  appforge preview 3f2a91c0 --port 8080 --no-open
  appforge preview 3f2a91c0 --check`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().IntVar(&previewPort, "port", 0, "Port to serve on (default from config, 0 in config picks a free port)")
	previewCmd.Flags().BoolVar(&previewCheck, "check", false, "Render headlessly and report errors instead of serving")
	previewCmd.Flags().BoolVar(&previewNoOpen, "no-open", false, "Do not open the browser")
}

func runPreview(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := a.db.GetSession(ctx, args[0])
	if err != nil {
		return err
	}

	port := a.cfg.PreviewPort
	if cmd.Flags().Changed("port") {
		port = previewPort
	}
	if previewCheck {
		// a fixed port may be held by a running preview
		port = 0
	}

	srv := preview.NewServer(port, a.logger)
	doc, err := srv.Update(s.Files)
	if err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}
	for _, w := range doc.Warnings {
		printErr("warning: %s", w)
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = srv.Stop(context.Background()) }()

	if previewCheck {
		return checkPreview(ctx, srv.URL())
	}

	fmt.Printf("Preview of %s running at %s\n", shortID(s.ID), srv.URL())
	if !previewNoOpen {
		if err := preview.NewOpener(a.cfg.BrowserCommand).Open(srv.URL()); err != nil {
			printErr("could not open browser: %v", err)
		}
	}
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()
	return nil
}

func checkPreview(ctx context.Context, url string) error {
	result, err := preview.NewChecker().Check(ctx, url)
	if err != nil {
		return fmt.Errorf("headless check failed: %w", err)
	}
	if !result.Rendered {
		if result.Error != "" {
			return fmt.Errorf("app did not render: %s", result.Error)
		}
		return fmt.Errorf("app did not render anything")
	}
	fmt.Printf("OK: app rendered (%s)\n", url)
	return nil
}
