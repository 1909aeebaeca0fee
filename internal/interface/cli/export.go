package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neilberkman/appforge/internal/core/archive"
)

var (
	exportOutput string
	exportDir    string
	exportName   string
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Export a project as a runnable React app",
	Long: `Export a saved project as a create-react-app style project.

By default writes <project-name>.zip in the current directory.
Use --output for a custom zip path or --dir to write an unpacked project.

Examples:
  appforge export 3f2a91c0
  appforge export 3f2a91c0 -o ~/Downloads/weather.zip
  appforge export 3f2a91c0 --dir ~/src --name weather-dashboard`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output zip path (default: <project-name>.zip in current directory)")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Write an unpacked project under this directory instead of a zip")
	exportCmd.Flags().StringVar(&exportName, "name", "", "Project name (default from config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.db.GetSession(context.Background(), args[0])
	if err != nil {
		return err
	}
	if s.Files.Len() == 0 {
		return fmt.Errorf("project %s has no generated code yet", shortID(s.ID))
	}

	opts := archive.Options{ProjectName: a.cfg.ProjectName}
	if exportName != "" {
		opts.ProjectName = exportName
	}

	if exportDir != "" {
		out, err := archive.WriteDir(exportDir, s.Files, opts)
		if err != nil {
			return fmt.Errorf("failed to write project: %w", err)
		}
		fmt.Printf("Exported project to: %s\n", out)
		fmt.Printf("Run: cd %s && npm install && npm start\n", out)
		return nil
	}

	outputPath := exportOutput
	if outputPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		outputPath = filepath.Join(cwd, projectName(opts)+".zip")
	}

	if err := archive.WriteZipFile(outputPath, s.Files, opts); err != nil {
		return fmt.Errorf("failed to write zip: %w", err)
	}
	fmt.Printf("Exported project to: %s\n", outputPath)
	return nil
}

func projectName(opts archive.Options) string {
	if opts.ProjectName == "" {
		return archive.DefaultProjectName
	}
	return opts.ProjectName
}
