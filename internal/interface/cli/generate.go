package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/appforge/internal/core/archive"
	"github.com/neilberkman/appforge/internal/core/models"
	"github.com/neilberkman/appforge/internal/core/workflow"
)

var (
	generateOut  string
	generateZip  string
	generateYes  bool
	generateName string
)

var generateCmd = &cobra.Command{
	Use:   "generate <description>",
	Short: "Generate an app without the interactive UI",
	Long: `Run the plan and code steps for a description, then write the project.

The plan is printed and must be approved (y), regenerated (r) or rejected
(n) unless --yes is given. The project is written under --out (default:
current directory) or as a zip with --zip. It is also saved to history.

Examples:
  appforge generate "a pomodoro timer with a task list"
  appforge generate "a weather dashboard" --yes --zip weather.zip
  appforge generate "a kanban board" --out ~/src --name kanban`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateOut, "out", "", "Directory to write the project under (default: current directory)")
	generateCmd.Flags().StringVar(&generateZip, "zip", "", "Write a zip file instead of a directory")
	generateCmd.Flags().BoolVarP(&generateYes, "yes", "y", false, "Approve the plan without asking")
	generateCmd.Flags().StringVar(&generateName, "name", "", "Project name (default from config)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	description := strings.Join(args, " ")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl, err := a.controller(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Generating plan...")
	if err := ctrl.SubmitPrompt(ctx, description); err != nil {
		return stepError(ctrl, err)
	}

	in := bufio.NewReader(os.Stdin)
	for {
		s := ctrl.Snapshot()
		fmt.Println()
		fmt.Println("=== PLAN ===")
		fmt.Println(s.Plan)
		fmt.Println()

		if generateYes {
			break
		}
		answer, err := ask(in, os.Stdout, "Approve plan? [y]es / [r]egenerate / [n]o: ")
		if err != nil {
			return err
		}
		if answer == "n" {
			fmt.Printf("Stopped. The plan is saved as %s\n", shortID(s.ID))
			return nil
		}
		if answer != "r" {
			break
		}
		fmt.Println("Regenerating plan...")
		if err := ctrl.RegeneratePlan(ctx); err != nil {
			return stepError(ctrl, err)
		}
	}

	fmt.Println("Generating code...")
	if err := ctrl.ApprovePlan(ctx); err != nil {
		return stepError(ctrl, err)
	}
	if err := ctrl.ApproveCode(); err != nil {
		return err
	}

	s := ctrl.Snapshot()
	printFiles(s.Files)

	opts := archive.Options{ProjectName: a.cfg.ProjectName}
	if generateName != "" {
		opts.ProjectName = generateName
	}

	if generateZip != "" {
		if err := archive.WriteZipFile(generateZip, s.Files, opts); err != nil {
			return fmt.Errorf("failed to write zip: %w", err)
		}
		fmt.Printf("\nWrote %s\n", generateZip)
	} else {
		parent := generateOut
		if parent == "" {
			if parent, err = os.Getwd(); err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
		}
		out, err := archive.WriteDir(parent, s.Files, opts)
		if err != nil {
			return fmt.Errorf("failed to write project: %w", err)
		}
		fmt.Printf("\nWrote %s\nRun: cd %s && npm install && npm start\n", out, out)
	}

	fmt.Printf("Saved as %s (appforge preview %s)\n", shortID(s.ID), shortID(s.ID))
	return nil
}

// ask reads a one-letter answer; an empty line means yes
func ask(in *bufio.Reader, out io.Writer, question string) (string, error) {
	fmt.Fprint(out, question)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("no answer: %w", err)
	}
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return "y", nil
	}
	return line[:1], nil
}

// stepError prefers the session's user-facing message over the raw error
func stepError(ctrl *workflow.Controller, err error) error {
	if msg := ctrl.Snapshot().LastError; msg != "" {
		return errors.New(msg)
	}
	return err
}

func printFiles(files models.FileMap) {
	fmt.Printf("\nGenerated %d file(s), %s:\n", files.Len(), humanize.Bytes(uint64(files.TotalBytes())))
	files.Each(func(name, content string) {
		fmt.Printf("  %-24s %s\n", name, humanize.Bytes(uint64(len(content))))
	})
}
