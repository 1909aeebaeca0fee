package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/appforge/internal/core/db"
	"github.com/neilberkman/appforge/internal/core/search"
)

var (
	listLimit int
	listSince string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated projects",
	Long: `List saved projects in reverse chronological order.

Shows the prompt, state, file and chat counts, and when each project was
last touched. --since accepts dates or natural language.

Examples:
  appforge list
  appforge list --limit 10
  appforge list --since yesterday
  appforge list --since "last week"
  appforge list --since 2026-01-15`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of projects to display")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only projects updated after this date")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	opts := db.ListOptions{Limit: listLimit}
	if listSince != "" {
		since, ok := search.ParseDate(listSince, time.Now())
		if !ok {
			return fmt.Errorf("could not understand --since %q", listSince)
		}
		opts.Since = since
	}

	projects, err := a.db.ListProjects(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(projects) == 0 {
		if listSince != "" {
			fmt.Printf("No projects updated since %s\n", listSince)
		} else {
			fmt.Println("No projects yet. Run 'appforge' to create one.")
		}
		return nil
	}

	fmt.Printf("Showing %d project(s)\n\n", len(projects))

	for i, p := range projects {
		fmt.Printf("[%d] %s\n", i+1, p.SessionID)
		fmt.Printf("    Prompt:  %s\n", truncate(p.UserPrompt, 80))
		fmt.Printf("    State:   %s\n", p.State)
		fmt.Printf("    Files:   %d, chat messages: %d\n", p.FileCount, p.MessageCount)
		if p.LastError != "" {
			fmt.Printf("    Error:   %s\n", truncate(p.LastError, 80))
		}
		fmt.Printf("    Updated: %s\n", formatTimestamp(p.UpdatedAt))
		fmt.Println()
	}

	return nil
}

// formatTimestamp is relative for the last month, a date after that
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	now := time.Now()
	if now.Sub(t) < 30*24*time.Hour {
		return humanize.Time(t)
	}
	if t.Year() == now.Year() {
		return t.Local().Format("Jan 2")
	}
	return t.Local().Format("Jan 2, 2006")
}
