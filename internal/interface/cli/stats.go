package cli

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show project history statistics",
	Long: `Display statistics about saved projects.

Shows project, file and chat counts, generated code size, date range and
how many projects sit in each state.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Println("Project Statistics")
	fmt.Println("==================")
	fmt.Println()
	fmt.Printf("Total Projects:    %d\n", stats.TotalProjects)
	fmt.Printf("Total Files:       %d\n", stats.TotalFiles)
	fmt.Printf("Generated Code:    %s\n", humanize.Bytes(uint64(stats.TotalBytes)))
	fmt.Printf("Chat Messages:     %d\n", stats.TotalMessages)
	fmt.Println()

	if stats.TotalProjects == 0 {
		return nil
	}

	fmt.Printf("Oldest Project:    %s\n", formatTimestamp(stats.OldestProject))
	fmt.Printf("Newest Project:    %s\n", formatTimestamp(stats.NewestProject))
	if stats.LargestProject != "" {
		fmt.Printf("Largest Project:   %s (%s)\n", shortID(stats.LargestProject), humanize.Bytes(uint64(stats.LargestProjectLen)))
	}
	fmt.Println()

	states := make([]string, 0, len(stats.ProjectsByState))
	for s := range stats.ProjectsByState {
		states = append(states, s)
	}
	sort.Strings(states)
	fmt.Println("By State:")
	for _, s := range states {
		fmt.Printf("  %-16s %d\n", s, stats.ProjectsByState[s])
	}

	fmt.Println()
	fmt.Printf("Database:          %s\n", a.cfg.DBPath)
	return nil
}
