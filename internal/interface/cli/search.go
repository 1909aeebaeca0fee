package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neilberkman/appforge/internal/core/search"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search saved projects",
	Long: `Search prompts, plans and chat messages of saved projects.

Uses FTS5 full-text search with porter stemming. Queries containing
characters like - _ @ # fall back to exact substring matching, and a
fuzzy match over prompts runs when nothing else hits.

Filters: state:<name>, after:<date>, before:<date>, date:<date>

Examples:
  appforge search "weather dashboard"
  appforge search dark-mode
  appforge search timer after:last-week
  appforge search state:chat`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum number of results to show")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := search.Search(context.Background(), a.db, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Printf("No results found for: %s\n", query)
		return nil
	}

	fmt.Printf("Found %d match(es) for: %s\n\n", len(results), query)

	for i, r := range results {
		fmt.Printf("[%d] %s  (%s, %s)\n", i+1, shortID(r.SessionID), r.State, formatTimestamp(r.UpdatedAt))
		fmt.Printf("    Prompt: %s\n", truncate(r.Prompt, 80))
		if r.Field != search.FieldPrompt && r.Field != search.FieldID {
			fmt.Printf("    %s: %s\n", strings.ToUpper(r.Field[:1])+r.Field[1:], truncate(r.Snippet, 160))
		}
		fmt.Println()
	}

	return nil
}
