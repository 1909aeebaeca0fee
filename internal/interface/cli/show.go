package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var showFiles bool

var showCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a saved project",
	Long: `Show the prompt, plan, files and chat of a saved project.

The id may be any unique prefix of the full project id.

Examples:
  appforge show 3f2a91c0
  appforge show 3f2a --files`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showFiles, "files", false, "Print the full content of every file")
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.db.GetSession(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Println("=== PROJECT ===")
	fmt.Printf("ID:      %s\n", s.ID)
	fmt.Printf("State:   %s\n", s.State)
	fmt.Printf("Created: %s\n", formatTimestamp(s.CreatedAt))
	fmt.Printf("Updated: %s\n", formatTimestamp(s.UpdatedAt))
	if s.LastError != "" {
		fmt.Printf("Error:   %s\n", s.LastError)
	}
	fmt.Println()

	fmt.Println("=== PROMPT ===")
	fmt.Println(s.UserPrompt)
	fmt.Println()

	if s.Plan != "" {
		fmt.Println("=== PLAN ===")
		fmt.Println(s.Plan)
		fmt.Println()
	}

	if s.Files.Len() > 0 {
		fmt.Printf("=== FILES (%s) ===\n", humanize.Bytes(uint64(s.Files.TotalBytes())))
		s.Files.Each(func(name, content string) {
			fmt.Printf("%-24s %s\n", name, humanize.Bytes(uint64(len(content))))
			if showFiles {
				fmt.Println(content)
				fmt.Println()
			}
		})
		fmt.Println()
	}

	if len(s.ChatHistory) > 0 {
		fmt.Println("=== CHAT ===")
		for _, m := range s.ChatHistory {
			fmt.Printf("%s: %s\n", m.Role, m.Content)
		}
	}

	return nil
}
