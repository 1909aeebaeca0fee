package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/appforge/internal/core/llm"
)

var promptCmd = &cobra.Command{
	Use:   "prompt plan|code|improve <project-id> [request]",
	Short: "Show the exact prompt that would be sent for a project",
	Long: `Render the system and user prompt for one step of a saved project,
using the built-in templates or the overrides in the prompts directory.

Examples:
  appforge prompt plan 3f2a91c0
  appforge prompt code 3f2a91c0
  appforge prompt improve 3f2a91c0 "make the header sticky"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	op := args[0]

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.db.GetSession(context.Background(), args[1])
	if err != nil {
		return err
	}

	t, err := a.templates()
	if err != nil {
		return err
	}

	var call llm.Call
	switch op {
	case llm.OpPlan:
		call, err = t.PlanPrompt(s.UserPrompt)
	case llm.OpCode:
		if s.Plan == "" {
			return fmt.Errorf("project %s has no plan yet", shortID(s.ID))
		}
		call, err = t.CodePrompt(s.UserPrompt, s.Plan)
	case llm.OpImprove:
		if len(args) < 3 {
			return fmt.Errorf("improve needs a request, e.g. appforge prompt improve %s \"make it blue\"", shortID(s.ID))
		}
		call, err = t.ImprovePrompt(s.UserPrompt, s.Files, strings.Join(args[2:], " "))
	default:
		return fmt.Errorf("unknown step %q: expected plan, code or improve", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	fmt.Println("=== PROJECT ===")
	fmt.Printf("ID:          %s\n", s.ID)
	fmt.Printf("State:       %s\n", s.State)
	fmt.Printf("Updated:     %s\n", formatTimestamp(s.UpdatedAt))
	fmt.Printf("Model:       %s (%s)\n", a.cfg.Model, a.cfg.Provider)
	fmt.Printf("Max tokens:  %d\n", call.Options.MaxTokens)
	fmt.Printf("Temperature: %.1f\n", call.Options.Temperature)
	fmt.Printf("Prompt size: %s\n", humanize.Bytes(uint64(len(call.System)+len(call.User))))
	fmt.Println()
	fmt.Println("=== SYSTEM ===")
	fmt.Println(call.System)
	fmt.Println()
	fmt.Println("=== USER ===")
	fmt.Println(call.User)

	return nil
}
