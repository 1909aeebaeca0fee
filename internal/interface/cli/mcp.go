package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/appforge/cmd/appforge/mcp"
	"github.com/neilberkman/appforge/internal/core/workflow"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server so other assistants can generate apps",
	Long: `Start an MCP (Model Context Protocol) server over stdio exposing plan,
code and improvement generation plus the project history.

Configure in your MCP client's config file:
  {
    "mcpServers": {
      "appforge": {
        "command": "appforge",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	// the server closes the database
	defer func() { _ = a.logClose.Close() }()

	factory := func(ctx context.Context) (*workflow.Controller, error) {
		return a.controller(ctx)
	}
	version := rootCmd.Version
	if version == "" {
		version = "dev"
	}
	if err := mcp.StartServer(a.db, factory, version); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
