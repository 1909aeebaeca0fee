package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/appforge/internal/core/config"
	"github.com/neilberkman/appforge/internal/core/llm"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		fmt.Println(path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (API key masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		source := cfg.Source
		if source == "" {
			source = "(defaults, no config file)"
		}
		fmt.Printf("Source:          %s\n", source)
		fmt.Printf("Provider:        %s\n", cfg.Provider)
		fmt.Printf("Model:           %s\n", cfg.Model)
		fmt.Printf("API key:         %s\n", maskKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			fmt.Printf("Base URL:        %s\n", cfg.BaseURL)
		}
		if cfg.Provider == "bedrock" {
			fmt.Printf("Bedrock region:  %s\n", cfg.BedrockRegion)
			fmt.Printf("Bedrock profile: %s\n", cfg.BedrockProfile)
		}
		fmt.Printf("Preview port:    %d\n", cfg.PreviewPort)
		if cfg.BrowserCommand != "" {
			fmt.Printf("Browser command: %s\n", cfg.BrowserCommand)
		}
		fmt.Printf("Project name:    %s\n", cfg.ProjectName)
		fmt.Printf("Prompts dir:     %s\n", cfg.PromptsDir)
		fmt.Printf("Database:        %s\n", cfg.DBPath)
		fmt.Printf("Log:             %s (%s)\n", cfg.LogPath, cfg.LogLevel)

		if cfg.Provider != "bedrock" && llm.IsPlaceholderKey(cfg.APIKey) {
			fmt.Println()
			fmt.Println(llm.ConfigHint)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
}

func maskKey(key string) string {
	if llm.IsPlaceholderKey(key) {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}
