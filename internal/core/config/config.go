package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultProvider    = "openai"
	DefaultModel       = "gpt-4o"
	DefaultPreviewPort = 5173
	DefaultProjectName = "my-react-app"
	DefaultLogLevel    = "info"
)

type Config struct {
	Provider       string // openai or bedrock
	Model          string
	APIKey         string
	BaseURL        string // OpenAI-compatible endpoint (optional)
	BedrockRegion  string
	BedrockProfile string
	PreviewPort    int
	BrowserCommand string // Custom command to open the preview, {url} is replaced (optional)
	ProjectName    string // Top-level directory of exported projects
	LogLevel       string
	LogPath        string // empty means stderr
	DBPath         string
	PromptsDir     string // <op>.mustache files here override the built-in prompts

	// Path of the config file that was read, if any
	Source string
}

type tomlConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	BedrockRegion  string `toml:"bedrock_region"`
	BedrockProfile string `toml:"bedrock_profile"`
	PreviewPort    int    `toml:"preview_port"`
	BrowserCommand string `toml:"browser_command"`
	ProjectName    string `toml:"project_name"`
	LogLevel       string `toml:"log_level"`
	LogPath        string `toml:"log_path"`
	DBPath         string `toml:"db_path"`
}

// Dir returns ~/.config/appforge
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	return filepath.Join(home, ".config", "appforge")
}

// CacheDir returns ~/.cache/appforge, where logs go
func CacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	return filepath.Join(home, ".cache", "appforge")
}

// DefaultPath is the config file read when no --config flag is given
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Defaults returns the configuration used when no file exists
func Defaults() *Config {
	dir := Dir()
	return &Config{
		Provider:    DefaultProvider,
		Model:       DefaultModel,
		PreviewPort: DefaultPreviewPort,
		ProjectName: DefaultProjectName,
		LogLevel:    DefaultLogLevel,
		LogPath:     filepath.Join(CacheDir(), "appforge.log"),
		DBPath:      filepath.Join(dir, "projects.db"),
		PromptsDir:  filepath.Join(dir, "prompts"),
	}
}

// Load reads config from ~/.config/appforge/
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads the TOML file at path over the defaults, then applies
// browser_command.txt next to it and environment overrides. A missing file
// is not an error; a malformed one is.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(path, &tc); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.merge(tc)
		cfg.Source = path
	}

	// Custom browser command file next to the config
	if data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "browser_command.txt")); err == nil && cfg.BrowserCommand == "" {
		cfg.BrowserCommand = strings.TrimSpace(string(data))
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(tc tomlConfig) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Provider, tc.Provider)
	set(&c.Model, tc.Model)
	set(&c.APIKey, tc.APIKey)
	set(&c.BaseURL, tc.BaseURL)
	set(&c.BedrockRegion, tc.BedrockRegion)
	set(&c.BedrockProfile, tc.BedrockProfile)
	set(&c.BrowserCommand, tc.BrowserCommand)
	set(&c.ProjectName, tc.ProjectName)
	set(&c.LogLevel, tc.LogLevel)
	set(&c.LogPath, expandHome(tc.LogPath))
	set(&c.DBPath, expandHome(tc.DBPath))
	if tc.PreviewPort != 0 {
		c.PreviewPort = tc.PreviewPort
	}
	// a bedrock config without a model should not inherit the OpenAI default
	if tc.Provider == "bedrock" && tc.Model == "" {
		c.Model = ""
	}
}

// applyEnv lets the environment override the file. APPFORGE_API_KEY wins over OPENAI_API_KEY.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := getenv("APPFORGE_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := getenv("APPFORGE_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := getenv("APPFORGE_MODEL"); v != "" {
		c.Model = v
	}
}

// Validate checks values that would otherwise fail much later
func (c *Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case "openai", "bedrock":
	default:
		return fmt.Errorf("invalid provider %q: expected openai or bedrock", c.Provider)
	}
	if c.PreviewPort < 0 || c.PreviewPort > 65535 {
		return fmt.Errorf("invalid preview_port %d", c.PreviewPort)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level %q: expected debug, info, warn or error", c.LogLevel)
	}
	return nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
