package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "APPFORGE_API_KEY", "APPFORGE_PROVIDER", "APPFORGE_MODEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultPreviewPort, cfg.PreviewPort)
	assert.Equal(t, DefaultProjectName, cfg.ProjectName)
	assert.Empty(t, cfg.APIKey)
	assert.Empty(t, cfg.Source)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_key = "sk-file"
model = "gpt-4o-mini"
base_url = "http://localhost:11434/v1"
preview_port = 8080
project_name = "demo"
log_level = "debug"
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "browser_command.txt"), []byte("firefox {url}\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-file", cfg.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.BaseURL)
	assert.Equal(t, 8080, cfg.PreviewPort)
	assert.Equal(t, "demo", cfg.ProjectName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "firefox {url}", cfg.BrowserCommand)
	assert.Equal(t, path, cfg.Source)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`api_key = "sk-file"`), 0644))

	t.Setenv("OPENAI_API_KEY", "sk-openai")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-openai", cfg.APIKey)

	t.Setenv("APPFORGE_API_KEY", "sk-appforge")
	t.Setenv("APPFORGE_MODEL", "gpt-4.1")
	cfg, err = LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-appforge", cfg.APIKey)
	assert.Equal(t, "gpt-4.1", cfg.Model)
}

func TestBedrockDropsOpenAIDefaultModel(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("provider = \"bedrock\"\nbedrock_region = \"us-west-2\"\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "bedrock", cfg.Provider)
	assert.Empty(t, cfg.Model)
	assert.Equal(t, "us-west-2", cfg.BedrockRegion)
}

func TestInvalidConfig(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
	}{
		{"malformed toml", "api_key = "},
		{"unknown provider", `provider = "anthropic"`},
		{"bad port", `preview_port = 70000`},
		{"bad log level", `log_level = "loud"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}
}
