package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Settings select and configure the provider a Client talks to
type Settings struct {
	Provider       string // "openai" (default) or "bedrock"
	Model          string
	APIKey         string
	BaseURL        string
	BedrockRegion  string
	BedrockProfile string
}

// placeholderKeys are values shipped in sample configs that are never real credentials
var placeholderKeys = []string{
	"your_api_key_here",
	"your-api-key",
	"your-api-key-here",
	"sk-...",
	"sk-your-key-here",
	"changeme",
}

// IsPlaceholderKey reports whether key is empty or a known placeholder
func IsPlaceholderKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return true
	}
	for _, p := range placeholderKeys {
		if k == p {
			return true
		}
	}
	return false
}

// ConfigHint is shown when no usable credential is configured
const ConfigHint = "Please configure your OpenAI API key: set api_key in the config file or export OPENAI_API_KEY"

// Client sends built prompts to a Provider and classifies failures
type Client struct {
	provider Provider
	model    string
	logger   *slog.Logger
}

// NewClient constructs the configured provider. A missing or placeholder
// credential fails here with ErrConfig rather than on first use.
func NewClient(ctx context.Context, s Settings, logger *slog.Logger) (*Client, error) {
	var provider Provider

	switch strings.ToLower(s.Provider) {
	case "", "openai":
		if IsPlaceholderKey(s.APIKey) {
			return nil, &Error{Kind: ErrConfig, Op: "init", Err: errors.New(ConfigHint)}
		}
		p, err := NewOpenAIProvider(OpenAIConfig{APIKey: s.APIKey, Model: s.Model, BaseURL: s.BaseURL})
		if err != nil {
			return nil, &Error{Kind: ErrConfig, Op: "init", Err: err}
		}
		provider = p
	case "bedrock":
		p, err := NewBedrockProvider(ctx, BedrockConfig{
			Region:  s.BedrockRegion,
			ModelID: s.Model,
			Profile: s.BedrockProfile,
		})
		if err != nil {
			return nil, &Error{Kind: ErrConfig, Op: "init", Err: err}
		}
		provider = p
	default:
		return nil, &Error{Kind: ErrConfig, Op: "init", Err: fmt.Errorf("unknown provider %q (expected openai or bedrock)", s.Provider)}
	}

	return NewClientWithProvider(provider, s.Model, logger), nil
}

// NewClientWithProvider wraps an already constructed provider
func NewClientWithProvider(p Provider, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{provider: p, model: model, logger: logger}
}

// ProviderName returns the backing provider's name
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Complete sends call as [system, user] turns and returns the response text.
// Errors are always *Error. No retries are attempted.
func (c *Client) Complete(ctx context.Context, call Call) (string, error) {
	req := Request{
		Model: c.model,
		Messages: []Message{
			{Role: RoleSystem, Content: call.System},
			{Role: RoleUser, Content: call.User},
		},
		Temperature: call.Options.Temperature,
		MaxTokens:   call.Options.MaxTokens,
	}

	start := time.Now()
	text, err := c.provider.Complete(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		kind := classify(err)
		c.logger.Error("completion failed",
			"provider", c.provider.Name(),
			"op", call.Op,
			"duration", elapsed,
			"kind", kind.Error(),
			"error", err,
		)
		return "", &Error{Kind: kind, Op: call.Op, Err: err}
	}

	c.logger.Info("completion",
		"provider", c.provider.Name(),
		"op", call.Op,
		"duration", elapsed,
		"prompt_bytes", len(call.User),
		"response_bytes", len(text),
	)
	return text, nil
}
