package llm

import (
	"context"
)

// Provider is the interface for chat-completion backends
type Provider interface {
	// Complete sends the turns in req and returns the first choice's text
	Complete(ctx context.Context, req Request) (string, error)

	// Name returns the provider name (e.g., "openai", "bedrock")
	Name() string
}

// Role of a turn sent to the model
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one turn of a completion request
type Message struct {
	Role    Role
	Content string
}

// Request is everything a provider needs for one completion
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}
