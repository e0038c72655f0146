package agent

import (
	"context"
	"fmt"

	"github.com/harun/senja/pkg/tools"
)

// LLMClient is the single polymorphic capability every vendor must satisfy.
// New vendors are new implementations, never subclasses.
type LLMClient interface {
	// Chat sends the full message list and tool definitions and returns the
	// provider's turn. Failures must be classifiable as rate-limit, server
	// error, or other.
	Chat(ctx context.Context, messages []Message, defs []tools.Definition) (*LLMResponse, error)

	// Provider returns the vendor name for logs and metrics.
	Provider() string
}

// StreamingClient is optionally implemented by vendors that can surface
// incremental text. The loop uses it when a delta callback is configured.
type StreamingClient interface {
	LLMClient

	ChatStream(ctx context.Context, messages []Message, defs []tools.Definition, onDelta func(text string)) (*LLMResponse, error)
}

// ClientConfig selects and configures a provider client.
type ClientConfig struct {
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int
}

// NewClient builds an LLM client from config.
func NewClient(cfg ClientConfig) (LLMClient, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
