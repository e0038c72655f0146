package agent

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/senja/pkg/tools"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StopReason is the provider's signal for why a turn ended.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// DefaultMaxIterations bounds the loop when the config leaves it unset.
const DefaultMaxIterations = 10

// Message is one conversation turn. Order is semantically significant: the
// ordered sequence is the prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCall is one tool invocation requested by the provider in a turn.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult is the outcome fed back to the provider. It is always produced,
// failures included: at this boundary failure is data, not a fault.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// TokenUsage tracks provider token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates usage from one provider turn.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// LLMResponse is the uniform provider response shape.
type LLMResponse struct {
	Content    string      `json:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	StopReason StopReason  `json:"stop_reason"`
	Usage      *TokenUsage `json:"usage,omitempty"`
}

// Config is the immutable per-run loop configuration.
type Config struct {
	Client        LLMClient
	Registry      *tools.Registry
	SystemPrompt  string
	MaxIterations int
	ToolTimeout   time.Duration
	OnDelta       func(text string)
	Logger        zerolog.Logger
}

// ToolUse records one tool dispatched during a run, for the terminal result.
type ToolUse struct {
	Name   string                 `json:"name"`
	Input  map[string]interface{} `json:"input"`
	Output string                 `json:"output"`
}

// Result is the terminal artifact of one loop run.
type Result struct {
	Response   string     `json:"response"`
	ToolsUsed  []ToolUse  `json:"tools_used"`
	Iterations int        `json:"iterations"`
	Usage      TokenUsage `json:"usage"`
}
