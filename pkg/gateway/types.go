package gateway

import (
	"time"

	"github.com/harun/senja/pkg/agent"
	"github.com/harun/senja/pkg/ratelimit"
	"github.com/harun/senja/pkg/rbac"
	"github.com/harun/senja/pkg/session"
	"github.com/harun/senja/pkg/tools"
	"github.com/rs/zerolog"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Role      string `json:"role,omitempty"`
}

// ChatResponse is the success envelope for POST /v1/chat.
type ChatResponse struct {
	SessionID  string          `json:"session_id"`
	Response   string          `json:"response"`
	ToolsUsed  []agent.ToolUse `json:"tools_used,omitempty"`
	Iterations int             `json:"iterations"`
	Usage      UsageInfo       `json:"usage"`
}

// UsageInfo reports token consumption for one request.
type UsageInfo struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ErrorResponse is the error envelope for all failures.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerOptions configures the gateway server.
type ServerOptions struct {
	Host string
	Port int

	// SystemPrompt, MaxIterations and ToolTimeout are passed through to each
	// agent run.
	SystemPrompt  string
	MaxIterations int
	ToolTimeout   time.Duration

	// AuthTokens maps bearer tokens to asserted roles. Empty means no
	// token-based role assertion.
	AuthTokens map[string]string

	// DefaultRole applies when neither a token nor a role header is present.
	DefaultRole string
}

// Dependencies are the collaborators the server dispatches into.
type Dependencies struct {
	Client     agent.LLMClient
	Registry   *tools.Registry
	Sessions   session.Store
	Limiter    *ratelimit.Limiter
	KeyFunc    ratelimit.KeyFunc
	RoleConfig rbac.RoleToolConfig
	Logger     zerolog.Logger
}
