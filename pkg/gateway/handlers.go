package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/harun/senja/internal/tracing"
	"github.com/harun/senja/pkg/agent"
	"github.com/harun/senja/pkg/rbac"
)

// roleHeader carries a caller-supplied role hint. It ranks below a role
// asserted by a known bearer token.
const roleHeader = "X-Senja-Role"

// handleChat handles POST /v1/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "UNKNOWN", "method not allowed")
		return
	}

	if s.shuttingDown() {
		writeError(w, http.StatusServiceUnavailable, "UNKNOWN", "server is shutting down")
		return
	}

	s.inFlightReqs.Add(1)
	defer s.inFlightReqs.Done()

	if decision, ok := s.admit(r); !ok {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", decision.RetryAfter))
		writeError(w, http.StatusTooManyRequests, string(agent.CodeRateLimited), "rate limit exceeded")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "UNKNOWN", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "UNKNOWN", "message is required")
		return
	}

	resp, err := s.runChat(r, &req, nil)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// admit runs the rate limiter for the request. A nil limiter admits
// everything.
func (s *Server) admit(r *http.Request) (decision ratelimitDecision, ok bool) {
	if s.deps.Limiter == nil {
		return ratelimitDecision{}, true
	}
	d := s.deps.Limiter.Allow(s.deps.KeyFunc(r))
	return ratelimitDecision{RetryAfter: d.RetryAfter}, d.Allowed
}

type ratelimitDecision struct {
	RetryAfter int
}

// runChat executes the full chat pipeline for one request: role resolution,
// tool filtering, session load, the agent loop, session save. onDelta is
// non-nil only for the streaming variant.
func (s *Server) runChat(r *http.Request, req *ChatRequest, onDelta func(string)) (*ChatResponse, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session id: %w", err)
		}
		sessionID = id
	}

	ctx := tracing.NewRequestContext(r.Context())
	ctx = tracing.WithSessionID(ctx, sessionID)
	logger := tracing.LoggerFromContext(ctx, s.deps.Logger)

	requestedRole := r.Header.Get(roleHeader)
	if strings.TrimSpace(requestedRole) == "" {
		requestedRole = req.Role
	}
	role := rbac.ResolveRole(s.assertedRole(r), requestedRole, s.options.DefaultRole)
	registry := rbac.BuildFilteredRegistry(s.deps.Registry, role, s.deps.RoleConfig)

	entry, _, err := s.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	logger.Debug().
		Str("role", role).
		Int("history_len", len(entry.Messages)).
		Int("tools", registry.Len()).
		Msg("Dispatching chat request")

	result, err := agent.Run(ctx, agent.Config{
		Client:        s.deps.Client,
		Registry:      registry,
		SystemPrompt:  s.options.SystemPrompt,
		MaxIterations: s.options.MaxIterations,
		ToolTimeout:   s.options.ToolTimeout,
		OnDelta:       onDelta,
		Logger:        logger,
	}, entry.Messages, req.Message)
	if err != nil {
		return nil, err
	}

	entry = entry.Append(time.Now(),
		agent.Message{Role: agent.RoleUser, Content: req.Message},
		agent.Message{Role: agent.RoleAssistant, Content: result.Response},
	)
	if err := s.deps.Sessions.Set(ctx, sessionID, entry); err != nil {
		logger.Error().Err(err).Msg("Failed to persist session")
	}

	return &ChatResponse{
		SessionID:  sessionID,
		Response:   result.Response,
		ToolsUsed:  result.ToolsUsed,
		Iterations: result.Iterations,
		Usage: UsageInfo{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		},
	}, nil
}

// assertedRole resolves the bearer token to a role, if a token table is
// configured and the token is known.
func (s *Server) assertedRole(r *http.Request) string {
	if len(s.options.AuthTokens) == 0 {
		return ""
	}

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return s.options.AuthTokens[strings.TrimSpace(token)]
}

// writeAgentError maps an agent error to the HTTP error envelope.
func (s *Server) writeAgentError(w http.ResponseWriter, err error) {
	code := agent.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case agent.CodeRateLimited:
		status = http.StatusTooManyRequests
	case agent.CodeAPIError:
		status = http.StatusBadGateway
	}

	s.deps.Logger.Error().
		Err(err).
		Str("code", string(code)).
		Int("status", status).
		Msg("Chat request failed")

	writeError(w, status, string(code), err.Error())
}
