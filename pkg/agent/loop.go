package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/harun/senja/internal/observability"
	"github.com/harun/senja/internal/tracing"
	"github.com/harun/senja/pkg/tools"
)

// Run drives the bounded request/response/tool-dispatch cycle: seed the
// conversation, call the provider, execute any requested tool calls
// concurrently, feed the results back, and repeat until the provider stops
// asking for tools or the iteration budget runs out.
func Run(ctx context.Context, cfg Config, history []Message, userInput string) (Result, error) {
	if cfg.Client == nil {
		return Result{}, fmt.Errorf("llm client is required")
	}

	registry := cfg.Registry
	if registry == nil {
		registry = tools.NewRegistry()
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"senja.agent",
		"agent.run",
		attribute.String("provider", cfg.Client.Provider()),
		attribute.Int("max_iterations", maxIterations),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, cfg.Logger)

	start := time.Now()
	messages := seedConversation(cfg.SystemPrompt, history, userInput)
	defs := registry.Definitions()

	var usage TokenUsage
	toolsUsed := []ToolUse{}

	for iteration := 1; iteration <= maxIterations; iteration++ {
		response, err := chatOnce(ctx, cfg, messages, defs)
		if err != nil {
			agentErr := wrapProviderError(err)
			span.RecordError(agentErr)
			span.SetStatus(codes.Error, agentErr.Error())
			observability.RecordAgentRun(cfg.Client.Provider(), time.Since(start), iteration, false)
			logger.Error().
				Str("code", string(agentErr.Code)).
				Int("iteration", iteration).
				Err(agentErr.Cause).
				Msg("Provider call failed")
			return Result{}, agentErr
		}

		usage.Add(response.Usage)
		if response.Usage != nil {
			observability.RecordTokenUsage(response.Usage.InputTokens, response.Usage.OutputTokens)
		}

		if response.StopReason != StopToolUse || len(response.ToolCalls) == 0 {
			observability.RecordAgentRun(cfg.Client.Provider(), time.Since(start), iteration, true)
			logger.Debug().
				Int("iterations", iteration).
				Int("tools_used", len(toolsUsed)).
				Str("stop_reason", string(response.StopReason)).
				Msg("Agent run completed")
			return Result{
				Response:   response.Content,
				ToolsUsed:  toolsUsed,
				Iterations: iteration,
				Usage:      usage,
			}, nil
		}

		if response.Content != "" {
			messages = append(messages, Message{Role: RoleAssistant, Content: response.Content})
		}

		logger.Debug().
			Int("iteration", iteration).
			Int("tool_calls", len(response.ToolCalls)).
			Msg("Dispatching tool calls")

		outcomes := dispatchToolCalls(ctx, registry, cfg.ToolTimeout, response.ToolCalls)

		lines := make([]string, 0, len(outcomes))
		for _, outcome := range outcomes {
			toolsUsed = append(toolsUsed, ToolUse{
				Name:   outcome.call.Name,
				Input:  outcome.call.Arguments,
				Output: outcome.output,
			})
			lines = append(lines, fmt.Sprintf("Tool %q returned: %s", outcome.call.Name, outcome.payload))
		}

		messages = append(messages, Message{
			Role:    RoleUser,
			Content: strings.Join(lines, "\n"),
		})
	}

	err := NewError(CodeMaxIterations, fmt.Sprintf("no terminal response after %d iterations", maxIterations), nil)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	observability.RecordAgentRun(cfg.Client.Provider(), time.Since(start), maxIterations, false)
	logger.Warn().Int("max_iterations", maxIterations).Msg("Iteration budget exhausted")
	return Result{}, err
}

// seedConversation builds the initial message list: system prompt, prior
// history with system-role entries stripped, then the new user input.
func seedConversation(systemPrompt string, history []Message, userInput string) []Message {
	messages := make([]Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	for _, msg := range history {
		if msg.Role == RoleSystem {
			continue
		}
		messages = append(messages, msg)
	}
	messages = append(messages, Message{Role: RoleUser, Content: userInput})
	return messages
}

func chatOnce(ctx context.Context, cfg Config, messages []Message, defs []tools.Definition) (*LLMResponse, error) {
	if cfg.OnDelta != nil {
		if streamer, ok := cfg.Client.(StreamingClient); ok {
			return streamer.ChatStream(ctx, messages, defs, cfg.OnDelta)
		}
	}
	return cfg.Client.Chat(ctx, messages, defs)
}

// dispatchOutcome is one settled tool call: the serialized payload fed back
// to the provider and the human-readable output recorded in the result.
type dispatchOutcome struct {
	call    ToolCall
	result  ToolResult
	payload string
	output  string
}

// dispatchToolCalls fans all requested calls out together and waits for every
// one to settle. A slow or failing call never blocks or poisons its siblings,
// and outcome order follows the order the provider requested.
func dispatchToolCalls(ctx context.Context, registry *tools.Registry, timeout time.Duration, calls []ToolCall) []dispatchOutcome {
	return iter.Map(calls, func(call *ToolCall) dispatchOutcome {
		res := registry.Execute(ctx, call.Name, call.Arguments, timeout)
		if !res.Success {
			payload, _ := json.Marshal(map[string]string{"error": res.Error})
			return dispatchOutcome{
				call:    *call,
				result:  ToolResult{ToolCallID: call.ID, Content: string(payload), IsError: true},
				payload: string(payload),
				output:  res.Error,
			}
		}

		payload, err := json.Marshal(res.Output)
		if err != nil {
			payload = []byte(fmt.Sprintf("%q", fmt.Sprintf("%v", res.Output)))
		}

		output, ok := res.Output.(string)
		if !ok {
			output = string(payload)
		}

		return dispatchOutcome{
			call:    *call,
			result:  ToolResult{ToolCallID: call.ID, Content: string(payload)},
			payload: string(payload),
			output:  output,
		}
	})
}
