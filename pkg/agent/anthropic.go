package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/harun/senja/pkg/tools"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicClient implements LLMClient for Anthropic Claude.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey, model string, maxTokens int) *AnthropicClient {
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Provider returns the provider name.
func (c *AnthropicClient) Provider() string {
	return "anthropic"
}

func (c *AnthropicClient) buildParams(messages []Message, defs []tools.Definition) anthropic.MessageNewParams {
	anthropicMessages := []anthropic.MessageParam{}
	systemPrompt := ""

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			// The API takes the system prompt out of band.
			systemPrompt = msg.Content
		case RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case RoleAssistant:
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		Messages:  anthropicMessages,
		MaxTokens: int64(c.maxTokens),
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	if len(defs) > 0 {
		toolParams := []anthropic.ToolUnionParam{}
		for _, def := range defs {
			toolParam := anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: def.InputSchema["properties"],
				},
			}
			toolParam.InputSchema.Required = requiredFields(def.InputSchema)
			toolParams = append(toolParams, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = toolParams
	}

	return params
}

// requiredFields extracts the schema's required list. Schemas built in code
// carry []string; schemas decoded from JSON carry []interface{}.
func requiredFields(schema map[string]interface{}) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []interface{}:
		names := make([]string, 0, len(required))
		for _, v := range required {
			if name, ok := v.(string); ok {
				names = append(names, name)
			}
		}
		return names
	default:
		return nil
	}
}

func (c *AnthropicClient) toResponse(message *anthropic.Message) (*LLMResponse, error) {
	content := ""
	toolCalls := []ToolCall{}

	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += b.Text
		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}

	stopReason := StopEndTurn
	switch string(message.StopReason) {
	case "tool_use":
		stopReason = StopToolUse
	case "max_tokens":
		stopReason = StopMaxTokens
	}

	return &LLMResponse{
		Content:    content,
		ToolCalls:  toolCalls,
		StopReason: stopReason,
		Usage: &TokenUsage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
	}, nil
}

func (c *AnthropicClient) classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return classifyStatus(apierr.StatusCode, err)
	}
	return err
}

// Chat makes a single non-streaming API call.
func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, defs []tools.Definition) (*LLMResponse, error) {
	response, err := c.client.Messages.New(ctx, c.buildParams(messages, defs))
	if err != nil {
		return nil, c.classify(err)
	}
	return c.toResponse(response)
}

// ChatStream makes a streaming API call, invoking onDelta for each text
// fragment as it is produced, and returns the accumulated final response.
func (c *AnthropicClient) ChatStream(ctx context.Context, messages []Message, defs []tools.Definition, onDelta func(text string)) (*LLMResponse, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.buildParams(messages, defs))

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("failed to accumulate stream event: %w", err)
		}

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if deltaVariant, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok && onDelta != nil {
				onDelta(deltaVariant.Text)
			}
		}
	}

	if err := stream.Err(); err != nil {
		return nil, c.classify(err)
	}

	return c.toResponse(&message)
}
