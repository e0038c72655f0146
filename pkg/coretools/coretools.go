// Package coretools registers the baseline tools shipped with the runtime.
package coretools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harun/senja/pkg/tools"
)

const fetchBodyLimit = 64 * 1024

// Options configures core tool registration.
type Options struct {
	// HTTPClient is used by fetch_url. Defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

// Register registers the baseline tools into the registry.
func Register(registry *tools.Registry, opts Options) error {
	if registry == nil {
		return errors.New("tool registry is required")
	}

	all := []tools.Tool{
		echoTool(),
		currentTimeTool(),
		calcTool(),
		fetchURLTool(opts),
	}

	for _, tool := range all {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

func echoTool() tools.Tool {
	return tools.Tool{
		Name:        "echo",
		Description: "Echo the provided text back unchanged.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to echo",
				},
			},
			"required": []string{"text"},
		},
		Handler: func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
			text, _ := input["text"].(string)
			return text, nil
		},
	}
}

func currentTimeTool() tools.Tool {
	return tools.Tool{
		Name:        "current_time",
		Description: "Return the current time, optionally in a named IANA timezone.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"timezone": map[string]interface{}{
					"type":        "string",
					"description": "IANA timezone name, e.g. Asia/Jakarta. Defaults to UTC.",
				},
			},
		},
		Handler: func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
			loc := time.UTC
			if name, ok := input["timezone"].(string); ok && name != "" {
				parsed, err := time.LoadLocation(name)
				if err != nil {
					return nil, fmt.Errorf("unknown timezone %q", name)
				}
				loc = parsed
			}
			return time.Now().In(loc).Format(time.RFC3339), nil
		},
	}
}

func calcTool() tools.Tool {
	return tools.Tool{
		Name:        "calc",
		Description: "Apply a basic arithmetic operation (add, sub, mul, div) to two numbers.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"op": map[string]interface{}{
					"type": "string",
					"enum": []string{"add", "sub", "mul", "div"},
				},
				"a": map[string]interface{}{"type": "number"},
				"b": map[string]interface{}{"type": "number"},
			},
			"required": []string{"op", "a", "b"},
		},
		Handler: func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
			op, _ := input["op"].(string)
			a, _ := input["a"].(float64)
			b, _ := input["b"].(float64)

			switch op {
			case "add":
				return a + b, nil
			case "sub":
				return a - b, nil
			case "mul":
				return a * b, nil
			case "div":
				if b == 0 {
					return nil, errors.New("division by zero")
				}
				return a / b, nil
			default:
				return nil, fmt.Errorf("unsupported operation %q", op)
			}
		},
	}
}

func fetchURLTool(opts Options) tools.Tool {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return tools.Tool{
		Name:        "fetch_url",
		Description: "Fetch a URL over HTTP GET and return the response body, truncated to 64KiB.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "URL to fetch (http or https)",
				},
			},
			"required": []string{"url"},
		},
		Handler: func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
			rawURL, _ := input["url"].(string)
			if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
				return nil, fmt.Errorf("unsupported URL scheme in %q", rawURL)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return nil, fmt.Errorf("invalid URL: %w", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyLimit))
			if err != nil {
				return nil, fmt.Errorf("failed to read response body: %w", err)
			}

			return map[string]interface{}{
				"status": resp.StatusCode,
				"body":   string(body),
			}, nil
		},
	}
}
