package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/harun/senja/internal/observability"
)

// DefaultTimeout bounds a single tool execution unless the caller overrides it.
const DefaultTimeout = 30 * time.Second

// Handler is the function signature for tool execution. It receives input
// already validated against the tool's schema.
type Handler func(ctx context.Context, input map[string]interface{}) (interface{}, error)

// Tool is a named callable with a JSON Schema describing its input.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
	Handler     Handler                `json:"-"`
}

// Definition is the wire shape advertised to LLM providers.
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Result is the uniform outcome of one execution. Failures are data, not
// errors: the agent loop feeds them back into the conversation.
type Result struct {
	Success bool        `json:"success"`
	Output  interface{} `json:"output,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type registered struct {
	tool   Tool
	schema *gojsonschema.Schema
}

// Registry holds named, schema-validated tools and executes them by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registered
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*registered),
	}
}

// Register adds a tool, compiling its schema once. Re-registering a name
// replaces the previous tool but keeps its original position in the listing
// order.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if t.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	schemaDoc := t.InputSchema
	if schemaDoc == nil {
		schemaDoc = map[string]interface{}{"type": "object"}
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaDoc))
	if err != nil {
		return fmt.Errorf("failed to compile schema for tool %s: %w", t.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = &registered{tool: t, schema: schema}

	log.Debug().Str("tool", t.Name).Msg("Tool registered")

	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.tools[name]
	if !ok {
		return Tool{}, false
	}
	return reg.tool, true
}

// List returns registered tool names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// Definitions projects the registry to the wire shape LLM providers expect,
// in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		reg := r.tools[name]
		schemaDoc := reg.tool.InputSchema
		if schemaDoc == nil {
			schemaDoc = map[string]interface{}{"type": "object"}
		}
		defs = append(defs, Definition{
			Name:        reg.tool.Name,
			Description: reg.tool.Description,
			InputSchema: schemaDoc,
		})
	}
	return defs
}

// Clone builds a new registry holding only the named tools, shared by
// reference with this registry. Names not present here are skipped, so the
// result is always a subset view. The receiver is never mutated.
func (r *Registry) Clone(names []string) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := NewRegistry()
	for _, name := range names {
		reg, ok := r.tools[name]
		if !ok {
			continue
		}
		out.tools[name] = reg
		out.order = append(out.order, name)
	}
	return out
}

// Execute validates args against the tool's schema, invokes the handler, and
// races it against a timer. The handler receives the caller's context, not a
// timeout-derived one: on timeout the registry stops waiting, it does not
// cancel the in-flight work.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}, timeout time.Duration) Result {
	start := time.Now()

	r.mu.RLock()
	reg := r.tools[name]
	r.mu.RUnlock()

	if reg == nil {
		log.Warn().Str("tool", name).Msg("Tool not found")
		return Result{
			Success: false,
			Error:   fmt.Sprintf("Tool not found: %s", name),
		}
	}

	if args == nil {
		args = map[string]interface{}{}
	}

	validation, err := reg.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return Result{
			Success: false,
			Error:   fmt.Sprintf("argument validation failed: %v", err),
		}
	}
	if !validation.Valid() {
		msgs := ""
		for i, verr := range validation.Errors() {
			if i > 0 {
				msgs += "; "
			}
			msgs += verr.String()
		}
		log.Debug().Str("tool", name).Str("errors", msgs).Msg("Argument validation failed")
		return Result{
			Success: false,
			Error:   fmt.Sprintf("argument validation failed: %s", msgs),
		}
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	resultCh := make(chan interface{}, 1)
	errCh := make(chan error, 1)

	go func() {
		output, err := reg.tool.Handler(ctx, args)
		if err != nil {
			errCh <- err
		} else {
			resultCh <- output
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case output := <-resultCh:
		observability.RecordToolExecution(name, time.Since(start), true)
		return Result{Success: true, Output: output}

	case err := <-errCh:
		observability.RecordToolExecution(name, time.Since(start), false)
		log.Debug().Str("tool", name).Err(err).Msg("Tool execution failed")
		return Result{Success: false, Error: err.Error()}

	case <-timer.C:
		observability.RecordToolExecution(name, time.Since(start), false)
		log.Warn().Str("tool", name).Dur("timeout", timeout).Msg("Tool execution timed out")
		return Result{
			Success: false,
			Error:   fmt.Sprintf("tool execution timed out after %v", timeout),
		}
	}
}
