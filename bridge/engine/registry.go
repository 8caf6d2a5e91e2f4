package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	"github.com/xeipuuv/gojsonschema"
)

// Registry maps tool names to their handlers and compiled argument schemas.
// Construction fails fast on a duplicate name or an invalid schema, so every
// schema advertised to the completion service is known-valid at startup.
//
// Thread safety: the registry is immutable after construction.
type Registry struct {
	tools       map[string]registeredTool
	specs       []ports.ToolSpec
	toolTimeout time.Duration
	logger      zerolog.Logger
}

type registeredTool struct {
	tool   ports.Tool
	schema *gojsonschema.Schema
}

// NewRegistry builds and validates a registry from the given tools.
func NewRegistry(logger zerolog.Logger, toolTimeout time.Duration, tools ...ports.Tool) (*Registry, error) {
	r := &Registry{
		tools:       make(map[string]registeredTool, len(tools)),
		toolTimeout: toolTimeout,
		logger:      logger.With().Str("component", "registry").Logger(),
	}

	for _, t := range tools {
		name := t.Name()
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(t.Schema()))
		if err != nil {
			return nil, fmt.Errorf("invalid schema for tool %q: %w", name, err)
		}
		r.tools[name] = registeredTool{tool: t, schema: schema}
		r.specs = append(r.specs, ports.ToolSpec{
			Name:        name,
			Description: t.Description(),
			JSONSchema:  t.Schema(),
		})
	}

	sort.Slice(r.specs, func(i, j int) bool { return r.specs[i].Name < r.specs[j].Name })
	return r, nil
}

// Specs returns the tool declarations advertised to the completion service.
func (r *Registry) Specs() []ports.ToolSpec { return r.specs }

// Invoke executes a single tool call. Every failure mode — unknown name,
// schema violation, handler error, handler panic — is converted into a
// structured error payload so the conversation loop can continue; Invoke
// never returns a Go error to the orchestrator.
func (r *Registry) Invoke(ctx context.Context, call ports.ToolCall) ports.ToolResult {
	result := ports.ToolResult{CallID: call.ID, Name: call.Name}

	reg, ok := r.tools[call.Name]
	if !ok {
		r.logger.Warn().Str("tool", call.Name).Msg("unknown tool requested")
		result.Failed = true
		result.Content = errorPayload(fmt.Sprintf("unknown tool %q", call.Name))
		return result
	}

	args := call.Args
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	validation, err := reg.schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil || !validation.Valid() {
		r.logger.Warn().Str("tool", call.Name).Msg("tool arguments rejected by schema")
		result.Failed = true
		result.Content = errorPayload(fmt.Sprintf("invalid arguments for %q", call.Name))
		return result
	}

	invokeCtx := ctx
	if r.toolTimeout > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, r.toolTimeout)
		defer cancel()
	}

	var out any
	var invokeErr error
	recovered := panics.Try(func() {
		out, invokeErr = reg.tool.Invoke(invokeCtx, args)
	})
	switch {
	case recovered != nil:
		r.logger.Error().Str("tool", call.Name).Str("panic", recovered.String()).Msg("tool handler panicked")
		result.Failed = true
		result.Content = errorPayload("tool execution failed")
		return result
	case invokeErr != nil:
		r.logger.Error().Err(invokeErr).Str("tool", call.Name).Msg("tool handler failed")
		result.Failed = true
		result.Content = errorPayload(invokeErr.Error())
		return result
	}

	payload, err := json.Marshal(out)
	if err != nil {
		result.Failed = true
		result.Content = errorPayload("tool produced unencodable result")
		return result
	}
	result.Content = string(payload)

	if term, ok := reg.tool.(ports.TerminalTool); ok && term.Terminal() {
		result.Terminal = true
	}
	return result
}

func errorPayload(msg string) string {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return string(payload)
}
