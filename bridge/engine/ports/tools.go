package ports

import (
	"context"
	"encoding/json"
)

// ToolSpec describes a callable tool exposed to the model.
type ToolSpec struct {
	Name        string // unique logical name
	Description string // concise doc for model selection
	JSONSchema  []byte // JSON schema for args (Draft-07 compatible)
}

// Tool defines the runtime that executes a tool call.
type Tool interface {
	Name() string
	Description() string
	Schema() []byte
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// TerminalTool marks a tool that, on success, ends the exchange: the
// orchestrator must not consult the model again after it reports success.
type TerminalTool interface {
	Tool
	Terminal() bool
}

// ToolResult is the structured outcome of one tool invocation, fed back into
// the next completion round as a tool turn.
type ToolResult struct {
	CallID   string
	Name     string
	Content  string // JSON payload produced by the handler (or error payload)
	Failed   bool   // handler or validation failure, converted, never raised
	Terminal bool   // a TerminalTool reported success
}
