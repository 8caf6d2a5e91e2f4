package ports

import (
	"context"
	"encoding/json"
)

// Chat roles used across the conversation engine.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Tool choice modes passed to the completion service.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

// ChatMessage is a single message in a completion request.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCallID string     // set on RoleTool messages, echoes the originating call
	ToolCalls  []ToolCall // set on RoleAssistant messages that requested tools
}

// ToolCall represents a model-invoked function with JSON arguments.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ChatRequest aggregates everything the provider needs to produce a completion.
type ChatRequest struct {
	System     string
	Messages   []ChatMessage     // ordered chat history (already windowed)
	Tools      []ToolSpec        // tool declarations available to the model
	ToolChoice string            // ToolChoiceAuto, ToolChoiceNone, or a tool name
	Meta       map[string]string // lightweight metadata for tracing
}

// Usage captures token accounting for cost/telemetry.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the provider's response.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
	Usage     *Usage // optional usage information
}

// Provider is the abstraction for the completion backend (LLM + retrieval
// hidden behind this port).
type Provider interface {
	Complete(ctx context.Context, req ChatRequest) (Completion, error)
}
