package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoSchema = `{
  "type": "object",
  "properties": {
    "text": {"type": "string", "minLength": 1}
  },
  "required": ["text"]
}`

// stubTool is a configurable in-test tool.
type stubTool struct {
	name     string
	schema   string
	terminal bool
	invoke   func(ctx context.Context, args json.RawMessage) (any, error)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub tool" }
func (s *stubTool) Schema() []byte      { return []byte(s.schema) }
func (s *stubTool) Terminal() bool      { return s.terminal }

func (s *stubTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	return s.invoke(ctx, args)
}

func echoTool(name string) *stubTool {
	return &stubTool{
		name:   name,
		schema: echoSchema,
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			return map[string]string{"message": in.Text}, nil
		},
	}
}

func newTestRegistry(t *testing.T, tools ...ports.Tool) *Registry {
	t.Helper()
	r, err := NewRegistry(zerolog.Nop(), time.Second, tools...)
	require.NoError(t, err)
	return r
}

func TestNewRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry(zerolog.Nop(), time.Second, echoTool("echo"), echoTool("echo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool name")
}

func TestNewRegistryRejectsInvalidSchema(t *testing.T) {
	bad := &stubTool{name: "broken", schema: `{"type": ["not", 42`}
	_, err := NewRegistry(zerolog.Nop(), time.Second, bad)
	require.Error(t, err)
}

func TestRegistrySpecsAreSorted(t *testing.T) {
	r := newTestRegistry(t, echoTool("zulu"), echoTool("alpha"), echoTool("mike"))

	specs := r.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, "alpha", specs[0].Name)
	assert.Equal(t, "mike", specs[1].Name)
	assert.Equal(t, "zulu", specs[2].Name)
}

func TestRegistryInvokeSuccess(t *testing.T) {
	r := newTestRegistry(t, echoTool("echo"))

	result := r.Invoke(context.Background(), ports.ToolCall{
		ID:   "call-1",
		Name: "echo",
		Args: json.RawMessage(`{"text": "hola"}`),
	})

	assert.Equal(t, "call-1", result.CallID)
	assert.False(t, result.Failed)
	assert.False(t, result.Terminal)
	assert.JSONEq(t, `{"message": "hola"}`, result.Content)
}

func TestRegistryInvokeUnknownTool(t *testing.T) {
	r := newTestRegistry(t, echoTool("echo"))

	result := r.Invoke(context.Background(), ports.ToolCall{ID: "c", Name: "missing"})

	assert.True(t, result.Failed)
	assert.Contains(t, result.Content, "unknown tool")
	assert.JSONEq(t, `{"error": "unknown tool \"missing\""}`, result.Content)
}

func TestRegistryInvokeRejectsSchemaViolation(t *testing.T) {
	r := newTestRegistry(t, echoTool("echo"))

	result := r.Invoke(context.Background(), ports.ToolCall{
		ID:   "c",
		Name: "echo",
		Args: json.RawMessage(`{"text": 42}`),
	})

	assert.True(t, result.Failed)
	assert.Contains(t, result.Content, "invalid arguments")
}

func TestRegistryInvokeEmptyArgsValidatedAsEmptyObject(t *testing.T) {
	relaxed := &stubTool{
		name:   "noargs",
		schema: `{"type": "object", "properties": {}}`,
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			return map[string]bool{"ok": true}, nil
		},
	}
	r := newTestRegistry(t, relaxed)

	result := r.Invoke(context.Background(), ports.ToolCall{ID: "c", Name: "noargs"})

	assert.False(t, result.Failed)
	assert.JSONEq(t, `{"ok": true}`, result.Content)
}

func TestRegistryInvokeConvertsHandlerError(t *testing.T) {
	failing := echoTool("fail")
	failing.invoke = func(ctx context.Context, args json.RawMessage) (any, error) {
		return nil, assert.AnError
	}
	r := newTestRegistry(t, failing)

	result := r.Invoke(context.Background(), ports.ToolCall{
		ID:   "c",
		Name: "fail",
		Args: json.RawMessage(`{"text": "x"}`),
	})

	assert.True(t, result.Failed)
	assert.Contains(t, result.Content, assert.AnError.Error())
}

func TestRegistryInvokeContainsHandlerPanic(t *testing.T) {
	panicking := echoTool("boom")
	panicking.invoke = func(ctx context.Context, args json.RawMessage) (any, error) {
		panic("handler exploded")
	}
	r := newTestRegistry(t, panicking)

	result := r.Invoke(context.Background(), ports.ToolCall{
		ID:   "c",
		Name: "boom",
		Args: json.RawMessage(`{"text": "x"}`),
	})

	assert.True(t, result.Failed)
	assert.JSONEq(t, `{"error": "tool execution failed"}`, result.Content)
}

func TestRegistryInvokeMarksTerminalOnSuccessOnly(t *testing.T) {
	term := echoTool("handover")
	term.terminal = true
	r := newTestRegistry(t, term)

	ok := r.Invoke(context.Background(), ports.ToolCall{
		ID:   "c1",
		Name: "handover",
		Args: json.RawMessage(`{"text": "x"}`),
	})
	assert.True(t, ok.Terminal)

	term.invoke = func(ctx context.Context, args json.RawMessage) (any, error) {
		return nil, assert.AnError
	}
	failed := r.Invoke(context.Background(), ports.ToolCall{
		ID:   "c2",
		Name: "handover",
		Args: json.RawMessage(`{"text": "x"}`),
	})
	assert.True(t, failed.Failed)
	assert.False(t, failed.Terminal, "a failed terminal tool must not end the exchange")
}
