package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	internal "github.com/ZanzyTHEbar/chatbridge/bridge"
	"github.com/ZanzyTHEbar/chatbridge/bridge/engine/adapters"
	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider scripts completion responses and records every request.
type stubProvider struct {
	requests  []ports.ChatRequest
	responses []ports.Completion
	err       error
}

func (s *stubProvider) Complete(ctx context.Context, req ports.ChatRequest) (ports.Completion, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return ports.Completion{}, s.err
	}
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		return ports.Completion{}, nil
	}
	return s.responses[idx], nil
}

func newTestOrchestrator(t *testing.T, provider ports.Provider, store ports.SessionStore, tools ...ports.Tool) *Orchestrator {
	t.Helper()
	registry := newTestRegistry(t, tools...)
	return NewOrchestrator(
		provider,
		store,
		registry,
		NewPromptBuilder("You are the clinic assistant."),
		fastPolicy(2),
		zerolog.Nop(),
	)
}

func memoryStore() *adapters.MemorySessionStore {
	return adapters.NewMemorySessionStore(time.Minute, 6)
}

func processRequest() ProcessRequest {
	return ProcessRequest{
		SessionID:      "visitor-1",
		ConversationID: "conv-9",
		DepartmentID:   "dept-3",
		Question:       "¿Cuánto cuesta el botox?",
	}
}

func TestProcessDirectAnswerSingleRound(t *testing.T) {
	provider := &stubProvider{responses: []ports.Completion{{Text: "El botox cuesta 200€."}}}
	store := memoryStore()
	o := newTestOrchestrator(t, provider, store, echoTool("echo"))

	answer, err := o.Process(context.Background(), processRequest())
	require.NoError(t, err)
	assert.Equal(t, "El botox cuesta 200€.", answer)
	require.Len(t, provider.requests, 1)

	round1 := provider.requests[0]
	assert.Equal(t, ports.ToolChoiceAuto, round1.ToolChoice)
	assert.Len(t, round1.Tools, 1)
	require.Len(t, round1.Messages, 1)
	assert.Equal(t, ports.RoleUser, round1.Messages[0].Role)

	history, err := store.Get(context.Background(), "visitor-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ports.RoleUser, history[0].Role)
	assert.Equal(t, ports.RoleAssistant, history[1].Role)
	assert.Equal(t, "El botox cuesta 200€.", history[1].Content)
}

func TestProcessToolRoundMakesExactlyTwoCalls(t *testing.T) {
	provider := &stubProvider{responses: []ports.Completion{
		{ToolCalls: []ports.ToolCall{{
			ID:   "call-1",
			Name: "echo",
			Args: json.RawMessage(`{"text": "precio"}`),
		}}},
		{Text: "Según la tarifa, 200€."},
	}}
	o := newTestOrchestrator(t, provider, memoryStore(), echoTool("echo"))

	answer, err := o.Process(context.Background(), processRequest())
	require.NoError(t, err)
	assert.Equal(t, "Según la tarifa, 200€.", answer)
	require.Len(t, provider.requests, 2)

	round2 := provider.requests[1]
	assert.Equal(t, ports.ToolChoiceNone, round2.ToolChoice)
	assert.Empty(t, round2.Tools, "round two must not offer tools")

	// Round two carries the assistant tool request and the tool result.
	var sawToolResult bool
	for _, m := range round2.Messages {
		if m.Role == ports.RoleTool {
			sawToolResult = true
			assert.Equal(t, "call-1", m.ToolCallID)
			assert.JSONEq(t, `{"message": "precio"}`, m.Content)
		}
	}
	assert.True(t, sawToolResult)
}

func TestProcessFailedToolStillGetsSecondRound(t *testing.T) {
	failing := echoTool("echo")
	failing.invoke = func(ctx context.Context, args json.RawMessage) (any, error) {
		return nil, assert.AnError
	}
	provider := &stubProvider{responses: []ports.Completion{
		{ToolCalls: []ports.ToolCall{{
			ID:   "call-1",
			Name: "echo",
			Args: json.RawMessage(`{"text": "x"}`),
		}}},
		{Text: "No he podido consultarlo ahora mismo."},
	}}
	o := newTestOrchestrator(t, provider, memoryStore(), failing)

	answer, err := o.Process(context.Background(), processRequest())
	require.NoError(t, err)
	assert.Equal(t, "No he podido consultarlo ahora mismo.", answer)
	require.Len(t, provider.requests, 2)
}

func TestProcessTerminalToolSkipsSecondRound(t *testing.T) {
	handover := echoTool("handover")
	handover.terminal = true
	provider := &stubProvider{responses: []ports.Completion{
		{ToolCalls: []ports.ToolCall{{
			ID:   "call-1",
			Name: "handover",
			Args: json.RawMessage(`{"text": "Te transferimos con un asesor."}`),
		}}},
	}}
	o := newTestOrchestrator(t, provider, memoryStore(), handover)

	answer, err := o.Process(context.Background(), processRequest())
	require.NoError(t, err)
	assert.Equal(t, "Te transferimos con un asesor.", answer)
	assert.Len(t, provider.requests, 1, "terminal tool must end the exchange without a second round")
}

func TestProcessEmptyAnswerUsesFallback(t *testing.T) {
	provider := &stubProvider{responses: []ports.Completion{{Text: "   "}}}
	store := memoryStore()
	o := newTestOrchestrator(t, provider, store)

	answer, err := o.Process(context.Background(), processRequest())
	require.NoError(t, err)
	assert.Equal(t, internal.FallbackAnswer, answer)

	// The fallback is still persisted as the assistant turn.
	history, err := store.Get(context.Background(), "visitor-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, internal.FallbackAnswer, history[1].Content)
}

func TestProcessProviderFailurePropagates(t *testing.T) {
	provider := &stubProvider{err: assert.AnError}
	store := memoryStore()
	o := newTestOrchestrator(t, provider, store)

	_, err := o.Process(context.Background(), processRequest())
	require.Error(t, err)

	// Nothing is persisted for a failed exchange.
	history, getErr := store.Get(context.Background(), "visitor-1")
	require.NoError(t, getErr)
	assert.Empty(t, history)
}

func TestProcessCarriesHistoryIntoPrompt(t *testing.T) {
	store := memoryStore()
	require.NoError(t, store.Save(context.Background(), "visitor-1", []ports.Turn{
		{Role: ports.RoleUser, Content: "Hola"},
		{Role: ports.RoleAssistant, Content: "¡Hola! ¿En qué puedo ayudarte?"},
	}))

	provider := &stubProvider{responses: []ports.Completion{{Text: "Claro."}}}
	o := newTestOrchestrator(t, provider, store)

	_, err := o.Process(context.Background(), processRequest())
	require.NoError(t, err)

	require.Len(t, provider.requests, 1)
	messages := provider.requests[0].Messages
	require.Len(t, messages, 3)
	assert.Equal(t, "Hola", messages[0].Content)
	assert.Equal(t, "¡Hola! ¿En qué puedo ayudarte?", messages[1].Content)
	assert.Equal(t, "¿Cuánto cuesta el botox?", messages[2].Content)
}

func TestProcessHistoryStaysBounded(t *testing.T) {
	store := memoryStore()
	provider := &stubProvider{}
	o := newTestOrchestrator(t, provider, store)

	for i := 0; i < 5; i++ {
		provider.responses = append(provider.responses, ports.Completion{Text: "Respuesta."})
	}
	for i := 0; i < 5; i++ {
		_, err := o.Process(context.Background(), processRequest())
		require.NoError(t, err)
	}

	history, err := store.Get(context.Background(), "visitor-1")
	require.NoError(t, err)
	assert.Len(t, history, 6, "history must stay within the configured bound")
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "hola", extractMessage(`{"message": " hola "}`))
	assert.Empty(t, extractMessage(`{"status": "ok"}`))
	assert.Empty(t, extractMessage(`not json`))
}
