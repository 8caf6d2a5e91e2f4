package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	internal "github.com/ZanzyTHEbar/chatbridge/bridge"
	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
	"github.com/rs/zerolog"
)

// ProcessRequest carries one visitor message through the conversation engine.
type ProcessRequest struct {
	SessionID      string
	ConversationID string
	DepartmentID   string
	Question       string
}

// Orchestrator runs the bounded multi-round "ask model → execute requested
// tools → ask again" loop against the completion service.
//
// The loop is terminal after at most two model consultations: round one may
// request tools, round two is forced to answer with tool use disabled. A
// terminal tool (chat transfer) that reports success ends the exchange
// without a second round.
type Orchestrator struct {
	provider ports.Provider
	store    ports.SessionStore
	registry *Registry
	builder  *PromptBuilder
	policy   RetryPolicy
	logger   zerolog.Logger
}

func NewOrchestrator(
	provider ports.Provider,
	store ports.SessionStore,
	registry *Registry,
	builder *PromptBuilder,
	policy RetryPolicy,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		store:    store,
		registry: registry,
		builder:  builder,
		policy:   policy,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Process produces the final answer for one visitor message. It never
// returns an empty answer: when the completion service yields no text the
// fixed fallback is returned and the condition logged.
func (o *Orchestrator) Process(ctx context.Context, req ProcessRequest) (string, error) {
	log := o.logger.With().Str("session_id", req.SessionID).Logger()

	history, err := o.store.Get(ctx, req.SessionID)
	if err != nil {
		// A cache outage degrades to a memoryless exchange rather than
		// failing the visitor's question.
		log.Error().Err(err).Msg("session load failed, continuing without history")
		history = nil
	}

	system := o.builder.System(req.ConversationID, req.DepartmentID)
	messages := o.builder.Messages(history, req.Question)

	first, err := o.complete(ctx, ports.ChatRequest{
		System:     system,
		Messages:   messages,
		Tools:      o.registry.Specs(),
		ToolChoice: ports.ToolChoiceAuto,
		Meta:       map[string]string{"session_id": req.SessionID, "round": "1"},
	})
	if err != nil {
		return "", fmt.Errorf("completion round 1: %w", err)
	}

	answer := first.Text
	if len(first.ToolCalls) > 0 {
		answer, err = o.toolRound(ctx, log, system, messages, first, req)
		if err != nil {
			return "", err
		}
	}

	if strings.TrimSpace(answer) == "" {
		log.Warn().Msg("completion service returned no text, using fallback answer")
		answer = internal.FallbackAnswer
	}

	o.persist(ctx, log, req.SessionID, req.Question, answer)
	return answer, nil
}

// toolRound dispatches the requested tool calls and, unless a terminal tool
// ended the exchange, forces a final answer with tool use disabled.
func (o *Orchestrator) toolRound(
	ctx context.Context,
	log zerolog.Logger,
	system string,
	messages []ports.ChatMessage,
	first ports.Completion,
	req ProcessRequest,
) (string, error) {
	messages = append(messages, ports.ChatMessage{
		Role:      ports.RoleAssistant,
		Content:   first.Text,
		ToolCalls: first.ToolCalls,
	})

	for _, call := range first.ToolCalls {
		result := o.registry.Invoke(ctx, call)
		log.Info().
			Str("tool", call.Name).
			Bool("failed", result.Failed).
			Bool("terminal", result.Terminal).
			Msg("tool dispatched")

		messages = append(messages, ports.ChatMessage{
			Role:       ports.RoleTool,
			Content:    result.Content,
			ToolCallID: result.CallID,
		})

		if result.Terminal {
			// The conversation now belongs to a human operator; do not
			// consult the model again for this exchange.
			return terminalText(result), nil
		}
	}

	second, err := o.complete(ctx, ports.ChatRequest{
		System:     system,
		Messages:   messages,
		ToolChoice: ports.ToolChoiceNone,
		Meta:       map[string]string{"session_id": req.SessionID, "round": "2"},
	})
	if err != nil {
		return "", fmt.Errorf("completion round 2: %w", err)
	}
	return second.Text, nil
}

// complete wraps one provider call in the retry executor.
func (o *Orchestrator) complete(ctx context.Context, req ports.ChatRequest) (ports.Completion, error) {
	var completion ports.Completion
	err := o.policy.Do(ctx, func(ctx context.Context) error {
		var callErr error
		completion, callErr = o.provider.Complete(ctx, req)
		return callErr
	})
	return completion, err
}

// persist appends the user/assistant pair; a failed save loses short-term
// memory for the session but never the answer itself.
func (o *Orchestrator) persist(ctx context.Context, log zerolog.Logger, sessionID, question, answer string) {
	err := o.store.AppendAndTrim(ctx, sessionID,
		ports.Turn{Role: ports.RoleUser, Content: question},
		ports.Turn{Role: ports.RoleAssistant, Content: answer},
	)
	if err != nil {
		log.Error().Err(err).Msg("session save failed")
	}
}

// terminalText extracts a user-facing message from a terminal tool result,
// falling back to a fixed handover notice.
func terminalText(result ports.ToolResult) string {
	if msg := extractMessage(result.Content); msg != "" {
		return msg
	}
	return "You are being transferred to one of our operators. One moment, please."
}

// extractMessage pulls the "message" field out of a tool's JSON payload.
func extractMessage(payload string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}
