// Package adapters contains the concrete implementations of the engine ports:
// the completion-service client and the session stores.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/chatbridge/bridge/config"
	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
	"github.com/rs/zerolog"
)

// OpenAIProvider speaks the OpenAI-compatible chat completions protocol,
// optionally attaching an Azure AI Search retrieval block ("on your data")
// to tool-free requests so answers are grounded in the indexed documents.
type OpenAIProvider struct {
	cfg    config.CompletionConfig
	client *http.Client
	logger zerolog.Logger
}

func NewOpenAIProvider(cfg config.CompletionConfig, logger zerolog.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "completion").Logger(),
	}
}

// Wire types for the chat completions protocol.

type wireFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Arguments   string          `json:"arguments,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireRequest struct {
	Messages    []wireMessage    `json:"messages"`
	Temperature float32          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
	Tools       []wireTool       `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
	DataSources []map[string]any `json:"data_sources,omitempty"`
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one chat completions request. Rate limiting and transient
// upstream failures surface as *ports.UpstreamError so the retry executor
// can classify them; request timeouts are mapped to a retryable 504.
func (p *OpenAIProvider) Complete(ctx context.Context, req ports.ChatRequest) (ports.Completion, error) {
	body := wireRequest{
		Messages:    p.buildMessages(req),
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	}
	if len(req.Tools) > 0 {
		// The service rejects requests that combine tool declarations
		// with a retrieval data source (HTTP 400), so grounding is only
		// attached to tool-free requests.
		body.ToolChoice = req.ToolChoice
		for _, spec := range req.Tools {
			body.Tools = append(body.Tools, wireTool{
				Type: "function",
				Function: wireFunction{
					Name:        spec.Name,
					Description: spec.Description,
					Parameters:  json.RawMessage(spec.JSONSchema),
				},
			})
		}
	} else {
		body.DataSources = p.dataSources()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("encode completion request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.cfg.Endpoint, p.cfg.Deployment, p.cfg.APIVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return ports.Completion{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return ports.Completion{}, &ports.UpstreamError{StatusCode: http.StatusGatewayTimeout, Err: err}
		}
		return ports.Completion{}, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		p.logger.Warn().Int("status", resp.StatusCode).Msg("completion service error")
		return ports.Completion{}, &ports.UpstreamError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("completion service: %s", string(raw)),
		}
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return ports.Completion{}, fmt.Errorf("decode completion response: %w", err)
	}
	if len(wire.Choices) == 0 {
		return ports.Completion{}, nil
	}

	out := ports.Completion{Text: wire.Choices[0].Message.Content}
	for _, call := range wire.Choices[0].Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ports.ToolCall{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: json.RawMessage(call.Function.Arguments),
		})
	}
	if wire.Usage != nil {
		out.Usage = &ports.Usage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}
	return out, nil
}

func (p *OpenAIProvider) buildMessages(req ports.ChatRequest) []wireMessage {
	messages := make([]wireMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, wireMessage{Role: ports.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		wm := wireMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, call := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   call.ID,
				Type: "function",
				Function: wireFunction{
					Name:      call.Name,
					Arguments: string(call.Args),
				},
			})
		}
		messages = append(messages, wm)
	}
	return messages
}

// dataSources renders the retrieval block. An empty search endpoint means
// the deployment answers without grounding (useful in tests and dev).
func (p *OpenAIProvider) dataSources() []map[string]any {
	if p.cfg.SearchEndpoint == "" {
		return nil
	}
	return []map[string]any{
		{
			"type": "azure_search",
			"parameters": map[string]any{
				"endpoint":               p.cfg.SearchEndpoint,
				"index_name":             p.cfg.SearchIndex,
				"query_type":             "vector_semantic_hybrid",
				"semantic_configuration": "default",
				"fields_mapping": map[string]any{
					"content_fields": []string{"content"},
					"title_field":    "title",
				},
				"authentication": map[string]any{
					"type": "api_key",
					"key":  p.cfg.SearchAPIKey,
				},
				"embedding_dependency": map[string]any{
					"type":            "deployment_name",
					"deployment_name": p.cfg.EmbeddingDeployment,
				},
			},
		},
	}
}

// parseRetryAfter handles both Retry-After forms: delta-seconds and an
// HTTP-date. Past dates and garbage yield no hint.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Ensure OpenAIProvider implements the Provider port.
var _ ports.Provider = (*OpenAIProvider)(nil)
