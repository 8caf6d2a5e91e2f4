// Package salesiq is the HTTP client for the chat provider's callback and
// operations APIs: progress pings, final replies, and conversation transfer.
package salesiq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/chatbridge/bridge/config"
	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
	"github.com/rs/zerolog"
)

// DispatchError reports a callback delivery the provider did not accept.
// Deliveries are never retried: a duplicated reply in the visitor's chat is
// worse than a lost one, so the exchange is considered complete either way.
type DispatchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("callback dispatch to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("callback dispatch to %s failed with status %d", e.URL, e.StatusCode)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Client talks to the provider's v2 API for one screen name. Progress pings
// use a short timeout, final replies a longer one.
type Client struct {
	cfg            config.ProviderConfig
	progressClient *http.Client
	finalClient    *http.Client
	logger         zerolog.Logger
}

func NewClient(cfg config.ProviderConfig, logger zerolog.Logger) *Client {
	return &Client{
		cfg:            cfg,
		progressClient: &http.Client{Timeout: cfg.ProgressTimeout},
		finalClient:    &http.Client{Timeout: cfg.FinalTimeout},
		logger:         logger.With().Str("component", "salesiq").Logger(),
	}
}

// SendProgress posts a short notice to extend the provider's pending
// timeout while the answer is being produced.
func (c *Client) SendProgress(ctx context.Context, requestID string) error {
	url := c.callbackURL(requestID, "progress")
	payload := map[string]any{"text": c.cfg.ProgressText}
	if err := c.post(ctx, c.progressClient, url, payload); err != nil {
		return err
	}
	c.logger.Info().Str("request_id", requestID).Msg("progress sent")
	return nil
}

// SendFinal posts the final answer, completing the pending request.
func (c *Client) SendFinal(ctx context.Context, requestID, text string) error {
	url := c.callbackURL(requestID, "response")
	payload := map[string]any{
		"action": "reply",
		"replies": []map[string]string{
			{"text": text},
		},
	}
	if err := c.post(ctx, c.finalClient, url, payload); err != nil {
		return err
	}
	c.logger.Info().Str("request_id", requestID).Msg("final response sent")
	return nil
}

// TransferConversation hands the conversation to human operators in the
// given department; operatorID is optional.
func (c *Client) TransferConversation(ctx context.Context, conversationID, departmentID, operatorID string) error {
	url := fmt.Sprintf("%s/api/v2/%s/conversations/%s/transfer",
		c.baseURL(), c.cfg.ScreenName, conversationID)
	payload := map[string]any{"department_id": departmentID}
	if operatorID != "" {
		payload["operator_id"] = operatorID
	}
	if err := c.post(ctx, c.finalClient, url, payload); err != nil {
		return err
	}
	c.logger.Info().Str("conversation_id", conversationID).Str("department_id", departmentID).Msg("conversation transferred")
	return nil
}

func (c *Client) callbackURL(requestID, action string) string {
	return fmt.Sprintf("%s/api/v2/%s/callbacks/%s/%s",
		c.baseURL(), c.cfg.ScreenName, requestID, action)
}

// baseURL accepts either a bare host (production config) or a full URL
// (tests against local servers).
func (c *Client) baseURL() string {
	if strings.Contains(c.cfg.ServerURI, "://") {
		return strings.TrimSuffix(c.cfg.ServerURI, "/")
	}
	return "https://" + c.cfg.ServerURI
}

func (c *Client) post(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &DispatchError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &DispatchError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.cfg.AccessToken)

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("provider connection error")
		return &DispatchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		c.logger.Error().Int("status", resp.StatusCode).Str("url", url).Msg("provider API error")
		return &DispatchError{URL: url, StatusCode: resp.StatusCode}
	}
	return nil
}

// Ensure Client implements the Dispatcher port.
var _ ports.Dispatcher = (*Client)(nil)
