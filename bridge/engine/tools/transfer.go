package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Transferrer hands an active conversation over to human operators.
// bridge/salesiq provides the implementation.
type Transferrer interface {
	TransferConversation(ctx context.Context, conversationID, departmentID, operatorID string) error
}

// TransferResult reports the handover outcome to the model.
type TransferResult struct {
	Status             string `json:"status"`
	ConversationClosed bool   `json:"conversationClosed"`
	Message            string `json:"message"`
}

// TransferTool moves the conversation to a human operator. It is terminal:
// once the transfer succeeds the orchestrator ends the exchange instead of
// consulting the model again.
type TransferTool struct {
	transferrer Transferrer
}

func NewTransferTool(transferrer Transferrer) *TransferTool {
	return &TransferTool{transferrer: transferrer}
}

func (t *TransferTool) Name() string { return "transfer_chat_to_operators" }

func (t *TransferTool) Description() string {
	return "Transfers the active conversation to a human operator in the given " +
		"department. Use it only when the visitor asks for a person and customer " +
		"service is available."
}

func (t *TransferTool) Schema() []byte { return []byte(TransferSchema) }

// Terminal marks the tool as exchange-ending on success.
func (t *TransferTool) Terminal() bool { return true }

func (t *TransferTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		ConversationID string `json:"conversation_id"`
		DepartmentID   string `json:"department_id"`
		OperatorID     string `json:"operator_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode transfer args: %w", err)
	}
	if strings.TrimSpace(in.ConversationID) == "" || strings.TrimSpace(in.DepartmentID) == "" {
		return nil, fmt.Errorf("transfer requires conversation_id and department_id")
	}

	if err := t.transferrer.TransferConversation(ctx, in.ConversationID, in.DepartmentID, in.OperatorID); err != nil {
		return nil, fmt.Errorf("transfer conversation: %w", err)
	}
	return TransferResult{
		Status:             "transferred",
		ConversationClosed: true,
		Message:            "Te estamos transfiriendo con uno de nuestros asesores. Un momento, por favor.",
	}, nil
}
