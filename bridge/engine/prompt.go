package engine

import (
	"fmt"
	"strings"

	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
)

// PromptBuilder assembles the system prompt and model-ready messages from
// instructions, session history, and the new user turn.
type PromptBuilder struct {
	instructions string
}

func NewPromptBuilder(instructions string) *PromptBuilder {
	return &PromptBuilder{instructions: norm(instructions)}
}

// System renders the system prompt: the assistant instructions followed by an
// internal conversation-context block the model must not surface to the user.
func (b *PromptBuilder) System(conversationID, departmentID string) string {
	var sb strings.Builder
	sb.WriteString(b.instructions)
	if conversationID != "" || departmentID != "" {
		sb.WriteString("\n\nConversation context (internal, do not ask the user):\n")
		if conversationID != "" {
			fmt.Fprintf(&sb, "- conversation_id: %s\n", conversationID)
		}
		if departmentID != "" {
			fmt.Fprintf(&sb, "- department_id: %s\n", departmentID)
		}
	}
	return strings.TrimSpace(sb.String())
}

// Messages flattens the stored history plus the new question into provider
// messages, normalizing whitespace to keep prompts stable.
func (b *PromptBuilder) Messages(history []ports.Turn, question string) []ports.ChatMessage {
	messages := make([]ports.ChatMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, ports.ChatMessage{
			Role:       turn.Role,
			Content:    norm(turn.Content),
			ToolCallID: turn.ToolCallID,
		})
	}
	return append(messages, ports.ChatMessage{Role: ports.RoleUser, Content: norm(question)})
}

func norm(s string) string { return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n")) }
