package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EventKind classifies an inbound webhook event.
type EventKind int

const (
	// KindOther covers unknown or missing handlers; it produces no action.
	KindOther EventKind = iota
	// KindTrigger is the provider's conversation-start event.
	KindTrigger
	// KindMessage is a visitor message needing an answer.
	KindMessage
)

func (k EventKind) String() string {
	switch k {
	case KindTrigger:
		return "trigger"
	case KindMessage:
		return "message"
	default:
		return "other"
	}
}

// Event is the canonical form of one inbound webhook call. Immutable;
// discarded after dispatch.
type Event struct {
	Kind               EventKind
	RequestID          string
	SessionID          string
	SessionIDGenerated bool // true when the visitor carried no id and one was minted
	ConversationID     string
	DepartmentID       string
	Question           string
	Raw                map[string]any
}

// ParseEvent normalizes a raw webhook body. An absent visitor id is replaced
// with a fresh random id so the conversation can still be tracked — history
// from a prior unidentified visit is not recoverable in that case.
func ParseEvent(raw []byte) (Event, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return Event{}, fmt.Errorf("unparseable webhook payload: %w", err)
	}

	event := Event{Raw: body}

	switch stringField(body, "handler") {
	case "trigger":
		event.Kind = KindTrigger
	case "message":
		event.Kind = KindMessage
	default:
		event.Kind = KindOther
	}

	if request, ok := body["request"].(map[string]any); ok {
		event.RequestID = stringField(request, "id")
	}

	visitor, _ := body["visitor"].(map[string]any)
	event.SessionID = stringField(visitor, "visitor_id")
	if event.SessionID == "" {
		event.SessionID = uuid.NewString()
		event.SessionIDGenerated = true
	}
	event.ConversationID = stringField(visitor, "active_conversation_id")
	event.DepartmentID = stringField(visitor, "department_id")

	if message, ok := body["message"].(map[string]any); ok {
		event.Question = stringField(message, "text")
	}
	if event.Question == "" {
		event.Question = stringField(visitor, "question")
	}
	event.Question = strings.TrimSpace(event.Question)

	return event, nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		// Numeric ids arrive as JSON numbers.
		return strings.TrimSuffix(fmt.Sprintf("%.0f", v), ".")
	default:
		return ""
	}
}
