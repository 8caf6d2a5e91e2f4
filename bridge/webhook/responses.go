package webhook

// Synchronous webhook response payloads, in the provider's reply format.

// Reply is the provider's reply envelope.
type Reply struct {
	Action  string `json:"action"`
	Replies []any  `json:"replies"`
}

// WelcomeReply answers a trigger event synchronously.
func WelcomeReply(text string) Reply {
	return Reply{
		Action:  "reply",
		Replies: []any{map[string]string{"text": text}},
	}
}

// PendingReply acknowledges a message event while the answer is produced in
// the background; the provider renders the notice and waits for callbacks.
func PendingReply(text string) Reply {
	return Reply{
		Action:  "pending",
		Replies: []any{text},
	}
}
