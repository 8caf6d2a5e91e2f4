package ports

import "context"

// Turn is one entry of a session's conversation history.
type Turn struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// SessionStore is a TTL-backed cache mapping a session id to a bounded,
// ordered history of turns.
//
// TTL semantics: only writes (Save, AppendAndTrim) refresh the expiry;
// read-only access never does. Concurrent writers to the same session id are
// not coordinated — last write wins. A burst of rapid messages from one
// visitor can therefore lose an update; this matches the intended
// concurrency model and is a documented gap, not an accident.
type SessionStore interface {
	// Get returns the stored history, or an empty slice if the session is
	// absent or expired.
	Get(ctx context.Context, sessionID string) ([]Turn, error)

	// Save overwrites the stored history and resets the TTL.
	Save(ctx context.Context, sessionID string, history []Turn) error

	// AppendAndTrim appends turns to the stored history, trims to the
	// configured bound (oldest dropped first), and saves.
	AppendAndTrim(ctx context.Context, sessionID string, turns ...Turn) error

	// Clear removes the session.
	Clear(ctx context.Context, sessionID string) error
}
