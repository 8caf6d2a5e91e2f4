package adapters

import (
	"context"
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
)

// MemorySessionStore is a mutex-guarded in-process session store with
// per-entry expiry. It backs tests and cacheless deployments; semantics
// match the redis store (writes refresh TTL, reads do not, last write wins).
type MemorySessionStore struct {
	mu         sync.Mutex
	items      map[string]*memorySession
	ttl        time.Duration
	maxHistory int
	now        func() time.Time
}

type memorySession struct {
	history   []ports.Turn
	expiresAt time.Time
}

func NewMemorySessionStore(ttl time.Duration, maxHistory int) *MemorySessionStore {
	return &MemorySessionStore{
		items:      make(map[string]*memorySession),
		ttl:        ttl,
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) ([]ports.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[sessionID]
	if !ok {
		return nil, nil
	}
	if s.now().After(item.expiresAt) {
		delete(s.items, sessionID)
		return nil, nil
	}
	// Borrowed copy: callers never mutate shared state.
	history := make([]ports.Turn, len(item.history))
	copy(history, item.history)
	return history, nil
}

func (s *MemorySessionStore) Save(ctx context.Context, sessionID string, history []ports.Turn) error {
	history = trimHistory(history, s.maxHistory)
	stored := make([]ports.Turn, len(history))
	copy(stored, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sessionID] = &memorySession{
		history:   stored,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemorySessionStore) AppendAndTrim(ctx context.Context, sessionID string, turns ...ports.Turn) error {
	history, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.Save(ctx, sessionID, append(history, turns...))
}

func (s *MemorySessionStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}

// Ensure MemorySessionStore implements the SessionStore port.
var _ ports.SessionStore = (*MemorySessionStore)(nil)
