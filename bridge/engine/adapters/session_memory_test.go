package adapters

import (
	"context"
	"fmt"
	"testing"
	"time"

	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(role, content string) ports.Turn {
	return ports.Turn{Role: role, Content: content}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemorySessionStore(time.Minute, 6)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "v1", []ports.Turn{
		turn(ports.RoleUser, "Hola"),
		turn(ports.RoleAssistant, "Buenas"),
	}))

	history, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Hola", history[0].Content)
	assert.Equal(t, "Buenas", history[1].Content)
}

func TestMemoryStoreUnknownSessionIsEmpty(t *testing.T) {
	s := NewMemorySessionStore(time.Minute, 6)

	history, err := s.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreAppendKeepsMostRecentTurns(t *testing.T) {
	s := NewMemorySessionStore(time.Minute, 6)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendAndTrim(ctx, "v1",
			turn(ports.RoleUser, fmt.Sprintf("q%d", i)),
			turn(ports.RoleAssistant, fmt.Sprintf("a%d", i)),
		))
	}

	history, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, history, 6)
	// Oldest exchanges were dropped; order of the survivors is preserved.
	assert.Equal(t, "q2", history[0].Content)
	assert.Equal(t, "a4", history[5].Content)
}

func TestMemoryStoreExpiresAfterTTL(t *testing.T) {
	s := NewMemorySessionStore(time.Minute, 6)
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "v1", []ports.Turn{turn(ports.RoleUser, "Hola")}))

	now = base.Add(59 * time.Second)
	history, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	now = base.Add(61 * time.Second)
	history, err = s.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreReadDoesNotRefreshTTL(t *testing.T) {
	s := NewMemorySessionStore(time.Minute, 6)
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "v1", []ports.Turn{turn(ports.RoleUser, "Hola")}))

	// Reads inside the window must not extend it.
	now = base.Add(45 * time.Second)
	_, err := s.Get(ctx, "v1")
	require.NoError(t, err)

	now = base.Add(75 * time.Second)
	history, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreWriteRefreshesTTL(t *testing.T) {
	s := NewMemorySessionStore(time.Minute, 6)
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "v1", []ports.Turn{turn(ports.RoleUser, "Hola")}))

	now = base.Add(45 * time.Second)
	require.NoError(t, s.AppendAndTrim(ctx, "v1", turn(ports.RoleAssistant, "Buenas")))

	now = base.Add(100 * time.Second)
	history, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemorySessionStore(time.Minute, 6)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "v1", []ports.Turn{turn(ports.RoleUser, "Hola")}))
	require.NoError(t, s.Clear(ctx, "v1"))

	history, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemorySessionStore(time.Minute, 6)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "v1", []ports.Turn{turn(ports.RoleUser, "Hola")}))

	history, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	history[0].Content = "mutated"

	again, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Hola", again[0].Content)
}

func TestTrimHistory(t *testing.T) {
	turns := []ports.Turn{
		turn(ports.RoleUser, "1"),
		turn(ports.RoleAssistant, "2"),
		turn(ports.RoleUser, "3"),
	}

	assert.Len(t, trimHistory(turns, 2), 2)
	assert.Equal(t, "2", trimHistory(turns, 2)[0].Content)
	assert.Len(t, trimHistory(turns, 5), 3)
	assert.Len(t, trimHistory(nil, 5), 0)
}
