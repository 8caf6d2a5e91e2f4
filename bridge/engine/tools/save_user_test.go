package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUserStore records upserts and scripts outcomes.
type stubUserStore struct {
	created bool
	err     error
	name    string
	email   string
	calls   int
}

func (s *stubUserStore) Upsert(ctx context.Context, name, email string) (bool, error) {
	s.calls++
	s.name = name
	s.email = email
	return s.created, s.err
}

func saveUser(t *testing.T, store *stubUserStore, args string) SaveUserResult {
	t.Helper()
	tool := NewSaveUserTool(store)
	out, err := tool.Invoke(context.Background(), json.RawMessage(args))
	require.NoError(t, err)
	result, ok := out.(SaveUserResult)
	require.True(t, ok)
	return result
}

func TestSaveUserCreatesRecord(t *testing.T) {
	store := &stubUserStore{created: true}

	result := saveUser(t, store, `{"name": "Ana García", "email": "Ana@Example.com "}`)
	assert.Equal(t, UserCreated, result.Status)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, "Ana García", store.name)
	assert.Equal(t, "ana@example.com", store.email, "email must be normalized before storage")
}

func TestSaveUserDuplicateEmailReportsAlreadyExists(t *testing.T) {
	store := &stubUserStore{created: false}

	result := saveUser(t, store, `{"name": "Ana", "email": "ana@example.com"}`)
	assert.Equal(t, UserAlreadyExists, result.Status)
}

func TestSaveUserStoreFailureReportsErrorStatus(t *testing.T) {
	store := &stubUserStore{err: assert.AnError}

	result := saveUser(t, store, `{"name": "Ana", "email": "ana@example.com"}`)
	assert.Equal(t, UserError, result.Status)
	assert.NotEmpty(t, result.Message)
}

func TestSaveUserRejectsInvalidInput(t *testing.T) {
	store := &stubUserStore{created: true}

	cases := []struct {
		name string
		args string
	}{
		{"blank name", `{"name": "  ", "email": "ana@example.com"}`},
		{"email without at sign", `{"name": "Ana", "email": "not-an-email"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := saveUser(t, store, tc.args)
			assert.Equal(t, UserError, result.Status)
			assert.Zero(t, store.calls, "invalid input must never reach the store")
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
