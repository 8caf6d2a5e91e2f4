package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Upsert outcomes reported back to the model.
const (
	UserCreated       = "created"
	UserAlreadyExists = "already_exists"
	UserError         = "error"
)

// UserStore persists visitor registrations. Upsert-by-email semantics: a
// duplicate email must not create a second record.
type UserStore interface {
	Upsert(ctx context.Context, name, email string) (created bool, err error)
}

// SaveUserResult is the structured outcome of a registration attempt.
type SaveUserResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SaveUserTool registers a visitor's contact details so the clinic can
// follow up outside the chat.
type SaveUserTool struct {
	store UserStore
}

func NewSaveUserTool(store UserStore) *SaveUserTool {
	return &SaveUserTool{store: store}
}

func (t *SaveUserTool) Name() string { return "save_user" }

func (t *SaveUserTool) Description() string {
	return "Registers the visitor's name and email so the clinic can contact " +
		"them. Use it only after the visitor has explicitly shared both."
}

func (t *SaveUserTool) Schema() []byte { return []byte(SaveUserSchema) }

func (t *SaveUserTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode save_user args: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || !strings.Contains(email, "@") {
		return SaveUserResult{
			Status:  UserError,
			Message: "A valid name and email address are required.",
		}, nil
	}

	created, err := t.store.Upsert(ctx, name, email)
	if err != nil {
		return SaveUserResult{
			Status:  UserError,
			Message: "The registration could not be stored right now.",
		}, nil
	}
	if !created {
		return SaveUserResult{
			Status:  UserAlreadyExists,
			Message: "This email address is already registered.",
		}, nil
	}
	return SaveUserResult{
		Status:  UserCreated,
		Message: "Contact details registered. The clinic will reach out shortly.",
	}, nil
}

// NormalizeEmail lowers and trims an email so idempotency holds across
// cosmetic variations of the same address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
