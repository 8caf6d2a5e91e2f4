package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Store wraps the users table.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger.With().Str("component", "users").Logger()}
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Upsert inserts a registration keyed by normalized email. A duplicate email
// never creates a second record; created=false reports that the address was
// already registered.
func (s *Store) Upsert(ctx context.Context, name, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email) VALUES (?, ?) ON CONFLICT(email) DO NOTHING`,
		strings.TrimSpace(name), email,
	)
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert user rows: %w", err)
	}

	created := inserted > 0
	s.logger.Info().Bool("created", created).Msg("user registration processed")
	return created, nil
}

// CountByEmail reports how many records exist for the given address.
// Used by tests to assert the no-duplicates invariant.
func (s *Store) CountByEmail(ctx context.Context, email string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
