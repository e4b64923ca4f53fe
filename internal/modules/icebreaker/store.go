package icebreaker

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"maroonline/internal/types"
)

// Store handles ai_usage persistence.
type Store struct {
	db      *pgxpool.Pool
	monthly int
	now     func() time.Time
}

func NewStore(db *pgxpool.Pool, monthly int) *Store {
	if monthly <= 0 {
		monthly = DefaultTokens
	}
	return &Store{db: db, monthly: monthly, now: time.Now}
}

// UseToken atomically checks the monthly quota and deducts one token. A row
// from an earlier month is reset to the full allowance first. Returns
// ErrInsufficientTokens when no row was updated (quota exhausted or rider absent).
func (s *Store) UseToken(ctx context.Context, profileID types.ID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE ai_usage SET
			tokens_remaining = CASE WHEN last_reset_month <> @month THEN @monthly - 1 ELSE tokens_remaining - 1 END,
			last_reset_month = @month
		WHERE profile_id = @profile_id AND (last_reset_month < @month OR tokens_remaining > 0)`,
		pgx.NamedArgs{"month": s.month(), "monthly": s.monthly, "profile_id": string(profileID)},
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientTokens
	}
	return nil
}

// EnsureProfile creates the rider's usage row if it is missing.
func (s *Store) EnsureProfile(ctx context.Context, profileID types.ID) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_usage (profile_id, tokens_remaining, last_reset_month)
		VALUES (@profile_id, @monthly, @month)
		ON CONFLICT (profile_id) DO NOTHING`,
		pgx.NamedArgs{"profile_id": string(profileID), "monthly": s.monthly, "month": s.month()},
	)
	return err
}

func (s *Store) Remaining(ctx context.Context, profileID types.ID) (int, error) {
	var n int
	var month string
	err := s.db.QueryRow(ctx, `
		SELECT tokens_remaining, last_reset_month FROM ai_usage WHERE profile_id = @profile_id`,
		pgx.NamedArgs{"profile_id": string(profileID)},
	).Scan(&n, &month)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && month < s.month()) {
		return s.monthly, nil
	}
	return n, err
}

func (s *Store) month() string {
	return s.now().UTC().Format("2006-01")
}
