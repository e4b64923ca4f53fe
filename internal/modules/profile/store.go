// README: Profile store backed by PostgreSQL.
package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"maroonline/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Ensure returns the profile for email, creating an empty one on first sight.
func (s *Store) Ensure(ctx context.Context, email string) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO profiles (id, email)
		VALUES (@id, @email)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id::text, email, interests, created_at, updated_at`,
		pgx.NamedArgs{"id": string(types.NewID()), "email": normalizeEmail(email)},
	)
	return scanProfile(row)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id::text, email, interests, created_at, updated_at
		FROM profiles WHERE email = @email`,
		pgx.NamedArgs{"email": normalizeEmail(email)},
	)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Store) SaveInterests(ctx context.Context, email string, interests []string) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO profiles (id, email, interests)
		VALUES (@id, @email, @interests)
		ON CONFLICT (email) DO UPDATE SET interests = EXCLUDED.interests, updated_at = NOW()
		RETURNING id::text, email, interests, created_at, updated_at`,
		pgx.NamedArgs{"id": string(types.NewID()), "email": normalizeEmail(email), "interests": interests},
	)
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Email, &p.Interests, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
