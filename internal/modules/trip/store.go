// README: Trip store backed by PostgreSQL.
package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"maroonline/internal/types"
)

// db is satisfied by *pgxpool.Pool and pgx.Tx.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	db db
}

func NewStore(db db) *Store {
	return &Store{db: db}
}

const snapshotColumns = `
	t.id::text, t.profile_id::text, t.origin_station, t.destination_station,
	t.earliest, t.latest, t.fastest_seconds, t.matched, t.created_at,
	p.interests`

func (s *Store) Create(ctx context.Context, t *Trip) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trips (
			id, profile_id, origin_station, destination_station,
			earliest, latest, fastest_seconds, matched, created_at
		) VALUES (
			@id, @profile_id, @origin, @destination,
			@earliest, @latest, @fastest, FALSE, @created_at
		)`,
		pgx.NamedArgs{
			"id":          string(t.ID),
			"profile_id":  string(t.ProfileID),
			"origin":      t.OriginStation,
			"destination": t.DestinationStation,
			"earliest":    t.Earliest,
			"latest":      t.Latest,
			"fastest":     t.FastestSeconds,
			"created_at":  t.CreatedAt,
		},
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (Snapshot, error) {
	row := s.db.QueryRow(ctx, `
		SELECT`+snapshotColumns+`
		FROM trips t
		JOIN profiles p ON p.id = t.profile_id
		WHERE t.id = @id`, pgx.NamedArgs{"id": string(id)})

	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	return snap, err
}

// ListOpen returns unmatched trips other than exclude whose windows intersect
// [earliest, latest), oldest submission first.
func (s *Store) ListOpen(ctx context.Context, exclude types.ID, earliest, latest time.Time) ([]Snapshot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+snapshotColumns+`
		FROM trips t
		JOIN profiles p ON p.id = t.profile_id
		WHERE t.matched = FALSE
		  AND t.id <> @exclude
		  AND t.earliest < @latest
		  AND t.latest > @earliest
		ORDER BY t.created_at, t.id`,
		pgx.NamedArgs{"exclude": string(exclude), "earliest": earliest, "latest": latest},
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *Store) ListByProfile(ctx context.Context, profileID types.ID) ([]Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+snapshotColumns+`
		FROM trips t
		JOIN profiles p ON p.id = t.profile_id
		WHERE t.profile_id = @profile_id
		ORDER BY t.created_at DESC`, pgx.NamedArgs{"profile_id": string(profileID)})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trip
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, snap.Trip)
	}
	return out, rows.Err()
}

// CommitMatch flips both trips to matched and records the pairing in one
// transaction. If either trip was already matched nothing is written.
func (s *Store) CommitMatch(ctx context.Context, m *Match) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE trips SET matched = TRUE
		WHERE id IN (@a, @b) AND matched = FALSE`,
		pgx.NamedArgs{"a": string(m.TripA), "b": string(m.TripB)},
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 2 {
		return fmt.Errorf("%w: updated %d of 2 trips", ErrConflict, tag.RowsAffected())
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO matches (id, trip_a, trip_b, departure, arrival, score, created_at)
		VALUES (@id, @a, @b, @departure, @arrival, @score, @created_at)`,
		pgx.NamedArgs{
			"id":         string(m.ID),
			"a":          string(m.TripA),
			"b":          string(m.TripB),
			"departure":  m.Departure,
			"arrival":    m.Arrival,
			"score":      m.Score,
			"created_at": m.CreatedAt,
		},
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListMatches returns matches involving any trip owned by profileID.
func (s *Store) ListMatches(ctx context.Context, profileID types.ID) ([]Match, error) {
	rows, err := s.db.Query(ctx, `
		SELECT m.id::text, m.trip_a::text, m.trip_b::text, m.departure, m.arrival, m.score, m.created_at
		FROM matches m
		WHERE EXISTS (
			SELECT 1 FROM trips t
			WHERE t.profile_id = @profile_id AND t.id IN (m.trip_a, m.trip_b)
		)
		ORDER BY m.created_at DESC`, pgx.NamedArgs{"profile_id": string(profileID)})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.TripA, &m.TripB, &m.Departure, &m.Arrival, &m.Score, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var snap Snapshot
	t := &snap.Trip
	err := row.Scan(
		&t.ID, &t.ProfileID, &t.OriginStation, &t.DestinationStation,
		&t.Earliest, &t.Latest, &t.FastestSeconds, &t.Matched, &t.CreatedAt,
		&snap.Interests,
	)
	return snap, err
}
