// README: Trip service: creates ride plans and serves them to the matching engine.
package trip

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"maroonline/internal/modules/matching"
	"maroonline/internal/types"
)

// Repository is the persistence the service needs; *Store implements it.
type Repository interface {
	Create(ctx context.Context, t *Trip) error
	Get(ctx context.Context, id types.ID) (Snapshot, error)
	ListOpen(ctx context.Context, exclude types.ID, earliest, latest time.Time) ([]Snapshot, error)
	ListByProfile(ctx context.Context, profileID types.ID) ([]Trip, error)
	CommitMatch(ctx context.Context, m *Match) error
	ListMatches(ctx context.Context, profileID types.ID) ([]Match, error)
}

// Service also satisfies matching.Gateway.
type Service struct {
	repo   Repository
	route  *matching.Route
	logger *slog.Logger
	now    func() time.Time
}

var _ matching.Gateway = (*Service)(nil)

func NewService(repo Repository, route *matching.Route, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, route: route, logger: logger, now: time.Now}
}

// Create validates and persists a new, unmatched trip.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Trip, error) {
	if cmd.ProfileID == "" {
		return nil, fmt.Errorf("%w: missing profile", ErrBadRequest)
	}
	seg, err := s.route.Segment(cmd.Origin, cmd.Destination)
	if err != nil {
		return nil, err
	}
	if seg.Origin == seg.Destination {
		return nil, fmt.Errorf("%w: origin and destination are the same station", ErrBadRequest)
	}
	if !cmd.Window.Valid() {
		return nil, fmt.Errorf("%w: earliest must be before latest", matching.ErrInvalidWindow)
	}
	if cmd.FastestSeconds <= 0 {
		return nil, fmt.Errorf("%w: fastest travel time unknown", matching.ErrMissingSpeedData)
	}

	origin, _ := s.route.Station(seg.Origin)
	destination, _ := s.route.Station(seg.Destination)
	t := &Trip{
		ID:                 types.NewID(),
		ProfileID:          cmd.ProfileID,
		OriginStation:      origin.ID,
		DestinationStation: destination.ID,
		Earliest:           cmd.Window.Earliest,
		Latest:             cmd.Window.Latest,
		FastestSeconds:     cmd.FastestSeconds,
		CreatedAt:          s.now(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "trip created",
		"trip_id", t.ID,
		"profile_id", t.ProfileID,
		"origin", origin.Name,
		"destination", destination.Name,
	)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Trip, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	snap, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &snap.Trip, nil
}

func (s *Service) ListByProfile(ctx context.Context, profileID types.ID) ([]Trip, error) {
	return s.repo.ListByProfile(ctx, profileID)
}

func (s *Service) ListMatches(ctx context.Context, profileID types.ID) ([]Match, error) {
	return s.repo.ListMatches(ctx, profileID)
}

// GetRequest loads one trip as an engine snapshot.
func (s *Service) GetRequest(ctx context.Context, tripID types.ID) (matching.PoolEntry, error) {
	if !validID(tripID) {
		return matching.PoolEntry{}, ErrNotFound
	}
	snap, err := s.repo.Get(ctx, tripID)
	if err != nil {
		return matching.PoolEntry{}, err
	}
	return s.entry(snap), nil
}

// FetchCandidates prefilters on time only; the engine checks segments.
func (s *Service) FetchCandidates(ctx context.Context, q matching.CandidateQuery) ([]matching.PoolEntry, error) {
	snaps, err := s.repo.ListOpen(ctx, q.ExcludeTripID, q.Window.Earliest, q.Window.Latest)
	if err != nil {
		return nil, err
	}
	out := make([]matching.PoolEntry, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, s.entry(snap))
	}
	return out, nil
}

func (s *Service) CommitMatch(ctx context.Context, rec matching.MatchRecord) error {
	return s.repo.CommitMatch(ctx, &Match{
		ID:        types.NewID(),
		TripA:     rec.TripA,
		TripB:     rec.TripB,
		Departure: rec.Departure,
		Arrival:   rec.Arrival,
		Score:     rec.Score,
		CreatedAt: s.now(),
	})
}

// entry maps stored station IDs to route indices. A station no longer on the
// route maps to -1 and the engine drops the trip.
func (s *Service) entry(snap Snapshot) matching.PoolEntry {
	t := snap.Trip
	return matching.PoolEntry{
		Trip: matching.TripRequest{
			ID:    t.ID,
			Owner: t.ProfileID,
			Segment: matching.RouteSegment{
				Origin:      s.index(t.OriginStation),
				Destination: s.index(t.DestinationStation),
			},
			Window:         matching.TimeWindow{Earliest: t.Earliest, Latest: t.Latest},
			FastestSeconds: t.FastestSeconds,
			Matched:        t.Matched,
		},
		Interests: matching.NewInterestSet(snap.Interests...),
	}
}

func (s *Service) index(stationID string) int {
	i, err := s.route.Lookup(stationID)
	if err != nil {
		return -1
	}
	return i
}

func validID(id types.ID) bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}
