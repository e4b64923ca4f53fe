// README: Matching service: loads a trip, ranks the candidate pool, commits pairings.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"maroonline/internal/types"
)

// CandidateQuery is the persistence-level prefilter for a ranking call. The
// gateway may filter more coarsely than the engine; the engine re-checks.
type CandidateQuery struct {
	ExcludeTripID types.ID
	Segment       RouteSegment
	Window        TimeWindow
}

// MatchRecord is written when a pairing is accepted.
type MatchRecord struct {
	TripA     types.ID
	TripB     types.ID
	Departure time.Time
	Arrival   time.Time
	Score     float64
}

// Gateway supplies trip snapshots and accepts the matched write-back.
type Gateway interface {
	GetRequest(ctx context.Context, tripID types.ID) (PoolEntry, error)
	FetchCandidates(ctx context.Context, q CandidateQuery) ([]PoolEntry, error)
	// CommitMatch marks both trips matched and records the pairing. It must
	// fail with ErrConflict if either trip is already matched.
	CommitMatch(ctx context.Context, rec MatchRecord) error
}

type SuggestionStore interface {
	SaveSuggestions(ctx context.Context, tripID types.ID, cands []MatchCandidate) error
	Suggestions(ctx context.Context, tripID types.ID) ([]MatchCandidate, bool, error)
	ClearSuggestions(ctx context.Context, tripIDs ...types.ID) error
	AcquireLock(ctx context.Context, tripID types.ID, token string) (bool, error)
	ReleaseLock(ctx context.Context, tripID types.ID, token string) error
}

// Observer receives ranking telemetry.
type Observer interface {
	ObserveRank(elapsed time.Duration, poolSize, returned int)
	ObserveEvaluation(reason Reason)
}

type Service struct {
	store    SuggestionStore
	gateway  Gateway
	ranker   *Ranker
	logger   *slog.Logger
	observer Observer
}

func NewService(store SuggestionStore, gateway Gateway, ranker *Ranker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, gateway: gateway, ranker: ranker, logger: logger}
}

// WithObserver attaches telemetry and returns s.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

func (s *Service) Ranker() *Ranker { return s.ranker }

// FindMatches ranks the outstanding pool for tripID and caches the result so
// a later Commit can pick from it. caller, when non-empty, must own the trip.
func (s *Service) FindMatches(ctx context.Context, caller, tripID types.ID) ([]MatchCandidate, error) {
	return s.FindMatchesWithDiagnostic(ctx, caller, tripID, nil)
}

// FindMatchesWithDiagnostic is FindMatches with an extra per-candidate sink.
func (s *Service) FindMatchesWithDiagnostic(ctx context.Context, caller, tripID types.ID, diag Diagnostic) ([]MatchCandidate, error) {
	entry, err := s.ownedRequest(ctx, caller, tripID)
	if err != nil {
		return nil, err
	}
	req := entry.Trip
	if req.Matched {
		return nil, fmt.Errorf("%w: %s", ErrConflict, tripID)
	}
	if err := s.ranker.Validate(req); err != nil {
		return nil, err
	}

	pool, err := s.gateway.FetchCandidates(ctx, CandidateQuery{
		ExcludeTripID: req.ID,
		Segment:       req.Segment,
		Window:        req.Window,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	start := time.Now()
	results, err := s.ranker.Rank(req, entry.Interests, pool, s.diagnostic(diag))
	if err != nil {
		return nil, err
	}
	if s.observer != nil {
		s.observer.ObserveRank(time.Since(start), len(pool), len(results))
	}

	if err := s.store.SaveSuggestions(ctx, req.ID, results); err != nil {
		return nil, fmt.Errorf("save suggestions: %w", err)
	}
	s.logger.InfoContext(ctx, "ranked candidates",
		"trip_id", req.ID,
		"pool", len(pool),
		"returned", len(results),
	)
	return results, nil
}

// Suggestions returns the last ranking computed for tripID.
func (s *Service) Suggestions(ctx context.Context, caller, tripID types.ID) ([]MatchCandidate, error) {
	if _, err := s.ownedRequest(ctx, caller, tripID); err != nil {
		return nil, err
	}
	cands, ok, err := s.store.Suggestions(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []MatchCandidate{}, nil
	}
	return cands, nil
}

// Commit accepts candidateTripID as the pairing for tripID. The candidate
// must come from the cached ranking. Both trips are locked for the duration
// of the write so two concurrent commits cannot claim the same rider; the
// gateway's conditional update is the final arbiter.
func (s *Service) Commit(ctx context.Context, caller, tripID, candidateTripID types.ID) (MatchCandidate, error) {
	if _, err := s.ownedRequest(ctx, caller, tripID); err != nil {
		return MatchCandidate{}, err
	}
	if candidateTripID == tripID {
		return MatchCandidate{}, fmt.Errorf("%w: trip cannot pair with itself", ErrNotSuggested)
	}

	release, err := s.lockTrips(ctx, tripID, candidateTripID)
	if err != nil {
		return MatchCandidate{}, err
	}
	defer release()

	cands, _, err := s.store.Suggestions(ctx, tripID)
	if err != nil {
		return MatchCandidate{}, err
	}
	var chosen *MatchCandidate
	for i := range cands {
		if cands[i].TripID == candidateTripID {
			chosen = &cands[i]
			break
		}
	}
	if chosen == nil {
		return MatchCandidate{}, fmt.Errorf("%w: %s", ErrNotSuggested, candidateTripID)
	}

	err = s.gateway.CommitMatch(ctx, MatchRecord{
		TripA:     tripID,
		TripB:     candidateTripID,
		Departure: chosen.Departure,
		Arrival:   chosen.Arrival,
		Score:     chosen.Score,
	})
	if err != nil {
		return MatchCandidate{}, err
	}

	if err := s.store.ClearSuggestions(ctx, tripID, candidateTripID); err != nil {
		s.logger.WarnContext(ctx, "clear suggestions failed", "trip_id", tripID, "error", err)
	}
	s.logger.InfoContext(ctx, "match committed", "trip_id", tripID, "candidate_trip_id", candidateTripID)
	return *chosen, nil
}

func (s *Service) ownedRequest(ctx context.Context, caller, tripID types.ID) (PoolEntry, error) {
	entry, err := s.gateway.GetRequest(ctx, tripID)
	if err != nil {
		return PoolEntry{}, err
	}
	if caller != "" && entry.Trip.Owner != caller {
		return PoolEntry{}, ErrForbidden
	}
	return entry, nil
}

// lockTrips takes both commit locks in a fixed order.
func (s *Service) lockTrips(ctx context.Context, ids ...types.ID) (func(), error) {
	sorted := append([]types.ID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	token := uuid.NewString()
	var held []types.ID
	release := func() {
		// ctx may already be cancelled here.
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		for _, id := range held {
			if err := s.store.ReleaseLock(rctx, id, token); err != nil {
				s.logger.Warn("release lock failed", "trip_id", id, "error", err)
			}
		}
	}

	for _, id := range sorted {
		ok, err := s.store.AcquireLock(ctx, id, token)
		if err != nil {
			release()
			return nil, err
		}
		if !ok {
			release()
			return nil, fmt.Errorf("%w: %s", ErrLocked, id)
		}
		held = append(held, id)
	}
	return release, nil
}

func (s *Service) diagnostic(extra Diagnostic) Diagnostic {
	debug := SlogDiagnostic(s.logger)
	return func(ev Evaluation) {
		if s.observer != nil {
			s.observer.ObserveEvaluation(ev.Reason)
		}
		if s.logger.Enabled(context.Background(), slog.LevelDebug) {
			debug(ev)
		}
		if extra != nil {
			extra(ev)
		}
	}
}

// IsInputError reports whether err is one of the request validation errors.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidStation) || errors.Is(err, ErrInvalidWindow) || errors.Is(err, ErrMissingSpeedData)
}
