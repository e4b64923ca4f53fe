// README: Match ranker: filter, score, stable sort, top-K.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Diagnostic receives one Evaluation per pool entry. It replaces any
// process-wide verbose switch; pass nil to disable.
type Diagnostic func(Evaluation)

// SlogDiagnostic reports evaluations to logger at debug level.
func SlogDiagnostic(logger *slog.Logger) Diagnostic {
	return func(ev Evaluation) {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "candidate evaluated",
			slog.String("candidate_trip_id", ev.CandidateTripID.String()),
			slog.String("reason", string(ev.Reason)),
			slog.Float64("overlap_s", ev.Overlap.Seconds()),
			slog.Float64("closeness", ev.Closeness),
			slog.Float64("similarity", ev.Similarity),
			slog.Float64("score", ev.Score),
		)
	}
}

// Ranker selects the best candidates for a trip request. It holds no mutable
// state and never writes back; its output is a best-effort ranking of the
// snapshot it was given, not a reservation.
type Ranker struct {
	route *Route
	topK  int
}

// NewRanker returns a Ranker over route. topK <= 0 means DefaultTopK.
func NewRanker(route *Route, topK int) *Ranker {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Ranker{route: route, topK: topK}
}

func (r *Ranker) Route() *Route { return r.route }

func (r *Ranker) TopK() int { return r.topK }

// Validate checks the new request. Callers run it before fetching candidates.
func (r *Ranker) Validate(req TripRequest) error {
	for _, i := range []int{req.Segment.Origin, req.Segment.Destination} {
		if !r.route.Contains(i) {
			return fmt.Errorf("%w: index %d outside route %s", ErrInvalidStation, i, r.route.Name())
		}
	}
	if req.Segment.Degenerate() {
		return fmt.Errorf("%w: origin and destination are both index %d", ErrInvalidStation, req.Segment.Origin)
	}
	if !req.Window.Valid() {
		return fmt.Errorf("%w: earliest %s is not before latest %s",
			ErrInvalidWindow, req.Window.Earliest.Format("15:04:05"), req.Window.Latest.Format("15:04:05"))
	}
	if req.FastestSeconds <= 0 {
		return fmt.Errorf("%w: trip %s has fastest_seconds=%d", ErrMissingSpeedData, req.ID, req.FastestSeconds)
	}
	return nil
}

// Rank filters pool against req, scores the survivors and returns at most
// TopK candidates by non-increasing score. Equal scores keep pool order, so a
// pool ordered by submission time yields earliest-submitted-first.
func (r *Ranker) Rank(req TripRequest, interests InterestSet, pool []PoolEntry, diag Diagnostic) ([]MatchCandidate, error) {
	if err := r.Validate(req); err != nil {
		return nil, err
	}

	scored := make([]MatchCandidate, 0, len(pool))
	for _, entry := range pool {
		c := entry.Trip
		overlap, reason := r.eligible(req, c)
		if reason != ReasonEligible {
			if diag != nil {
				diag(Evaluation{CandidateTripID: c.ID, Owner: c.Owner, Reason: reason})
			}
			continue
		}

		secs := overlap.Seconds()
		sim := InterestSimilarity(interests, entry.Interests)
		closeness := Closeness(secs, req.FastestSeconds, c.FastestSeconds)
		score := CompositeScore(secs, closeness, sim)
		shared := SharedWindow(req.Window, c.Window)

		scored = append(scored, MatchCandidate{
			TripID:     c.ID,
			Owner:      c.Owner,
			Interests:  entry.Interests,
			Departure:  shared.Earliest,
			Arrival:    shared.Latest,
			Overlap:    overlap,
			Closeness:  closeness,
			Similarity: sim,
			Score:      score,
		})
		if diag != nil {
			diag(Evaluation{
				CandidateTripID: c.ID,
				Owner:           c.Owner,
				Reason:          ReasonEligible,
				Overlap:         overlap,
				Closeness:       closeness,
				Similarity:      sim,
				Score:           score,
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}
	return scored, nil
}
