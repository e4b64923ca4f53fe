// README: Candidate eligibility predicates, cheapest first.
package matching

import (
	"time"

	"maroonline/internal/types"
)

// Reason explains why a candidate was kept or dropped.
type Reason string

const (
	ReasonEligible         Reason = "eligible"
	ReasonSelf             Reason = "self"
	ReasonAlreadyMatched   Reason = "already_matched"
	ReasonMissingSpeedData Reason = "missing_speed_data"
	ReasonInvalidStation   Reason = "invalid_station"
	ReasonNoSegmentOverlap Reason = "no_segment_overlap"
	ReasonNoTimeOverlap    Reason = "no_time_overlap"
)

// Evaluation is reported once per pool entry to a Diagnostic.
type Evaluation struct {
	CandidateTripID types.ID
	Owner           types.ID
	Reason          Reason
	Overlap         time.Duration
	Closeness       float64
	Similarity      float64
	Score           float64
}

// eligible applies the filter predicates to one candidate. On success it
// returns the positive overlap of the two windows.
func (r *Ranker) eligible(n, c TripRequest) (time.Duration, Reason) {
	if c.Owner == n.Owner {
		return 0, ReasonSelf
	}
	if c.Matched {
		return 0, ReasonAlreadyMatched
	}
	if c.FastestSeconds <= 0 {
		return 0, ReasonMissingSpeedData
	}
	if !r.route.Contains(c.Segment.Origin) || !r.route.Contains(c.Segment.Destination) {
		return 0, ReasonInvalidStation
	}
	if !SegmentsOverlap(n.Segment, c.Segment) {
		return 0, ReasonNoSegmentOverlap
	}
	overlap, ok := TimeOverlap(n.Window, c.Window)
	if !ok {
		return 0, ReasonNoTimeOverlap
	}
	return overlap, ReasonEligible
}
