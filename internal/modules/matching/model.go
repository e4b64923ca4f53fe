// README: Matching engine data model: segments, windows, interests, candidates.
package matching

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"maroonline/internal/types"
)

// DefaultTopK is how many candidates a ranking call returns at most.
const DefaultTopK = 3

// TimeWindow is the span during which a rider is willing to travel.
type TimeWindow struct {
	Earliest time.Time
	Latest   time.Time
}

// Valid reports whether the window has positive width.
func (w TimeWindow) Valid() bool {
	return w.Earliest.Before(w.Latest)
}

// RouteSegment is a pair of station indices on a Route. Direction of travel
// does not matter; compare via Bounds.
type RouteSegment struct {
	Origin      int
	Destination int
}

// Bounds returns the segment normalized to (min, max).
func (s RouteSegment) Bounds() (lo, hi int) {
	if s.Origin <= s.Destination {
		return s.Origin, s.Destination
	}
	return s.Destination, s.Origin
}

// Degenerate reports whether the segment starts and ends at one station.
func (s RouteSegment) Degenerate() bool {
	return s.Origin == s.Destination
}

// TripRequest is a read-only snapshot of one rider's ride plan.
type TripRequest struct {
	ID             types.ID
	Owner          types.ID
	Segment        RouteSegment
	Window         TimeWindow
	FastestSeconds int
	Matched        bool
}

// InterestSet is an unordered set of topic labels. Labels are compared
// exactly after trimming surrounding whitespace.
type InterestSet map[string]struct{}

// NewInterestSet trims each label and drops empty ones. Duplicates collapse.
func NewInterestSet(labels ...string) InterestSet {
	set := make(InterestSet, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			set[l] = struct{}{}
		}
	}
	return set
}

// ParseInterests reads a comma separated label list.
func ParseInterests(csv string) InterestSet {
	return NewInterestSet(strings.Split(csv, ",")...)
}

func (s InterestSet) Contains(label string) bool {
	_, ok := s[label]
	return ok
}

// Intersect returns the labels present in both sets.
func (s InterestSet) Intersect(other InterestSet) InterestSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(InterestSet)
	for l := range small {
		if large.Contains(l) {
			out[l] = struct{}{}
		}
	}
	return out
}

// Labels returns the labels in lexical order.
func (s InterestSet) Labels() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (s InterestSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Labels())
}

func (s *InterestSet) UnmarshalJSON(b []byte) error {
	var labels []string
	if err := json.Unmarshal(b, &labels); err != nil {
		return err
	}
	*s = NewInterestSet(labels...)
	return nil
}

// PoolEntry is one candidate trip together with its owner's interests.
type PoolEntry struct {
	Trip      TripRequest
	Interests InterestSet
}

// MatchCandidate is one ranked result. Scores are only comparable within
// the ranking call that produced them.
type MatchCandidate struct {
	TripID     types.ID      `json:"trip_id"`
	Owner      types.ID      `json:"owner"`
	Interests  InterestSet   `json:"interests"`
	Departure  time.Time     `json:"departure"`
	Arrival    time.Time     `json:"arrival"`
	Overlap    time.Duration `json:"-"`
	Closeness  float64       `json:"closeness"`
	Similarity float64       `json:"similarity"`
	Score      float64       `json:"score"`
}

// MarshalJSON writes Overlap as overlap_seconds.
func (c MatchCandidate) MarshalJSON() ([]byte, error) {
	type plain MatchCandidate
	return json.Marshal(struct {
		plain
		OverlapSeconds float64 `json:"overlap_seconds"`
	}{plain(c), c.Overlap.Seconds()})
}

func (c *MatchCandidate) UnmarshalJSON(data []byte) error {
	type plain MatchCandidate
	aux := struct {
		*plain
		OverlapSeconds float64 `json:"overlap_seconds"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Overlap = time.Duration(math.Round(aux.OverlapSeconds * float64(time.Second)))
	return nil
}
