package matching

import "time"

// TimeOverlap returns the length of the intersection of two windows. The
// second result is false when the intersection is zero or negative.
func TimeOverlap(a, b TimeWindow) (time.Duration, bool) {
	d := minTime(a.Latest, b.Latest).Sub(maxTime(a.Earliest, b.Earliest))
	if d <= 0 {
		return 0, false
	}
	return d, true
}

// SharedWindow returns the common (departure, arrival) sub-window. Only
// meaningful when TimeOverlap reports an overlap.
func SharedWindow(a, b TimeWindow) TimeWindow {
	return TimeWindow{
		Earliest: maxTime(a.Earliest, b.Earliest),
		Latest:   minTime(a.Latest, b.Latest),
	}
}

// SegmentsOverlap reports whether two segments share any track. Segments
// that only touch at a single station do not overlap, and a single-station
// segment overlaps nothing.
func SegmentsOverlap(a, b RouteSegment) bool {
	if a.Degenerate() || b.Degenerate() {
		return false
	}
	aLo, aHi := a.Bounds()
	bLo, bHi := b.Bounds()
	return !(aHi <= bLo || bHi <= aLo)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
