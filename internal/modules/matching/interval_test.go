package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeOverlap(t *testing.T) {
	cases := []struct {
		name string
		a, b TimeWindow
		want time.Duration
		ok   bool
	}{
		{"identical", window(8, 0, 8, 15), window(8, 0, 8, 15), 15 * time.Minute, true},
		{"partial", window(8, 0, 8, 15), window(8, 10, 8, 30), 5 * time.Minute, true},
		{"contained", window(8, 0, 9, 0), window(8, 20, 8, 25), 5 * time.Minute, true},
		{"touching", window(8, 0, 8, 15), window(8, 15, 8, 30), 0, false},
		{"disjoint", window(8, 0, 8, 15), window(8, 20, 8, 35), 0, false},
		{"zero width", window(8, 5, 8, 5), window(8, 0, 8, 15), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := TimeOverlap(tc.a, tc.b)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)

			// symmetric
			rev, revOK := TimeOverlap(tc.b, tc.a)
			require.Equal(t, ok, revOK)
			require.Equal(t, got, rev)
		})
	}
}

func TestTimeOverlap_WideningNeverShrinks(t *testing.T) {
	cand := window(8, 10, 8, 40)
	base := window(8, 20, 8, 30)
	baseOverlap, _ := TimeOverlap(base, cand)

	for _, widened := range []TimeWindow{
		{Earliest: base.Earliest, Latest: base.Latest.Add(5 * time.Minute)},
		{Earliest: base.Earliest.Add(-5 * time.Minute), Latest: base.Latest},
		{Earliest: base.Earliest.Add(-time.Hour), Latest: base.Latest.Add(time.Hour)},
	} {
		got, _ := TimeOverlap(widened, cand)
		require.GreaterOrEqual(t, got, baseOverlap)
	}
}

func TestSharedWindow(t *testing.T) {
	got := SharedWindow(window(8, 0, 8, 15), window(8, 5, 8, 30))
	require.Equal(t, at(8, 5), got.Earliest)
	require.Equal(t, at(8, 15), got.Latest)
}

func TestSegmentsOverlap(t *testing.T) {
	cases := []struct {
		name string
		a, b RouteSegment
		want bool
	}{
		{"partial", RouteSegment{0, 4}, RouteSegment{1, 5}, true},
		{"contained", RouteSegment{0, 10}, RouteSegment{3, 4}, true},
		{"reversed direction", RouteSegment{4, 0}, RouteSegment{1, 5}, true},
		{"both reversed", RouteSegment{4, 0}, RouteSegment{5, 1}, true},
		{"touching endpoint", RouteSegment{0, 4}, RouteSegment{4, 8}, false},
		{"disjoint", RouteSegment{0, 4}, RouteSegment{10, 11}, false},
		{"degenerate", RouteSegment{3, 3}, RouteSegment{0, 5}, false},
		{"both single station", RouteSegment{3, 3}, RouteSegment{3, 3}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SegmentsOverlap(tc.a, tc.b))
			require.Equal(t, tc.want, SegmentsOverlap(tc.b, tc.a))
		})
	}
}

func TestSegmentsOverlap_Reflexive(t *testing.T) {
	for _, s := range []RouteSegment{{0, 1}, {0, 11}, {7, 2}} {
		require.True(t, SegmentsOverlap(s, s), "segment %v", s)
	}
}
