package matching

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"maroonline/internal/types"
)

var testStations = []string{
	"Howard", "Jarvis", "Morse", "Loyola", "Bryn Mawr", "Berwyn",
	"Argyle", "Lawrence", "Wilson", "Sheridan", "Garfield", "63rd",
}

func testRoute(t *testing.T) *Route {
	t.Helper()
	stations := make([]Station, len(testStations))
	for i, name := range testStations {
		stations[i] = Station{ID: fmt.Sprintf("4%04d", i), Name: name}
	}
	r, err := NewRoute("test", stations)
	require.NoError(t, err)
	return r
}

// at returns 2025-04-26 hh:mm in UTC.
func at(hh, mm int) time.Time {
	return time.Date(2025, 4, 26, hh, mm, 0, 0, time.UTC)
}

func window(h1, m1, h2, m2 int) TimeWindow {
	return TimeWindow{Earliest: at(h1, m1), Latest: at(h2, m2)}
}

func trip(id, owner string, origin, dest int, w TimeWindow, fastest int) TripRequest {
	return TripRequest{
		ID:             types.ID(id),
		Owner:          types.ID(owner),
		Segment:        RouteSegment{Origin: origin, Destination: dest},
		Window:         w,
		FastestSeconds: fastest,
	}
}
