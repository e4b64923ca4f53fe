// README: Trip aggregate: one rider's planned ride on the route.
package trip

import (
	"time"

	"maroonline/internal/modules/matching"
	"maroonline/internal/types"
)

// Trip is a persisted ride plan. Stations are stored by their route ID so a
// reordered route never silently changes an existing trip's segment.
type Trip struct {
	ID                 types.ID  `json:"id"`
	ProfileID          types.ID  `json:"profile_id"`
	OriginStation      string    `json:"origin_station"`
	DestinationStation string    `json:"destination_station"`
	Earliest           time.Time `json:"earliest"`
	Latest             time.Time `json:"latest"`
	FastestSeconds     int       `json:"fastest_seconds"`
	Matched            bool      `json:"matched"`
	CreatedAt          time.Time `json:"created_at"`
}

// Snapshot is a trip joined with its owner's interests.
type Snapshot struct {
	Trip      Trip
	Interests []string
}

// Match is a committed pairing of two trips.
type Match struct {
	ID        types.ID  `json:"id"`
	TripA     types.ID  `json:"trip_a"`
	TripB     types.ID  `json:"trip_b"`
	Departure time.Time `json:"departure"`
	Arrival   time.Time `json:"arrival"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateCommand struct {
	ProfileID      types.ID
	Origin         string
	Destination    string
	Window         matching.TimeWindow
	FastestSeconds int
}
