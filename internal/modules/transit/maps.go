package transit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"googlemaps.github.io/maps"

	"maroonline/internal/modules/matching"
)

// MapsEstimator asks Google Directions for rail transit between stations.
type MapsEstimator struct {
	client *maps.Client
	suffix string
}

// NewMapsEstimator creates an estimator. suffix is appended to station names
// to disambiguate them, e.g. " station, Chicago, IL".
func NewMapsEstimator(apiKey, suffix string) (*MapsEstimator, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &MapsEstimator{client: client, suffix: suffix}, nil
}

func (m *MapsEstimator) Fastest(ctx context.Context, origin, destination matching.Station, after time.Time) (Estimate, error) {
	r := &maps.DirectionsRequest{
		Origin:        origin.Name + m.suffix,
		Destination:   destination.Name + m.suffix,
		Mode:          maps.TravelModeTransit,
		TransitMode:   []maps.TransitMode{maps.TransitModeSubway, maps.TransitModeTrain},
		DepartureTime: strconv.FormatInt(after.Unix(), 10),
		Alternatives:  true,
	}

	routes, _, err := m.client.Directions(ctx, r)
	if err != nil {
		return Estimate{}, fmt.Errorf("maps api error: %w", err)
	}

	best := Estimate{Source: "google_maps"}
	for _, route := range routes {
		if len(route.Legs) == 0 {
			continue
		}
		leg := route.Legs[0]
		secs := int(leg.Duration.Seconds())
		if secs > 0 && (best.Seconds == 0 || secs < best.Seconds) {
			best.Seconds = secs
			best.Depart = leg.DepartureTime
		}
	}
	if best.Seconds == 0 {
		return Estimate{}, fmt.Errorf("%w: no transit route found", ErrNoService)
	}
	return best, nil
}
