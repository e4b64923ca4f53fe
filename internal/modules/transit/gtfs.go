package transit

import (
	"fmt"
	"os"
	"sort"

	"github.com/OneBusAway/go-gtfs"

	"maroonline/internal/modules/matching"
)

// LoadRouteFromGTFS derives a station order from a static GTFS zip. The
// longest scheduled trip of routeID defines the order; platforms collapse to
// their parent station.
func LoadRouteFromGTFS(path, routeID string) (*matching.Route, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading local GTFS file: %w", err)
	}
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return routeFromStatic(static, routeID)
}

func routeFromStatic(static *gtfs.Static, routeID string) (*matching.Route, error) {
	var longest *gtfs.ScheduledTrip
	name := routeID
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil || trip.Route.Id != routeID {
			continue
		}
		if longest == nil || len(trip.StopTimes) > len(longest.StopTimes) {
			longest = trip
		}
	}
	if longest == nil {
		return nil, fmt.Errorf("route %q has no scheduled trips", routeID)
	}
	if longest.Route.LongName != "" {
		name = longest.Route.LongName
	}

	stopTimes := append([]gtfs.ScheduledStopTime(nil), longest.StopTimes...)
	sort.SliceStable(stopTimes, func(i, j int) bool {
		return stopTimes[i].StopSequence < stopTimes[j].StopSequence
	})

	stations := make([]matching.Station, 0, len(stopTimes))
	seen := make(map[string]bool, len(stopTimes))
	for _, st := range stopTimes {
		stop := st.Stop
		if stop == nil {
			continue
		}
		if stop.Parent != nil {
			stop = stop.Parent
		}
		if seen[stop.Id] {
			continue
		}
		seen[stop.Id] = true
		stations = append(stations, matching.Station{ID: stop.Id, Name: stop.Name})
	}
	return matching.NewRoute(name, stations)
}
