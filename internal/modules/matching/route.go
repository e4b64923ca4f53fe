// README: Linear transit route with an explicit station order and index map.
package matching

import (
	"fmt"
	"strings"
)

// Station is a stop on the route. ID is the agency's station identifier
// (for CTA, the parent station map ID).
type Station struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Route is an ordered station sequence. It is built once at startup and
// shared read-only; all methods are safe for concurrent use.
type Route struct {
	name     string
	stations []Station
	index    map[string]int
}

// NewRoute builds a Route. Station IDs and names must be unique and non-empty.
func NewRoute(name string, stations []Station) (*Route, error) {
	if len(stations) < 2 {
		return nil, fmt.Errorf("route %q: need at least two stations, got %d", name, len(stations))
	}
	r := &Route{
		name:     name,
		stations: make([]Station, len(stations)),
		index:    make(map[string]int, 2*len(stations)),
	}
	copy(r.stations, stations)
	for i, st := range stations {
		if st.ID == "" || st.Name == "" {
			return nil, fmt.Errorf("route %q: station %d has empty id or name", name, i)
		}
		for _, key := range []string{st.ID, normalizeName(st.Name)} {
			if prev, dup := r.index[key]; dup && prev != i {
				return nil, fmt.Errorf("route %q: duplicate station key %q", name, key)
			}
			r.index[key] = i
		}
	}
	return r, nil
}

func (r *Route) Name() string { return r.name }

func (r *Route) Len() int { return len(r.stations) }

// Stations returns a copy of the station sequence.
func (r *Route) Stations() []Station {
	out := make([]Station, len(r.stations))
	copy(out, r.stations)
	return out
}

// Lookup resolves a station ID or name (case-insensitive) to its index.
func (r *Route) Lookup(key string) (int, error) {
	if i, ok := r.index[key]; ok {
		return i, nil
	}
	if i, ok := r.index[normalizeName(key)]; ok {
		return i, nil
	}
	return -1, fmt.Errorf("%w: %q is not on route %s", ErrInvalidStation, key, r.name)
}

// Station returns the station at index i.
func (r *Route) Station(i int) (Station, error) {
	if !r.Contains(i) {
		return Station{}, fmt.Errorf("%w: index %d outside route %s", ErrInvalidStation, i, r.name)
	}
	return r.stations[i], nil
}

func (r *Route) Contains(i int) bool {
	return i >= 0 && i < len(r.stations)
}

// Segment resolves both endpoints of a ride.
func (r *Route) Segment(origin, destination string) (RouteSegment, error) {
	o, err := r.Lookup(origin)
	if err != nil {
		return RouteSegment{}, err
	}
	d, err := r.Lookup(destination)
	if err != nil {
		return RouteSegment{}, err
	}
	return RouteSegment{Origin: o, Destination: d}, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
