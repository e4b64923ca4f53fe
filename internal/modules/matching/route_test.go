package matching

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoute_Lookup(t *testing.T) {
	r := testRoute(t)
	require.Equal(t, 12, r.Len())

	i, err := r.Lookup("Bryn Mawr")
	require.NoError(t, err)
	require.Equal(t, 4, i)

	i, err = r.Lookup("  bryn mawr ")
	require.NoError(t, err)
	require.Equal(t, 4, i)

	i, err = r.Lookup("40011")
	require.NoError(t, err)
	require.Equal(t, 11, i)

	_, err = r.Lookup("Midway")
	require.True(t, errors.Is(err, ErrInvalidStation))
}

func TestRoute_Segment(t *testing.T) {
	r := testRoute(t)
	seg, err := r.Segment("Garfield", "Howard")
	require.NoError(t, err)
	require.Equal(t, RouteSegment{Origin: 10, Destination: 0}, seg)
	lo, hi := seg.Bounds()
	require.Equal(t, 0, lo)
	require.Equal(t, 10, hi)

	_, err = r.Segment("Howard", "Nowhere")
	require.ErrorIs(t, err, ErrInvalidStation)
}

func TestRoute_StationsIsCopy(t *testing.T) {
	r := testRoute(t)
	s := r.Stations()
	s[0].Name = "changed"
	st, err := r.Station(0)
	require.NoError(t, err)
	require.Equal(t, "Howard", st.Name)

	_, err = r.Station(12)
	require.ErrorIs(t, err, ErrInvalidStation)
	require.False(t, r.Contains(-1))
}

func TestNewRoute_Rejects(t *testing.T) {
	_, err := NewRoute("short", []Station{{ID: "1", Name: "A"}})
	require.Error(t, err)

	_, err = NewRoute("dup", []Station{{ID: "1", Name: "A"}, {ID: "2", Name: "a"}})
	require.Error(t, err)

	_, err = NewRoute("empty", []Station{{ID: "1", Name: "A"}, {ID: "", Name: "B"}})
	require.Error(t, err)
}
