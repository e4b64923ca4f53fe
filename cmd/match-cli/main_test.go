package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAt(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	now := time.Date(2025, 4, 28, 7, 12, 30, 0, chicago)

	got, err := parseAt("", now, chicago)
	require.NoError(t, err)
	require.True(t, got.Equal(now))

	got, err = parseAt("08:30", now, chicago)
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2025, 4, 28, 8, 30, 0, 0, chicago)))

	got, err = parseAt("2025-04-28T13:30:00Z", now, chicago)
	require.NoError(t, err)
	require.Equal(t, 8, got.Hour())
	require.Equal(t, chicago, got.Location())

	_, err = parseAt("half past eight", now, chicago)
	require.Error(t, err)
}
