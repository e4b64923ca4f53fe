package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitLabels(t *testing.T) {
	require.Equal(t, []string{"Music", "Food"}, splitLabels(" Music, ,Food "))
	require.Nil(t, splitLabels(""))
}
