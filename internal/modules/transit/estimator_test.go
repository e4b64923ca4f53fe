package transit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"maroonline/internal/config"
	"maroonline/internal/modules/matching"
)

type fixedEstimator struct {
	est   Estimate
	err   error
	calls int
}

func (f *fixedEstimator) Fastest(context.Context, matching.Station, matching.Station, time.Time) (Estimate, error) {
	f.calls++
	return f.est, f.err
}

func TestChainFallsBack(t *testing.T) {
	first := &fixedEstimator{err: ErrNoService}
	second := &fixedEstimator{est: Estimate{Seconds: 600, Source: "google_maps"}}
	third := &fixedEstimator{est: Estimate{Seconds: 1}}

	est, err := NewChain(nil, first, second, third).Fastest(context.Background(), howard, brynMawr, time.Now())
	require.NoError(t, err)
	require.Equal(t, 600, est.Seconds)
	require.Equal(t, 1, first.calls)
	require.Zero(t, third.calls)
}

func TestChainAllFail(t *testing.T) {
	boom := errors.New("boom")
	chain := NewChain(nil, &fixedEstimator{err: boom}, &fixedEstimator{est: Estimate{Seconds: 0}})
	_, err := chain.Fastest(context.Background(), howard, brynMawr, time.Now())
	require.ErrorIs(t, err, ErrNoService)
	require.ErrorIs(t, err, boom)

	_, err = NewChain(nil).Fastest(context.Background(), howard, brynMawr, time.Now())
	require.ErrorIs(t, err, ErrNoService)
}

func TestPlanWindow(t *testing.T) {
	at := time.Date(2025, 4, 26, 8, 0, 0, 0, time.UTC)

	w, err := PlanWindow(DepartBy, at, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, at, w.Earliest)
	require.Equal(t, at.Add(15*time.Minute), w.Latest)

	w, err = PlanWindow(ArriveBy, at, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, at.Add(-15*time.Minute), w.Earliest)
	require.Equal(t, at, w.Latest)

	_, err = PlanWindow("leave_whenever", at, 15*time.Minute)
	require.ErrorIs(t, err, matching.ErrInvalidWindow)
	_, err = PlanWindow(DepartBy, at, 0)
	require.ErrorIs(t, err, matching.ErrInvalidWindow)
}

func TestNewConfiguredChain(t *testing.T) {
	chain, err := NewConfiguredChain(config.TransitConfig{}, time.UTC, nil)
	require.NoError(t, err)
	require.Empty(t, chain.estimators)

	chain, err = NewConfiguredChain(config.TransitConfig{CTAKey: "k", MapsKey: "AIzaFake"}, time.UTC, nil)
	require.NoError(t, err)
	require.Len(t, chain.estimators, 2)
	require.IsType(t, &CTAClient{}, chain.estimators[0])
	require.IsType(t, &MapsEstimator{}, chain.estimators[1])
}
