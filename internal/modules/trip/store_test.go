package trip

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"maroonline/internal/modules/matching"
	"maroonline/internal/testutil"
	"maroonline/internal/types"
)

func seedProfile(t *testing.T, pool *pgxpool.Pool, email string, interests ...string) types.ID {
	t.Helper()
	id := types.NewID()
	if interests == nil {
		interests = []string{}
	}
	_, err := pool.Exec(context.Background(),
		"INSERT INTO profiles (id, email, interests) VALUES ($1, $2, $3)", string(id), email, interests)
	require.NoError(t, err)
	return id
}

func newStoreService(t *testing.T) (*Service, *pgxpool.Pool) {
	pool := testutil.NewPool(t)
	svc, _ := newTestService(t)
	svc.repo = NewStore(pool)
	return svc, pool
}

func TestStoreCandidatesOrderedBySubmission(t *testing.T) {
	svc, pool := newStoreService(t)
	ctx := context.Background()

	alice := seedProfile(t, pool, "alice@uchicago.edu", "Food", "Tech")
	bob := seedProfile(t, pool, "bob@uchicago.edu", "Tech")
	carol := seedProfile(t, pool, "carol@uchicago.edu")

	base := time.Now().UTC().Truncate(time.Second)
	svc.now = func() time.Time { base = base.Add(time.Second); return base }

	a, err := svc.Create(ctx, CreateCommand{ProfileID: alice, Origin: "Howard", Destination: "Loyola", Window: window(15), FastestSeconds: 420})
	require.NoError(t, err)
	c, err := svc.Create(ctx, CreateCommand{ProfileID: carol, Origin: "Morse", Destination: "Berwyn", Window: window(15), FastestSeconds: 300})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateCommand{ProfileID: bob, Origin: "Jarvis", Destination: "Berwyn", Window: window(30), FastestSeconds: 500})
	require.NoError(t, err)

	entry, err := svc.GetRequest(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Food", "Tech"}, entry.Interests.Labels())

	cands, err := svc.FetchCandidates(ctx, matching.CandidateQuery{ExcludeTripID: a.ID, Window: entry.Trip.Window})
	require.NoError(t, err)
	require.Len(t, cands, 2)
	require.Equal(t, c.ID, cands[0].Trip.ID)
	require.Equal(t, b.ID, cands[1].Trip.ID)
	require.Empty(t, cands[0].Interests)

	_, err = svc.GetRequest(ctx, types.NewID())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreCommitMatchIsExclusive(t *testing.T) {
	svc, pool := newStoreService(t)
	ctx := context.Background()

	ids := make([]types.ID, 3)
	for i, email := range []string{"a@uchicago.edu", "b@uchicago.edu", "c@uchicago.edu"} {
		p := seedProfile(t, pool, email)
		tr, err := svc.Create(ctx, CreateCommand{ProfileID: p, Origin: "Howard", Destination: "Loyola", Window: window(15), FastestSeconds: 420})
		require.NoError(t, err)
		ids[i] = tr.ID
	}

	// Two riders race to claim the same third rider.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.CommitMatch(ctx, matching.MatchRecord{
				TripA: ids[i], TripB: ids[2],
				Departure: window(15).Earliest, Arrival: window(15).Latest, Score: 1,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrConflict)
		}
	}
	require.Equal(t, 1, wins)

	var matched int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM trips WHERE matched").Scan(&matched))
	require.Equal(t, 2, matched)

	var matches int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM matches").Scan(&matches))
	require.Equal(t, 1, matches)
}

func TestStoreListMatches(t *testing.T) {
	svc, pool := newStoreService(t)
	ctx := context.Background()

	pa := seedProfile(t, pool, "a@uchicago.edu")
	pb := seedProfile(t, pool, "b@uchicago.edu")
	a, err := svc.Create(ctx, CreateCommand{ProfileID: pa, Origin: "Howard", Destination: "Loyola", Window: window(15), FastestSeconds: 420})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateCommand{ProfileID: pb, Origin: "Jarvis", Destination: "Loyola", Window: window(15), FastestSeconds: 420})
	require.NoError(t, err)

	require.NoError(t, svc.CommitMatch(ctx, matching.MatchRecord{TripA: a.ID, TripB: b.ID, Departure: window(15).Earliest, Arrival: window(15).Latest, Score: 3.5}))

	for _, p := range []types.ID{pa, pb} {
		ms, err := svc.ListMatches(ctx, p)
		require.NoError(t, err)
		require.Len(t, ms, 1)
		require.InDelta(t, 3.5, ms[0].Score, 1e-9)
	}

	trips, err := svc.ListByProfile(ctx, pa)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	require.True(t, trips[0].Matched)
}
