package profile

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"maroonline/internal/testutil"
	"maroonline/internal/types"
)

type memRepo struct {
	profiles map[string]*Profile
}

func (r *memRepo) Ensure(_ context.Context, email string) (*Profile, error) {
	if p, ok := r.profiles[email]; ok {
		return p, nil
	}
	p := &Profile{ID: types.NewID(), Email: email, Interests: []string{}}
	r.profiles[email] = p
	return p, nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*Profile, error) {
	p, ok := r.profiles[email]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (r *memRepo) SaveInterests(ctx context.Context, email string, interests []string) (*Profile, error) {
	p, _ := r.Ensure(ctx, email)
	p.Interests = interests
	return p, nil
}

func newTestService() (*Service, *memRepo) {
	repo := &memRepo{profiles: map[string]*Profile{}}
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestSaveNormalizes(t *testing.T) {
	svc, _ := newTestService()
	p, err := svc.Save(context.Background(), "a@uchicago.edu", []string{" Tech", "Food", "Tech ", "Comedy"})
	require.NoError(t, err)
	require.Equal(t, []string{"Food", "Tech", "Comedy"}, p.Interests)
}

func TestSaveRejects(t *testing.T) {
	svc, repo := newTestService()
	for _, in := range [][]string{{"Food", ""}, {"food"}, {"Knitting"}} {
		_, err := svc.Save(context.Background(), "a@uchicago.edu", in)
		require.ErrorIs(t, err, ErrValidation, "input %q", in)
	}
	require.Empty(t, repo.profiles)
}

func TestSaveEmptyClearsInterests(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Save(ctx, "a@uchicago.edu", []string{"Food"})
	require.NoError(t, err)
	p, err := svc.Save(ctx, "a@uchicago.edu", nil)
	require.NoError(t, err)
	require.Empty(t, p.Interests)
}

func TestEnsureAndGet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Get(ctx, "a@uchicago.edu")
	require.ErrorIs(t, err, ErrNotFound)

	first, err := svc.Ensure(ctx, "a@uchicago.edu")
	require.NoError(t, err)
	second, err := svc.Ensure(ctx, "a@uchicago.edu")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	_, err = svc.Ensure(ctx, "  ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestTopicsIsCopy(t *testing.T) {
	svc, _ := newTestService()
	got := svc.Topics()
	require.Len(t, got, 15)
	got[0] = "changed"
	require.Equal(t, "Food", Topics[0])
}

func TestStoreRoundTrip(t *testing.T) {
	pool := testutil.NewPool(t)
	store := NewStore(pool)
	ctx := context.Background()

	p, err := store.Ensure(ctx, " Alice@UChicago.edu ")
	require.NoError(t, err)
	require.Equal(t, "alice@uchicago.edu", p.Email)
	require.Empty(t, p.Interests)

	again, err := store.Ensure(ctx, "alice@uchicago.edu")
	require.NoError(t, err)
	require.Equal(t, p.ID, again.ID)

	saved, err := store.SaveInterests(ctx, "alice@uchicago.edu", []string{"Food", "Music"})
	require.NoError(t, err)
	require.Equal(t, p.ID, saved.ID)
	require.Equal(t, []string{"Food", "Music"}, saved.Interests)

	got, err := store.GetByEmail(ctx, "ALICE@uchicago.edu")
	require.NoError(t, err)
	require.Equal(t, saved.Interests, got.Interests)

	_, err = store.GetByEmail(ctx, "nobody@uchicago.edu")
	require.ErrorIs(t, err, ErrNotFound)
}
