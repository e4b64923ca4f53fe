package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *captureMailer) Send(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+"|"+body)
	return nil
}

var codeRe = regexp.MustCompile(`\b\d{6}\b`)

func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	code := codeRe.FindString(m.sent[len(m.sent)-1])
	require.Len(t, code, 6)
	return code
}

func newTestService(t *testing.T, ratePerMinute int) (*Service, *captureMailer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mailer := &captureMailer{}
	svc := NewService(NewStore(client), mailer, Config{
		AllowedDomain:     "@UChicago.edu",
		CodeTTL:           10 * time.Minute,
		SessionTTL:        24 * time.Hour,
		CodeRatePerMinute: ratePerMinute,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, mailer, mr
}

func TestLoginFlow(t *testing.T) {
	ctx := context.Background()
	svc, mailer, _ := newTestService(t, 60)

	require.NoError(t, svc.RequestCode(ctx, " Alice@uchicago.edu "))
	code := mailer.lastCode(t)

	sess, err := svc.Verify(ctx, "alice@UCHICAGO.edu", code)
	require.NoError(t, err)
	require.Equal(t, "alice@uchicago.edu", sess.Email)
	require.NotEmpty(t, sess.Token)

	email, err := svc.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, "alice@uchicago.edu", email)

	// Codes are single use.
	_, err = svc.Verify(ctx, "alice@uchicago.edu", code)
	require.ErrorIs(t, err, ErrInvalidCode)

	require.NoError(t, svc.Logout(ctx, sess.Token))
	_, err = svc.Resolve(ctx, sess.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequestCodeDomain(t *testing.T) {
	svc, mailer, _ := newTestService(t, 60)
	for _, email := range []string{"bob@gmail.com", "bob@evil-uchicago.edu", "@uchicago.edu", "uchicago.edu", ""} {
		err := svc.RequestCode(context.Background(), email)
		require.ErrorIs(t, err, ErrDomainNotAllowed, email)
	}
	require.Empty(t, mailer.sent)
}

func TestRequestCodeRateLimited(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, 1)

	require.NoError(t, svc.RequestCode(ctx, "a@uchicago.edu"))
	require.ErrorIs(t, svc.RequestCode(ctx, "a@uchicago.edu"), ErrRateLimited)
	// Limits are per address.
	require.NoError(t, svc.RequestCode(ctx, "b@uchicago.edu"))
}

func TestRequestCodeRateLimitWindow(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := newTestService(t, 2)

	require.NoError(t, svc.RequestCode(ctx, "a@uchicago.edu"))
	require.NoError(t, svc.RequestCode(ctx, "a@uchicago.edu"))
	require.ErrorIs(t, svc.RequestCode(ctx, "a@uchicago.edu"), ErrRateLimited)
	require.True(t, mr.TTL(sendsKey("a@uchicago.edu")) > 0)

	mr.FastForward(sendWindow)
	require.NoError(t, svc.RequestCode(ctx, "a@uchicago.edu"))
}

func TestRequestCodeRateLimitSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	first, mailer, mr := newTestService(t, 1)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	second := NewService(NewStore(client), mailer, Config{
		AllowedDomain:     "uchicago.edu",
		CodeTTL:           10 * time.Minute,
		SessionTTL:        time.Hour,
		CodeRatePerMinute: 1,
	}, nil)

	require.NoError(t, first.RequestCode(ctx, "a@uchicago.edu"))
	require.ErrorIs(t, second.RequestCode(ctx, "a@uchicago.edu"), ErrRateLimited)
	require.Len(t, mailer.sent, 1)
}

func TestRecordFailureSetsTTL(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := newTestService(t, 60)

	require.NoError(t, svc.store.SaveCode(ctx, "a@uchicago.edu", "123456", 10*time.Minute))
	require.NoError(t, svc.store.RecordFailure(ctx, "a@uchicago.edu", maxAttempts, 10*time.Minute))
	require.NoError(t, svc.store.RecordFailure(ctx, "a@uchicago.edu", maxAttempts, 10*time.Minute))

	require.Equal(t, 10*time.Minute, mr.TTL(attemptsKey("a@uchicago.edu")))
	got, err := mr.Get(attemptsKey("a@uchicago.edu"))
	require.NoError(t, err)
	require.Equal(t, "2", got)
}

func TestRequestCodeMailerFailure(t *testing.T) {
	svc, mailer, _ := newTestService(t, 60)
	mailer.err = errors.New("relay down")
	require.Error(t, svc.RequestCode(context.Background(), "a@uchicago.edu"))
}

func TestVerifyWrongCodeLocksOut(t *testing.T) {
	ctx := context.Background()
	svc, mailer, _ := newTestService(t, 60)

	require.NoError(t, svc.RequestCode(ctx, "a@uchicago.edu"))
	code := mailer.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < maxAttempts; i++ {
		_, err := svc.Verify(ctx, "a@uchicago.edu", wrong)
		require.ErrorIs(t, err, ErrInvalidCode)
	}
	_, err := svc.Verify(ctx, "a@uchicago.edu", code)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyExpiredCode(t *testing.T) {
	ctx := context.Background()
	svc, mailer, mr := newTestService(t, 60)

	require.NoError(t, svc.RequestCode(ctx, "a@uchicago.edu"))
	code := mailer.lastCode(t)
	mr.FastForward(11 * time.Minute)

	_, err := svc.Verify(ctx, "a@uchicago.edu", code)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestResolveEmptyToken(t *testing.T) {
	svc, _, _ := newTestService(t, 60)
	_, err := svc.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNewCodeFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := newCode()
		require.NoError(t, err)
		require.Regexp(t, `^\d{6}$`, code)
	}
}
