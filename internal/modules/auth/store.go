// README: Auth store backed by Redis: pending codes, failed attempts, sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix     = "auth:code:%s"
	attemptsKeyPrefix = "auth:code:%s:attempts"
	sendsKeyPrefix    = "auth:code:%s:sends"
	sessionKeyPrefix  = "auth:session:%s"
)

// consumeScript deletes the pending code only if it still equals ARGV[1], so
// at most one verifier wins.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("DEL", KEYS[1], KEYS[2])
	return 1
end
return 0`)

// incrScript increments KEYS[1] and starts its ARGV[1] millisecond TTL on the
// first increment, atomically.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// SaveCode replaces any pending code for email and resets its attempt count.
func (s *Store) SaveCode(ctx context.Context, email, code string, ttl time.Duration) error {
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, codeKey(email), code, ttl)
	pipe.Del(ctx, attemptsKey(email))
	_, err := pipe.Exec(ctx)
	return err
}

// PendingCode returns the outstanding code, or "" when none exists.
func (s *Store) PendingCode(ctx context.Context, email string) (string, error) {
	code, err := s.redis.Get(ctx, codeKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return code, err
}

// ConsumeCode reports whether code was still pending and removes it.
func (s *Store) ConsumeCode(ctx context.Context, email, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.redis, []string{codeKey(email), attemptsKey(email)}, code).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RecordFailure counts a wrong guess. Once limit is reached the pending code
// is discarded.
func (s *Store) RecordFailure(ctx context.Context, email string, limit int, ttl time.Duration) error {
	n, err := s.incr(ctx, attemptsKey(email), ttl)
	if err != nil {
		return err
	}
	if n >= int64(limit) {
		return s.redis.Del(ctx, codeKey(email), attemptsKey(email)).Err()
	}
	return nil
}

// CountSend records one code request for email and returns how many were
// made in the current window. The window opens on the first request.
func (s *Store) CountSend(ctx context.Context, email string, window time.Duration) (int64, error) {
	return s.incr(ctx, sendsKey(email), window)
}

func (s *Store) incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := incrScript.Run(ctx, s.redis, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return n, nil
}

func (s *Store) SaveSession(ctx context.Context, token, email string, ttl time.Duration) error {
	return s.redis.Set(ctx, sessionKey(token), email, ttl).Err()
}

func (s *Store) SessionEmail(ctx context.Context, token string) (string, error) {
	email, err := s.redis.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrUnauthenticated
	}
	return email, err
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	return s.redis.Del(ctx, sessionKey(token)).Err()
}

func codeKey(email string) string     { return fmt.Sprintf(codeKeyPrefix, email) }
func attemptsKey(email string) string { return fmt.Sprintf(attemptsKeyPrefix, email) }
func sendsKey(email string) string    { return fmt.Sprintf(sendsKeyPrefix, email) }
func sessionKey(token string) string  { return fmt.Sprintf(sessionKeyPrefix, token) }
