// README: Matching store backed by Redis: cached suggestions and per-trip commit locks.
package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"maroonline/internal/types"
)

const (
	suggestionsKeyPrefix = "matching:trip:%s:suggestions"
	lockKeyPrefix        = "matching:trip:%s:lock"
	// suggestions are only offered while the underlying windows are plausible.
	defaultSuggestionTTL = 2 * time.Hour
	defaultLockTTL       = 10 * time.Second
)

// releaseScript deletes a lock only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type Store struct {
	redis         *redis.Client
	suggestionTTL time.Duration
	lockTTL       time.Duration
}

func NewStore(redis *redis.Client, suggestionTTL, lockTTL time.Duration) *Store {
	if suggestionTTL <= 0 {
		suggestionTTL = defaultSuggestionTTL
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Store{redis: redis, suggestionTTL: suggestionTTL, lockTTL: lockTTL}
}

// SaveSuggestions replaces the cached ranking for a trip.
func (s *Store) SaveSuggestions(ctx context.Context, tripID types.ID, cands []MatchCandidate) error {
	if cands == nil {
		cands = []MatchCandidate{}
	}
	b, err := json.Marshal(cands)
	if err != nil {
		return fmt.Errorf("encode suggestions: %w", err)
	}
	return s.redis.Set(ctx, suggestionsKey(tripID), b, s.suggestionTTL).Err()
}

// Suggestions returns the cached ranking for a trip, and whether one exists.
func (s *Store) Suggestions(ctx context.Context, tripID types.ID) ([]MatchCandidate, bool, error) {
	val, err := s.redis.Get(ctx, suggestionsKey(tripID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cands []MatchCandidate
	if err := json.Unmarshal(val, &cands); err != nil {
		return nil, false, fmt.Errorf("decode suggestions: %w", err)
	}
	return cands, true, nil
}

func (s *Store) ClearSuggestions(ctx context.Context, tripIDs ...types.ID) error {
	if len(tripIDs) == 0 {
		return nil
	}
	keys := make([]string, len(tripIDs))
	for i, id := range tripIDs {
		keys[i] = suggestionsKey(id)
	}
	return s.redis.Del(ctx, keys...).Err()
}

// AcquireLock takes the commit lock for a trip. It reports false when another
// commit already holds it.
func (s *Store) AcquireLock(ctx context.Context, tripID types.ID, token string) (bool, error) {
	return s.redis.SetNX(ctx, lockKey(tripID), token, s.lockTTL).Result()
}

// ReleaseLock drops the lock if token still owns it.
func (s *Store) ReleaseLock(ctx context.Context, tripID types.ID, token string) error {
	return releaseScript.Run(ctx, s.redis, []string{lockKey(tripID)}, token).Err()
}

func suggestionsKey(tripID types.ID) string {
	return fmt.Sprintf(suggestionsKeyPrefix, string(tripID))
}

func lockKey(tripID types.ID) string {
	return fmt.Sprintf(lockKeyPrefix, string(tripID))
}
