// Package dedup guards billable web searches against repeat spend for the
// same rendered query within a conversation session. It is an optimistic
// guard only: the quota governor stays authoritative regardless of what a
// client's session set says.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "assistant:dedup:"

// Normalize derives the stable identity of a query: lowercased, trimmed,
// internal whitespace runs collapsed to single underscores. Two raw strings
// that normalize identically are deliberately treated as one unit.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), "_")
}

// Set tracks which query identities have already consumed a web-search unit
// per session, backed by a Redis set so every tab of a session shares it.
type Set struct {
	client     redis.Cmdable
	sessionTTL time.Duration
}

func NewSet(client redis.Cmdable, sessionTTL time.Duration) *Set {
	return &Set{client: client, sessionTTL: sessionTTL}
}

// TryReserve inserts the identity into the session's seen set. It returns
// false when the identity was already present; SADD makes the first-writer
// race-free across concurrent clicks. Reservation happens before the
// network call; callers must Release on failure.
func (s *Set) TryReserve(ctx context.Context, sessionID, identity string) (bool, error) {
	key := keyPrefix + sessionID

	added, err := s.client.SAdd(ctx, key, identity).Result()
	if err != nil {
		return false, fmt.Errorf("reserving %q in session %s: %w", identity, sessionID, err)
	}
	// Keep the set alive for the session's lifetime, refreshed per reserve.
	if err := s.client.Expire(ctx, key, s.sessionTTL).Err(); err != nil {
		return false, fmt.Errorf("refreshing session %s ttl: %w", sessionID, err)
	}

	return added == 1, nil
}

// Release removes the identity again, the compensating rollback when the
// reserved search failed. Never called on success.
func (s *Set) Release(ctx context.Context, sessionID, identity string) error {
	if err := s.client.SRem(ctx, keyPrefix+sessionID, identity).Err(); err != nil {
		return fmt.Errorf("releasing %q in session %s: %w", identity, sessionID, err)
	}
	return nil
}
