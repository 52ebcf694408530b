// Package cache memoizes provider responses in Redis, keyed by request
// fingerprint, with per-entry hit accounting. The cache is platform-wide,
// not per-user: two users asking the same thing in the same context share
// one provider call.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulse-platform/assistant/internal/metrics"
)

const keyPrefix = "assistant:cache:"

// Entry is one live cached response.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Hits        int64     `json:"hits"`
}

// Stats summarizes cache occupancy for the status endpoint.
type Stats struct {
	TotalEntries  int     `json:"total_entries"`
	ActiveEntries int     `json:"active_entries"`
	AvgHits       float64 `json:"avg_hits"`
}

// Store is a Redis-hash-per-fingerprint response cache. The Redis TTL is set
// to twice the logical TTL as a sweep backstop; reads check expires_at
// themselves so an expired entry is never returned, and is pruned on sight.
type Store struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewStore(client redis.Cmdable) *Store {
	return &Store{client: client, now: time.Now}
}

// SetClock overrides the store's clock. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Get returns the live entry for the fingerprint, or nil on miss. A hit
// increments the entry's hit counter by exactly one.
func (s *Store) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	key := keyPrefix + fingerprint

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	if len(fields) == 0 {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}

	expiresAt := parseUnixNano(fields["expires_at"])
	if !s.now().Before(expiresAt) {
		// Lazy prune: the backstop TTL has not fired yet, but the entry is
		// logically dead.
		_ = s.client.Del(ctx, key).Err()
		metrics.CacheLookupsTotal.WithLabelValues("expired").Inc()
		return nil, nil
	}

	hits, err := s.client.HIncrBy(ctx, key, "hits", 1).Result()
	if err != nil {
		return nil, fmt.Errorf("counting cache hit: %w", err)
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()

	return &Entry{
		Fingerprint: fingerprint,
		Body:        fields["body"],
		CreatedAt:   parseUnixNano(fields["created_at"]),
		ExpiresAt:   expiresAt,
		Hits:        hits,
	}, nil
}

// Put stores the response body under the fingerprint. Last write wins when
// two callers race on the same miss; both bodies answer the same request, so
// the redundancy costs a provider call, never correctness.
func (s *Store) Put(ctx context.Context, fingerprint, body string, ttl time.Duration) error {
	key := keyPrefix + fingerprint
	now := s.now()

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key,
		"body", body,
		"created_at", strconv.FormatInt(now.UnixNano(), 10),
		"expires_at", strconv.FormatInt(now.Add(ttl).UnixNano(), 10),
		"hits", 0,
	)
	pipe.Expire(ctx, key, 2*ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Stats scans the cache keyspace and reports occupancy and average hits.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		stats   Stats
		sumHits int64
		now     = s.now()
	)

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		vals, err := s.client.HMGet(ctx, iter.Val(), "expires_at", "hits").Result()
		if err != nil {
			return Stats{}, fmt.Errorf("reading cache entry stats: %w", err)
		}

		stats.TotalEntries++
		if exp, ok := vals[0].(string); ok && now.Before(parseUnixNano(exp)) {
			stats.ActiveEntries++
		}
		if h, ok := vals[1].(string); ok {
			n, _ := strconv.ParseInt(h, 10, 64)
			sumHits += n
		}
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("scanning cache keys: %w", err)
	}

	if stats.TotalEntries > 0 {
		stats.AvgHits = float64(sumHits) / float64(stats.TotalEntries)
	}
	return stats, nil
}

// Clear removes every cached response and returns how many were dropped.
// Administrative operation; access control lives at the handler.
func (s *Store) Clear(ctx context.Context) (int, error) {
	cleared := 0

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return cleared, fmt.Errorf("deleting cache entry: %w", err)
		}
		cleared++
	}
	if err := iter.Err(); err != nil {
		return cleared, fmt.Errorf("scanning cache keys: %w", err)
	}
	return cleared, nil
}

func parseUnixNano(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}
