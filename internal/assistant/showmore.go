package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ExpansionKind selects which half of a prior answer to expand.
type ExpansionKind string

const (
	// ExpandDatabase re-runs the query asking for deeper database results.
	ExpandDatabase ExpansionKind = "database"
	// ExpandProvider re-runs the query asking for a deeper provider answer.
	ExpandProvider ExpansionKind = "provider"
)

// ValidExpansionKind reports whether s names a known expansion kind.
func ValidExpansionKind(s string) bool {
	return ExpansionKind(s) == ExpandDatabase || ExpansionKind(s) == ExpandProvider
}

// ExpansionGate enforces one expansion per (query identity, kind). The two
// kinds are independent: consuming one leaves the other available. SETNX
// makes the gate race-free across tabs.
type ExpansionGate struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewExpansionGate(client redis.Cmdable, ttl time.Duration) *ExpansionGate {
	return &ExpansionGate{client: client, ttl: ttl}
}

// Consume marks the (identity, kind) pair as used. Returns false when it was
// already consumed.
func (g *ExpansionGate) Consume(ctx context.Context, queryIdentity string, kind ExpansionKind) (bool, error) {
	key := fmt.Sprintf("assistant:showmore:%s:%s", queryIdentity, kind)
	ok, err := g.client.SetNX(ctx, key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consuming expansion %s/%s: %w", queryIdentity, kind, err)
	}
	return ok, nil
}
