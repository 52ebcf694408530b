package quota

import (
	"context"
	"sync"
	"time"
)

// Store is the persistence contract for quota pools. CheckAndConsume must be
// atomic per (owner, kind): two concurrent calls for the same pool may never
// both observe used < limit when only one slot remains.
type Store interface {
	// CheckAndConsume lazily creates or rolls over the pool, then consumes
	// one unit if the budget allows.
	CheckAndConsume(ctx context.Context, ownerID string, kind PoolKind, limit int, window time.Duration) (Decision, error)

	// View returns the pool's current state without mutating it, applying
	// the same lazy-rollover logic so displayed values never straddle an
	// elapsed window.
	View(ctx context.Context, ownerID string, kind PoolKind, limit int, window time.Duration) (PoolView, error)
}

type poolKey struct {
	owner string
	kind  PoolKind
}

// MemoryStore keeps pools in a mutex-guarded map. It is the default when no
// Postgres connection is configured, and the target of the concurrency tests.
type MemoryStore struct {
	mu    sync.Mutex
	pools map[poolKey]*Pool
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools: make(map[poolKey]*Pool),
		now:   time.Now,
	}
}

// SetClock overrides the store's clock. Tests only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) CheckAndConsume(_ context.Context, ownerID string, kind PoolKind, limit int, window time.Duration) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.rollover(ownerID, kind, limit, window)
	if p.Used >= p.Limit {
		return Decision{Allowed: false, View: viewOf(p.Limit, p.Used, p.WindowEnd)}, nil
	}

	p.Used++
	return Decision{Allowed: true, View: viewOf(p.Limit, p.Used, p.WindowEnd)}, nil
}

func (s *MemoryStore) View(_ context.Context, ownerID string, kind PoolKind, limit int, window time.Duration) (PoolView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p, ok := s.pools[poolKey{ownerID, kind}]
	if !ok || !now.Before(p.WindowEnd) {
		return FreshView(limit, window, now), nil
	}
	return viewOf(p.Limit, p.Used, p.WindowEnd), nil
}

// rollover returns the live pool for the key, creating it or resetting an
// elapsed window. Caller holds s.mu.
func (s *MemoryStore) rollover(ownerID string, kind PoolKind, limit int, window time.Duration) *Pool {
	now := s.now()
	key := poolKey{ownerID, kind}

	p, ok := s.pools[key]
	if !ok {
		p = &Pool{OwnerID: ownerID, Kind: kind}
		s.pools[key] = p
	}
	if !ok || !now.Before(p.WindowEnd) {
		p.Used = 0
		p.WindowStart = now
		p.WindowEnd = now.Add(window)
	}
	p.Limit = limit
	return p
}
