package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ConsumeToLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dec, err := s.CheckAndConsume(ctx, "u1", KindChat, 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, i+1, dec.View.Used)
	}

	dec, err := s.CheckAndConsume(ctx, "u1", KindChat, 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.View.Remaining)
	assert.Equal(t, 3, dec.View.Used, "denial must not consume")
}

func TestMemoryStore_PoolsIndependent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	dec, err := s.CheckAndConsume(ctx, "u1", KindChat, 1, time.Hour)
	require.NoError(t, err)
	require.True(t, dec.Allowed)

	dec, err = s.CheckAndConsume(ctx, "u1", KindChat, 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, dec.Allowed, "chat pool exhausted")

	dec, err = s.CheckAndConsume(ctx, "u1", KindWebSearch, 1, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, dec.Allowed, "web search pool untouched by chat usage")
}

func TestMemoryStore_OwnersIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	dec, err := s.CheckAndConsume(ctx, "u1", KindChat, 1, time.Hour)
	require.NoError(t, err)
	require.True(t, dec.Allowed)

	dec, err = s.CheckAndConsume(ctx, "u2", KindChat, 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 1, dec.View.Used)
}

func TestMemoryStore_WindowRollover(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	dec, err := s.CheckAndConsume(ctx, "u1", KindChat, 1, time.Hour)
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	assert.Equal(t, now.Add(time.Hour), dec.View.ResetAt, "window anchored at first use")

	dec, err = s.CheckAndConsume(ctx, "u1", KindChat, 1, time.Hour)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	// One second before the boundary: still the old window.
	now = now.Add(time.Hour - time.Second)
	dec, err = s.CheckAndConsume(ctx, "u1", KindChat, 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)

	// At the boundary the pool resets with a new anchor.
	now = now.Add(time.Second)
	dec, err = s.CheckAndConsume(ctx, "u1", KindChat, 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 1, dec.View.Used)
	assert.Equal(t, now.Add(time.Hour), dec.View.ResetAt)
}

func TestMemoryStore_ViewDoesNotConsume(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CheckAndConsume(ctx, "u1", KindChat, 5, time.Hour)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		v, err := s.View(ctx, "u1", KindChat, 5, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, v.Used)
		assert.Equal(t, 4, v.Remaining)
	}
}

func TestMemoryStore_ViewElapsedWindowIsFresh(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	_, err := s.CheckAndConsume(ctx, "u1", KindChat, 5, time.Hour)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	v, err := s.View(ctx, "u1", KindChat, 5, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Used)
	assert.Equal(t, 5, v.Remaining)
}

func TestMemoryStore_ConcurrentNoOverAllocation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const limit = 50
	const attempts = 200

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := s.CheckAndConsume(ctx, "u1", KindChat, limit, time.Hour)
			if err != nil {
				t.Errorf("consume: %v", err)
				return
			}
			if dec.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed, "exactly limit consumptions must win")
}
