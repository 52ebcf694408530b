package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-platform/assistant/internal/config"
)

type erroringStore struct{}

func (erroringStore) CheckAndConsume(context.Context, string, PoolKind, int, time.Duration) (Decision, error) {
	return Decision{}, errors.New("store down")
}

func (erroringStore) View(context.Context, string, PoolKind, int, time.Duration) (PoolView, error) {
	return PoolView{}, errors.New("store down")
}

func testConfig() config.AssistantConfig {
	return config.AssistantConfig{
		ChatLimit:       30,
		ChatWindow:      time.Hour,
		WebSearchLimit:  10,
		WebSearchWindow: 24 * time.Hour,
	}
}

func TestService_CheckAndConsume(t *testing.T) {
	svc := NewService(NewMemoryStore(), testConfig())
	ctx := context.Background()

	dec, err := svc.CheckAndConsume(ctx, "u1", KindChat)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 30, dec.View.Limit)
	assert.Equal(t, 29, dec.View.Remaining)

	dec, err = svc.CheckAndConsume(ctx, "u1", KindWebSearch)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 10, dec.View.Limit)
}

func TestService_CheckAndConsume_NoIdentity(t *testing.T) {
	svc := NewService(NewMemoryStore(), testConfig())

	_, err := svc.CheckAndConsume(context.Background(), "", KindChat)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestService_CheckAndConsume_FailsClosed(t *testing.T) {
	svc := NewService(erroringStore{}, testConfig())

	_, err := svc.CheckAndConsume(context.Background(), "u1", KindChat)
	require.Error(t, err, "store failure must not grant a consumption")
	assert.NotErrorIs(t, err, ErrNoIdentity)
}

func TestService_GetStatus_FailsOpen(t *testing.T) {
	svc := NewService(erroringStore{}, testConfig())

	status := svc.GetStatus(context.Background(), "u1")
	assert.Equal(t, 30, status.Chat.Remaining, "status degrades to full-remaining view")
	assert.Equal(t, 10, status.WebSearch.Remaining)
}

func TestService_GetStatus(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, testConfig())
	ctx := context.Background()

	_, err := svc.CheckAndConsume(ctx, "u1", KindChat)
	require.NoError(t, err)
	_, err = svc.CheckAndConsume(ctx, "u1", KindChat)
	require.NoError(t, err)

	status := svc.GetStatus(ctx, "u1")
	assert.Equal(t, 2, status.Chat.Used)
	assert.Equal(t, 28, status.Chat.Remaining)
	assert.Equal(t, 0, status.WebSearch.Used)
}

func TestService_DefaultStatus(t *testing.T) {
	svc := NewService(NewMemoryStore(), testConfig())

	status := svc.DefaultStatus()
	assert.Equal(t, 30, status.Chat.Remaining)
	assert.Equal(t, 10, status.WebSearch.Remaining)
	assert.True(t, status.Chat.ResetAt.After(time.Now()))
}
