package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulse-platform/assistant/internal/config"
	"github.com/pulse-platform/assistant/internal/metrics"
)

// ErrNoIdentity is returned when an anonymous caller hits a pool check.
// Anonymous callers never get a quota record.
var ErrNoIdentity = errors.New("quota: identity required")

// Status pairs the two pool views for API display.
type Status struct {
	Chat      PoolView `json:"chat"`
	WebSearch PoolView `json:"web_search"`
}

// Service applies the configured limits and windows on top of a Store.
// The mutating path fails closed (a store error denies the request); the
// read path fails open (a store error yields a conservative full-remaining
// view), favoring a denied chat turn over unlimited provider spend.
type Service struct {
	store Store
	cfg   config.AssistantConfig
}

func NewService(store Store, cfg config.AssistantConfig) *Service {
	return &Service{store: store, cfg: cfg}
}

// CheckAndConsume atomically consumes one unit from the owner's pool of the
// given kind. A nil error with Allowed=false means the budget is exhausted;
// the returned view carries the resetAt for countdown display.
func (s *Service) CheckAndConsume(ctx context.Context, ownerID string, kind PoolKind) (Decision, error) {
	if ownerID == "" {
		return Decision{}, ErrNoIdentity
	}

	limit, window := s.limits(kind)
	dec, err := s.store.CheckAndConsume(ctx, ownerID, kind, limit, window)
	if err != nil {
		// Fail closed: deny rather than risk unmetered provider calls.
		return Decision{}, fmt.Errorf("quota check for %s/%s: %w", ownerID, kind, err)
	}

	if !dec.Allowed {
		metrics.QuotaDenialsTotal.WithLabelValues(string(kind)).Inc()
		slog.Debug("quota denied", "owner", ownerID, "pool", kind, "reset_at", dec.View.ResetAt)
	}
	return dec, nil
}

// GetStatus returns both pool views without consuming anything. Store errors
// degrade to full-remaining defaults so the UI always has something to show.
func (s *Service) GetStatus(ctx context.Context, ownerID string) Status {
	return Status{
		Chat:      s.view(ctx, ownerID, KindChat),
		WebSearch: s.view(ctx, ownerID, KindWebSearch),
	}
}

// DefaultStatus is the status shown to anonymous callers: full budgets,
// reset one window away. A display hint only.
func (s *Service) DefaultStatus() Status {
	now := time.Now()
	return Status{
		Chat:      FreshView(s.cfg.ChatLimit, s.cfg.ChatWindow, now),
		WebSearch: FreshView(s.cfg.WebSearchLimit, s.cfg.WebSearchWindow, now),
	}
}

func (s *Service) view(ctx context.Context, ownerID string, kind PoolKind) PoolView {
	limit, window := s.limits(kind)
	if ownerID == "" {
		return FreshView(limit, window, time.Now())
	}

	v, err := s.store.View(ctx, ownerID, kind, limit, window)
	if err != nil {
		slog.Warn("quota: status read failed, returning default view", "error", err, "owner", ownerID, "pool", kind)
		return FreshView(limit, window, time.Now())
	}
	return v
}

func (s *Service) limits(kind PoolKind) (int, time.Duration) {
	if kind == KindWebSearch {
		return s.cfg.WebSearchLimit, s.cfg.WebSearchWindow
	}
	return s.cfg.ChatLimit, s.cfg.ChatWindow
}
