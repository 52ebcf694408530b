// Package assistant is the orchestration layer: it turns a free-text user
// message plus ambient page/user context into a governed, cached call to
// the external inference provider.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pulse-platform/assistant/internal/cache"
	"github.com/pulse-platform/assistant/internal/composer"
	"github.com/pulse-platform/assistant/internal/config"
	"github.com/pulse-platform/assistant/internal/dedup"
	"github.com/pulse-platform/assistant/internal/governance/quota"
	inats "github.com/pulse-platform/assistant/internal/nats"
	"github.com/pulse-platform/assistant/internal/platform"
	"github.com/pulse-platform/assistant/internal/profiles"
	"github.com/pulse-platform/assistant/internal/provider"
)

const (
	answerMaxTokens   = 800
	answerTemperature = 0.7
)

// Service wires the governor, composer, cache, dedup guard and provider
// into the ask/expand/status/clear operations.
type Service struct {
	quota     *quota.Service
	cache     *cache.Store
	dedup     *dedup.Set
	gate      *ExpansionGate
	provider  provider.Client
	profiles  profiles.Store
	stats     platform.StatsSource
	publisher *inats.Publisher
	cfg       config.AssistantConfig
}

func NewService(
	quotaSvc *quota.Service,
	cacheStore *cache.Store,
	dedupSet *dedup.Set,
	gate *ExpansionGate,
	providerClient provider.Client,
	profileStore profiles.Store,
	statsSource platform.StatsSource,
	publisher *inats.Publisher,
	cfg config.AssistantConfig,
) *Service {
	return &Service{
		quota:     quotaSvc,
		cache:     cacheStore,
		dedup:     dedupSet,
		gate:      gate,
		provider:  providerClient,
		profiles:  profileStore,
		stats:     statsSource,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Ask is the primary entry point. Sequence: quota check, composition,
// cache lookup, provider call on miss, cache store, respond.
func (s *Service) Ask(ctx context.Context, ident *Identity, req AskRequest) (*AskResponse, error) {
	return s.ask(ctx, ident, req, "")
}

// Expand re-runs a prior query with an expansion flag of the requested
// kind. Each (query, kind) pair may be consumed once; the two kinds are
// independent.
func (s *Service) Expand(ctx context.Context, ident *Identity, req ExpandRequest) (*ExpandResponse, error) {
	if ident == nil {
		return nil, quota.ErrNoIdentity
	}

	kind := ExpansionKind(req.Kind)
	identity := dedup.Normalize(req.OriginalQuery)

	ok, err := s.gate.Consume(ctx, identity, kind)
	if err != nil {
		return nil, fmt.Errorf("expansion gate: %w", err)
	}
	if !ok {
		return nil, ErrExpansionConsumed
	}

	resp, err := s.ask(ctx, ident, AskRequest{Message: req.OriginalQuery, SessionID: req.SessionID}, kind)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ident, inats.EventExpanded, "", "", string(kind))
	return &ExpandResponse{Answer: resp.Answer}, nil
}

func (s *Service) ask(ctx context.Context, ident *Identity, req AskRequest, expansion ExpansionKind) (*AskResponse, error) {
	if ident == nil {
		return nil, quota.ErrNoIdentity
	}

	// Quota first: the provider is never reached past an exhausted pool.
	// Consumption happens at check time, so a downstream provider failure
	// still costs one unit; retrying a broken request is not free.
	dec, err := s.quota.CheckAndConsume(ctx, ident.UserID, quota.KindChat)
	if err != nil {
		return nil, err
	}
	if !dec.Allowed {
		s.publish(ctx, ident, inats.EventDenied, string(quota.KindChat), "", "")
		return nil, &QuotaError{Kind: quota.KindChat, View: dec.View}
	}

	// Billable web search: reserve the query identity in the session's
	// dedup set before spending, then charge the search pool. A repeat of
	// an already-reserved query keeps its search flavor without a second
	// charge.
	webSearch := req.WebSearch
	reserved := false
	sessionKey := ""
	if webSearch {
		webSearch, reserved, sessionKey, err = s.reserveSearch(ctx, ident, req)
		if err != nil {
			var qerr *QuotaError
			if errors.As(err, &qerr) {
				s.publish(ctx, ident, inats.EventDenied, string(quota.KindWebSearch), "", "")
			}
			return nil, err
		}
	}

	result := composer.Compose(req.Message, req.PageContext, req.PageFlags, s.profile(ctx, ident), s.stats.Snapshot())
	fullContext := s.contextFor(result.Context, expansion, webSearch)
	fingerprint := cache.Fingerprint(req.Message, fullContext, result.Commands)

	// Cache lookup. Unavailability degrades silently: skip the cache and
	// pay for the provider call.
	if s.cache != nil {
		entry, err := s.cache.Get(ctx, fingerprint)
		if err != nil {
			slog.Warn("cache unavailable on read, skipping", "error", err)
		} else if entry != nil {
			s.publish(ctx, ident, inats.EventCacheHit, "", fingerprint, "")
			return s.respond(ctx, ident, entry.Body, true, result.Commands), nil
		}
	}

	resp, err := s.provider.Complete(ctx, provider.CompletionRequest{
		System:      s.systemPrompt(fullContext, result.Commands),
		Prompt:      req.Message,
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
		WebSearch:   webSearch,
	})
	if err != nil {
		if reserved {
			// Compensating rollback: the search never happened.
			if rerr := s.dedup.Release(ctx, sessionKey, dedup.Normalize(req.Message)); rerr != nil {
				slog.Warn("dedup release failed", "error", rerr)
			}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, fingerprint, resp.Text, s.cfg.CacheTTL); err != nil {
			slog.Warn("cache unavailable on write, skipping", "error", err)
		}
	}

	s.publish(ctx, ident, inats.EventAsked, "", fingerprint, "")
	return s.respond(ctx, ident, resp.Text, false, result.Commands), nil
}

// reserveSearch runs the dedup-then-charge sequence for a web search.
// Returns whether the request keeps its search flavor, whether this call
// holds a fresh reservation that must be rolled back on failure, and the
// session key the reservation lives under so a later Release hits the
// same set.
func (s *Service) reserveSearch(ctx context.Context, ident *Identity, req AskRequest) (keep, reserved bool, sessionKey string, err error) {
	sessionKey = req.SessionID
	if sessionKey == "" {
		sessionKey = ident.UserID
	}
	identity := dedup.Normalize(req.Message)

	fresh, err := s.dedup.TryReserve(ctx, sessionKey, identity)
	if err != nil {
		// The guard is advisory; losing it must not block the search, only
		// the quota check below still stands.
		slog.Warn("dedup reserve failed, relying on quota alone", "error", err)
		fresh = true
	}
	if !fresh {
		// Same query already paid for in this session: no second charge.
		return true, false, sessionKey, nil
	}

	dec, err := s.quota.CheckAndConsume(ctx, ident.UserID, quota.KindWebSearch)
	if err != nil {
		_ = s.dedup.Release(ctx, sessionKey, identity)
		return false, false, sessionKey, err
	}
	if !dec.Allowed {
		_ = s.dedup.Release(ctx, sessionKey, identity)
		return false, false, sessionKey, &QuotaError{Kind: quota.KindWebSearch, View: dec.View}
	}

	return true, true, sessionKey, nil
}

// Status is the read-only projection for UI display. Anonymous callers get
// default full-remaining views; cache stats degrade to zeros.
func (s *Service) Status(ctx context.Context, ident *Identity) *StatusResponse {
	var qs quota.Status
	if ident == nil {
		qs = s.quota.DefaultStatus()
	} else {
		qs = s.quota.GetStatus(ctx, ident.UserID)
	}

	var cv CacheView
	if s.cache != nil {
		stats, err := s.cache.Stats(ctx)
		if err != nil {
			slog.Warn("cache stats unavailable", "error", err)
		} else {
			cv = CacheView{
				TotalEntries:  stats.TotalEntries,
				ActiveEntries: stats.ActiveEntries,
				HitRate:       stats.AvgHits,
			}
		}
	}

	return &StatusResponse{Quota: qs, Cache: cv}
}

// QuotaStatus is the bare pool snapshot, used when rendering a denial.
func (s *Service) QuotaStatus(ctx context.Context, ident *Identity) quota.Status {
	if ident == nil {
		return s.quota.DefaultStatus()
	}
	return s.quota.GetStatus(ctx, ident.UserID)
}

// ClearCache drops every cached response. Platform-wide, so restricted to
// the configured admin identities.
func (s *Service) ClearCache(ctx context.Context, ident *Identity) (*ClearCacheResponse, error) {
	if ident == nil || !s.isCacheAdmin(ident) {
		return nil, errForbidden
	}
	if s.cache == nil {
		return &ClearCacheResponse{}, nil
	}

	count, err := s.cache.Clear(ctx)
	if err != nil {
		return nil, fmt.Errorf("clearing cache: %w", err)
	}

	s.publish(ctx, ident, inats.EventCacheCleared, "", "", fmt.Sprintf("%d entries", count))
	return &ClearCacheResponse{ClearedCount: count}, nil
}

func (s *Service) isCacheAdmin(ident *Identity) bool {
	for _, admin := range s.cfg.CacheAdmins {
		if admin == ident.UserID || admin == ident.Username {
			return true
		}
	}
	return false
}

func (s *Service) respond(ctx context.Context, ident *Identity, answer string, cached bool, cmds []composer.Command) *AskResponse {
	return &AskResponse{
		Answer:             answer,
		Cached:             cached,
		Quota:              s.quota.GetStatus(ctx, ident.UserID),
		AvailableDataKinds: composer.DataKinds(cmds),
	}
}

func (s *Service) profile(ctx context.Context, ident *Identity) composer.Profile {
	p, err := s.profiles.GetByID(ctx, ident.UserID)
	if err != nil {
		slog.Warn("profile lookup failed", "error", err, "user", ident.UserID)
	}
	if p != nil {
		return composer.Profile{Username: p.Username, Bio: p.Bio}
	}
	return composer.Profile{Username: ident.Username}
}

// contextFor appends the deterministic expansion and search markers to the
// composed context. They are part of the fingerprint input on purpose: an
// expanded answer is a different answer.
func (s *Service) contextFor(base string, expansion ExpansionKind, webSearch bool) string {
	switch expansion {
	case ExpandDatabase:
		base += " The user asked to see more platform results for this query; go deeper on the retrieved data."
	case ExpandProvider:
		base += " The user asked for a more detailed answer to this query; elaborate beyond the previous response."
	}
	if webSearch {
		base += " Use live web search results to ground the answer."
	}
	return base
}

// systemPrompt concatenates the context and the ordered command list into
// the provider instruction. Command order matters: earlier commands frame
// later ones.
func (s *Service) systemPrompt(contextStr string, cmds []composer.Command) string {
	var b strings.Builder
	b.WriteString("You are the resident assistant of a content feed and discussion platform. ")
	b.WriteString("Answer the user's message using the context and the retrieved data described below.\n\n")
	b.WriteString("Context: ")
	b.WriteString(contextStr)
	b.WriteString("\n\nData retrieval plan, in order:\n")
	for i, c := range cmds {
		fmt.Fprintf(&b, "%d. %s %v\n", i+1, c.Type, c.Params)
	}
	return b.String()
}

func (s *Service) publish(ctx context.Context, ident *Identity, eventType, pool, fingerprint, detail string) {
	event := inats.UsageEvent{
		EventType:   eventType,
		Pool:        pool,
		Fingerprint: fingerprint,
		Detail:      detail,
		Timestamp:   time.Now().UTC(),
	}
	if ident != nil {
		event.UserID = ident.UserID
	}
	if err := s.publisher.PublishUsageEvent(ctx, event); err != nil {
		slog.Warn("publishing usage event", "error", err, "event_type", eventType)
	}
}
