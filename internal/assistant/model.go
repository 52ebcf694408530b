package assistant

import (
	"github.com/pulse-platform/assistant/internal/composer"
	"github.com/pulse-platform/assistant/internal/governance/quota"
)

// Identity is the resolved caller. Nil means anonymous, and anonymous
// callers never reach a quota pool.
type Identity struct {
	UserID   string
	Username string
}

// AskRequest is the primary entry payload: one free-text message plus the
// page and session state the UI knows about.
type AskRequest struct {
	Message     string               `json:"message" validate:"required,min=1,max=4000"`
	SessionID   string               `json:"session_id,omitempty"`
	WebSearch   bool                 `json:"web_search,omitempty"`
	PageContext composer.PageContext `json:"page_context"`
	PageFlags   composer.PageFlags   `json:"page_flags"`
}

// AskResponse carries the answer, an updated quota snapshot, and markers for
// which data kinds backed the answer (the UI derives its show-more
// affordances from these).
type AskResponse struct {
	Answer             string       `json:"answer"`
	Cached             bool         `json:"cached"`
	Quota              quota.Status `json:"quota"`
	AvailableDataKinds []string     `json:"available_data_kinds"`
}

// DeniedResponse is returned instead of an answer when a pool is exhausted.
// Remaining is always 0; ResetAt drives the countdown.
type DeniedResponse struct {
	Pool  quota.PoolKind `json:"pool"`
	View  quota.PoolView `json:"view"`
	Quota quota.Status   `json:"quota"`
}

// CacheView summarizes the response cache for the status endpoint.
type CacheView struct {
	TotalEntries  int     `json:"total_entries"`
	ActiveEntries int     `json:"active_entries"`
	HitRate       float64 `json:"hit_rate"`
}

// StatusResponse is the read-only UI projection.
type StatusResponse struct {
	Quota quota.Status `json:"quota"`
	Cache CacheView    `json:"cache"`
}

// ExpandRequest asks for a deeper version of a previously returned answer.
type ExpandRequest struct {
	OriginalQuery string `json:"original_query" validate:"required,min=1,max=4000"`
	Kind          string `json:"kind" validate:"required,oneof=database provider"`
	SessionID     string `json:"session_id,omitempty"`
}

// ExpandResponse is appended to the conversation, never replacing prior
// messages.
type ExpandResponse struct {
	Answer string `json:"answer"`
}

// ClearCacheResponse reports how many entries the bulk clear dropped.
type ClearCacheResponse struct {
	ClearedCount int `json:"cleared_count"`
}

// ClassifyRequest labels a title/description pair at ingestion time.
// Categories optionally restricts the taxonomy to the named subset.
type ClassifyRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=500"`
	Description string   `json:"description,omitempty" validate:"max=5000"`
	Categories  []string `json:"categories,omitempty"`
}

// ClassifyResponse carries the resolved label and the provider's raw reply.
type ClassifyResponse struct {
	Category          string `json:"category"`
	RawProviderOutput string `json:"raw_provider_output"`
}
