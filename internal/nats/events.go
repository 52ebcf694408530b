package nats

import (
	"time"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds assistant usage events.
const StreamEvents = "PULSE_ASSISTANT_EVENTS"

// SubjectUsageEvent is where the orchestrator publishes usage events.
const SubjectUsageEvent = "pulse.assistant.usage"

// Usage event types.
const (
	EventAsked        = "asked"
	EventDenied       = "denied"
	EventCacheHit     = "cache_hit"
	EventCacheCleared = "cache_cleared"
	EventExpanded     = "expanded"
	EventClassified   = "classified"
)

// UsageEvent records one assistant interaction for the audit trail.
type UsageEvent struct {
	UserID      string    `json:"user_id"`
	EventType   string    `json:"event_type"`
	Pool        string    `json:"pool,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
