package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry matches the assistant_audit table schema: one row per assistant
// interaction (ask, denial, cache hit, expansion, classification, clear).
type Entry struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	EventType   string    `json:"event_type"`
	Pool        string    `json:"pool,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for audit queries.
type ListParams struct {
	EventType string
	Page      int
	PageSize  int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
