package quota

import (
	"time"
)

// PoolKind identifies one of the two independent quota pools every user has.
type PoolKind string

const (
	// KindChat is the manual-chat budget, resetting on a rolling hour.
	KindChat PoolKind = "chat"
	// KindWebSearch is the billable web-search budget, resetting on a rolling day.
	KindWebSearch PoolKind = "web_search"
)

// Pool matches the assistant_quota_pools table schema. Windows are anchored
// at first use rather than wall-clock boundaries, so a fleet of users never
// resets in the same instant.
type Pool struct {
	OwnerID     string    `json:"owner_id"`
	Kind        PoolKind  `json:"pool_kind"`
	Limit       int       `json:"pool_limit"`
	Used        int       `json:"used"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// PoolView is the read-only projection returned to callers for UI display.
type PoolView struct {
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Decision is the outcome of an atomic check-and-consume.
type Decision struct {
	Allowed bool     `json:"allowed"`
	View    PoolView `json:"view"`
}

func viewOf(limit, used int, resetAt time.Time) PoolView {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return PoolView{Limit: limit, Used: used, Remaining: remaining, ResetAt: resetAt}
}

// FreshView is the view of a pool that has never been touched (or whose
// window has elapsed): nothing used, reset one full window away.
func FreshView(limit int, window time.Duration, now time.Time) PoolView {
	return viewOf(limit, 0, now.Add(window))
}
