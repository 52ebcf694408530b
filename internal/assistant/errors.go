package assistant

import (
	"errors"
	"fmt"

	"github.com/pulse-platform/assistant/internal/governance/quota"
)

// QuotaError is the structured denial returned when a pool is exhausted.
// It carries the pool view so callers can render a countdown, and is
// deliberately distinct from provider failures: "wait for resetAt" versus
// "retry now".
type QuotaError struct {
	Kind quota.PoolKind
	View quota.PoolView
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded for %s pool, resets at %s", e.Kind, e.View.ResetAt.Format("15:04:05"))
}

// ErrExpansionConsumed means the (query, kind) expansion was already used.
var ErrExpansionConsumed = errors.New("assistant: expansion already consumed for this query")

// errForbidden marks a cache-clear attempt by a non-admin identity.
var errForbidden = errors.New("assistant: operation restricted to cache administrators")
