// Package provider wraps the external inference (and web-search) service
// behind a small interface so orchestration code never touches the wire
// format, and so startup can inject a disabled stub instead of silently
// degrading at call time.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured means the deployment has no provider credentials.
	// Operator-facing; surfaced to callers as a generic server error.
	ErrNotConfigured = errors.New("provider: credentials not configured")

	// ErrUnavailable is a transient failure: timeout, network error, or a
	// retryable status from the provider. Callers may retry immediately.
	ErrUnavailable = errors.New("provider: temporarily unavailable")
)

// CompletionRequest is one single-shot inference call.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
	WebSearch   bool
}

// CompletionResponse carries the provider's reply text and token usage.
type CompletionResponse struct {
	Text       string
	TokensUsed int
}

// Client is the inference provider contract. Implementations must honor the
// context deadline and return ErrUnavailable for transient failures.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Disabled is the no-op client selected when no credentials are configured.
// Every call fails fast with ErrNotConfigured.
type Disabled struct{}

func (Disabled) Complete(context.Context, CompletionRequest) (*CompletionResponse, error) {
	return nil, ErrNotConfigured
}
