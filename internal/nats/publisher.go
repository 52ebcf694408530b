package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher publishes assistant usage events to JetStream. A nil Publisher
// is valid and drops events, so deployments without NATS need no branching
// at call sites.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishUsageEvent publishes one usage event. Best-effort from the
// orchestrator's perspective; failures are the caller's to log, not to
// surface to users.
func (p *Publisher) PublishUsageEvent(ctx context.Context, event UsageEvent) error {
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling usage event: %w", err)
	}
	if _, err := p.js.Publish(ctx, SubjectUsageEvent, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", SubjectUsageEvent, err)
	}
	return nil
}
