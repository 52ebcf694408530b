// Package classifier assigns exactly one taxonomy label to a title and
// description pair via a deterministic single-shot provider call. It is used
// at ingestion, not by chat, and must never be a hard failure path: replies
// that match no label resolve to the configured default category.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pulse-platform/assistant/internal/provider"
)

// ErrMissingTitle is returned when the caller supplies no title.
var ErrMissingTitle = errors.New("classifier: title is required")

const (
	// Replies are one label; anything longer is waste.
	maxReplyTokens = 10
)

// Result carries the resolved category and the provider's raw reply for
// debugging/audit.
type Result struct {
	Category  string `json:"category"`
	RawOutput string `json:"raw_provider_output"`
}

type Classifier struct {
	provider        provider.Client
	taxonomy        Taxonomy
	defaultCategory string
}

func New(p provider.Client, taxonomy Taxonomy, defaultCategory string) *Classifier {
	return &Classifier{provider: p, taxonomy: taxonomy, defaultCategory: defaultCategory}
}

// Classify issues one zero-temperature provider call and resolves its reply
// against the taxonomy. Provider transport errors propagate; unparseable
// replies fall back to the default category.
func (c *Classifier) Classify(ctx context.Context, title, description string) (*Result, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrMissingTitle
	}

	prompt := title
	if description != "" {
		prompt = title + "\n\n" + description
	}

	resp, err := c.provider.Complete(ctx, provider.CompletionRequest{
		System:      c.instruction(),
		Prompt:      prompt,
		MaxTokens:   maxReplyTokens,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("classifying %q: %w", title, err)
	}

	category := c.resolve(resp.Text)
	return &Result{Category: category, RawOutput: resp.Text}, nil
}

// instruction embeds every taxonomy entry's description and examples into
// one system message.
func (c *Classifier) instruction() string {
	var b strings.Builder
	b.WriteString("You are a content classifier for a discussion platform. ")
	b.WriteString("Assign the post below to exactly one of these categories:\n")
	for _, cat := range c.taxonomy {
		fmt.Fprintf(&b, "- %s: %s. Examples: %s\n",
			cat.Name, cat.Description, strings.Join(cat.Examples, "; "))
	}
	b.WriteString("Reply with the category name only, nothing else.")
	return b.String()
}

// matcher strategies, applied in order with early exit so the tie-break
// order stays testable in isolation.
var matchers = []func(token, name string) bool{
	func(token, name string) bool { return token == name },
	strings.EqualFold,
	func(token, name string) bool {
		t, n := strings.ToLower(token), strings.ToLower(name)
		// The name-contains-token direction needs a minimum length, or a
		// stray "I" would match half the taxonomy.
		return strings.Contains(t, n) || (len(t) >= 3 && strings.Contains(n, t))
	},
}

// resolve takes the first whitespace-delimited token of the raw reply and
// runs it through the matcher tiers against every taxonomy name.
func (c *Classifier) resolve(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return c.defaultCategory
	}
	token := fields[0]

	for _, match := range matchers {
		for _, cat := range c.taxonomy {
			if match(token, cat.Name) {
				return cat.Name
			}
		}
	}

	slog.Debug("classifier: unmatched reply, using default", "raw", raw, "default", c.defaultCategory)
	return c.defaultCategory
}
