package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pulse-platform/assistant/internal/config"
	"github.com/pulse-platform/assistant/internal/metrics"
)

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint.
type HTTPClient struct {
	client *resty.Client
	model  string
}

// NewHTTPClient builds the resty-backed client, or a Disabled stub when no
// API key is configured so the degraded mode is an explicit startup choice.
func NewHTTPClient(cfg config.ProviderConfig) Client {
	if cfg.APIKey == "" {
		return Disabled{}
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey).
		SetTimeout(cfg.Timeout)

	return &HTTPClient{client: c, model: cfg.Model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string         `json:"model"`
	Messages         []chatMessage  `json:"messages"`
	MaxTokens        int            `json:"max_tokens,omitempty"`
	Temperature      float32        `json:"temperature"`
	WebSearchOptions map[string]any `json:"web_search_options,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *HTTPClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	body := chatRequest{
		Model:       p.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.WebSearch {
		body.WebSearchOptions = map[string]any{}
	}

	start := time.Now()
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&body).
		Post("/chat/completions")
	metrics.ProviderCallDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderCallsTotal.WithLabelValues("complete", "error").Inc()
		// Timeouts and transport errors are transient from the caller's view.
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusOK:
		// fall through to decode
	case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500:
		metrics.ProviderCallsTotal.WithLabelValues("complete", "unavailable").Inc()
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	default:
		metrics.ProviderCallsTotal.WithLabelValues("complete", "rejected").Inc()
		return nil, fmt.Errorf("provider rejected request: status %d: %s", resp.StatusCode(), resp.String())
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		metrics.ProviderCallsTotal.WithLabelValues("complete", "error").Inc()
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		metrics.ProviderCallsTotal.WithLabelValues("complete", "error").Inc()
		return nil, fmt.Errorf("provider returned no choices")
	}

	metrics.ProviderCallsTotal.WithLabelValues("complete", "ok").Inc()
	return &CompletionResponse{
		Text:       parsed.Choices[0].Message.Content,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}
