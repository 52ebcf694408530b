package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}

	if c.Provider.APIKey == "" {
		// The service starts without a key, but every ask/classify request
		// will fail with a configuration error until one is set.
		slog.Warn("PROVIDER_API_KEY is empty; provider calls will be rejected")
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, "PROVIDER_TIMEOUT must be positive")
	}

	if c.Assistant.ChatLimit < 1 {
		errs = append(errs, "ASSISTANT_CHAT_LIMIT must be at least 1")
	}
	if c.Assistant.WebSearchLimit < 1 {
		errs = append(errs, "ASSISTANT_WEBSEARCH_LIMIT must be at least 1")
	}
	if c.Assistant.ChatWindow <= 0 {
		errs = append(errs, "ASSISTANT_CHAT_WINDOW must be positive")
	}
	if c.Assistant.WebSearchWindow <= 0 {
		errs = append(errs, "ASSISTANT_WEBSEARCH_WINDOW must be positive")
	}
	if c.Assistant.CacheTTL <= 0 {
		errs = append(errs, "ASSISTANT_CACHE_TTL must be positive")
	}

	if len(c.Assistant.CacheAdmins) == 0 {
		slog.Warn("ASSISTANT_CACHE_ADMINS is empty; cache clearing is disabled")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Enabled() && (c.DB.Port < 1 || c.DB.Port > 65535) {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	if c.DB.Enabled() && c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required when DB_HOST is set")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
