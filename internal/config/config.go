package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	JWT       JWTConfig
	Provider  ProviderConfig
	Assistant AssistantConfig
	Platform  PlatformConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// Enabled reports whether a Postgres connection is configured at all. The
// service runs with in-memory quota pools and a static profile source when
// it isn't.
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	AccessSecret string
}

// ProviderConfig points at the external inference provider
// (an OpenAI-compatible chat-completions endpoint).
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// AssistantConfig carries quota limits, cache and dedup tuning, and the
// classifier fallback for the orchestration layer.
type AssistantConfig struct {
	ChatLimit       int
	ChatWindow      time.Duration
	WebSearchLimit  int
	WebSearchWindow time.Duration
	CacheTTL        time.Duration
	DedupSessionTTL time.Duration
	BurstPerMinute  int
	DefaultCategory string
	CacheAdmins     []string
}

// PlatformConfig holds ambient activity figures surfaced in composed
// context. Display hints only; approximate values are fine.
type PlatformConfig struct {
	ActiveUsers   int
	PostCount     int
	TrendingTopic string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			AccessSecret: k.String("jwt.access.secret"),
		},
		Provider: ProviderConfig{
			BaseURL: k.String("provider.base.url"),
			APIKey:  k.String("provider.api.key"),
			Model:   k.String("provider.model"),
		},
		Assistant: AssistantConfig{
			ChatLimit:       k.Int("assistant.chat.limit"),
			WebSearchLimit:  k.Int("assistant.websearch.limit"),
			BurstPerMinute:  k.Int("assistant.burst.per.minute"),
			DefaultCategory: k.String("assistant.default.category"),
			CacheAdmins:     splitList(k.String("assistant.cache.admins")),
		},
		Platform: PlatformConfig{
			ActiveUsers:   k.Int("platform.active.users"),
			PostCount:     k.Int("platform.post.count"),
			TrendingTopic: k.String("platform.trending.topic"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Enabled() {
		if cfg.DB.Port == 0 {
			cfg.DB.Port = 5432
		}
		if cfg.DB.User == "" {
			cfg.DB.User = "pulse"
		}
		if cfg.DB.Name == "" {
			cfg.DB.Name = "pulse"
		}
		if cfg.DB.SSLMode == "" {
			cfg.DB.SSLMode = "disable"
		}
		if cfg.DB.MaxConns == 0 {
			cfg.DB.MaxConns = 25
		}
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = "gpt-4o-mini"
	}
	if cfg.Assistant.ChatLimit == 0 {
		cfg.Assistant.ChatLimit = 30
	}
	if cfg.Assistant.WebSearchLimit == 0 {
		cfg.Assistant.WebSearchLimit = 10
	}
	if cfg.Assistant.BurstPerMinute == 0 {
		cfg.Assistant.BurstPerMinute = 20
	}
	if cfg.Assistant.DefaultCategory == "" {
		cfg.Assistant.DefaultCategory = "Trending"
	}
	if cfg.Platform.ActiveUsers == 0 {
		cfg.Platform.ActiveUsers = 1200
	}
	if cfg.Platform.PostCount == 0 {
		cfg.Platform.PostCount = 8500
	}
	if cfg.Platform.TrendingTopic == "" {
		cfg.Platform.TrendingTopic = "technology"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	if cfg.Provider.Timeout, err = parseDuration(k, "provider.timeout", "30s"); err != nil {
		return nil, err
	}
	if cfg.Assistant.ChatWindow, err = parseDuration(k, "assistant.chat.window", "1h"); err != nil {
		return nil, err
	}
	if cfg.Assistant.WebSearchWindow, err = parseDuration(k, "assistant.websearch.window", "24h"); err != nil {
		return nil, err
	}
	if cfg.Assistant.CacheTTL, err = parseDuration(k, "assistant.cache.ttl", "1h"); err != nil {
		return nil, err
	}
	if cfg.Assistant.DedupSessionTTL, err = parseDuration(k, "assistant.dedup.session.ttl", "24h"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDuration(k *koanf.Koanf, key, fallback string) (time.Duration, error) {
	s := k.String(key)
	if s == "" {
		s = fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
