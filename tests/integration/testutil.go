//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pulse-platform/assistant/internal/api"
	"github.com/pulse-platform/assistant/internal/assistant"
	"github.com/pulse-platform/assistant/internal/auth"
	"github.com/pulse-platform/assistant/internal/cache"
	"github.com/pulse-platform/assistant/internal/classifier"
	"github.com/pulse-platform/assistant/internal/config"
	"github.com/pulse-platform/assistant/internal/dedup"
	"github.com/pulse-platform/assistant/internal/governance/audit"
	"github.com/pulse-platform/assistant/internal/governance/quota"
	"github.com/pulse-platform/assistant/internal/platform"
	"github.com/pulse-platform/assistant/internal/profiles"
	"github.com/pulse-platform/assistant/internal/provider"
)

type TestEnv struct {
	Pool          *pgxpool.Pool
	RedisClient   *redis.Client
	Server        *httptest.Server
	JWTManager    *auth.JWTManager
	ProviderCalls *atomic.Int64
	Config        config.AssistantConfig
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "pulse_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/pulse_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	m, err := migrate.New(fmt.Sprintf("file://%s", getMigrationsPath()), dsn)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// The users table belongs to the platform, not this service; stand in
	// for it here so profile lookups resolve.
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id       TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			bio      TEXT
		)`)
	if err != nil {
		t.Fatalf("creating users table: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Stub provider: OpenAI-shaped completions, call-counted
	calls := &atomic.Int64{}
	providerStub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "stub answer"}}},
			"usage":   map[string]int{"total_tokens": 7},
		})
	}))
	t.Cleanup(providerStub.Close)

	assistantCfg := config.AssistantConfig{
		ChatLimit:       10,
		ChatWindow:      time.Hour,
		WebSearchLimit:  3,
		WebSearchWindow: 24 * time.Hour,
		CacheTTL:        time.Hour,
		DedupSessionTTL: 24 * time.Hour,
		BurstPerMinute:  1000,
		DefaultCategory: "Trending",
		CacheAdmins:     []string{"admin-user"},
	}

	providerClient := provider.NewHTTPClient(config.ProviderConfig{
		BaseURL: providerStub.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})

	quotaSvc := quota.NewService(quota.NewRepository(pool), assistantCfg)
	auditRepo := audit.NewRepository(pool)

	svc := assistant.NewService(
		quotaSvc,
		cache.NewStore(redisClient),
		dedup.NewSet(redisClient, assistantCfg.DedupSessionTTL),
		assistant.NewExpansionGate(redisClient, assistantCfg.DedupSessionTTL),
		providerClient,
		profiles.NewRepository(pool),
		platform.NewFixedStats(config.PlatformConfig{ActiveUsers: 100, PostCount: 500, TrendingTopic: "testing"}),
		nil,
		assistantCfg,
	)

	jwtManager := auth.NewJWTManager("test-access-secret-32-chars-long!!")
	handler := assistant.NewHandler(svc, auditRepo, providerClient, classifier.DefaultTaxonomy(), assistantCfg.DefaultCategory)

	router := api.NewRouter(pool, redisClient, nil, api.RouterConfig{}, api.HandlerSet{
		Ask:        handler.Ask,
		Status:     handler.Status,
		Expand:     handler.Expand,
		ClearCache: handler.ClearCache,

		ListAuditLogs: handler.ListAuditLogs,
		Classify:      handler.Classify,

		OptionalAuthMiddleware: auth.OptionalMiddleware(jwtManager),
		RequiredAuthMiddleware: auth.Middleware(jwtManager),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:          pool,
		RedisClient:   redisClient,
		Server:        server,
		JWTManager:    jwtManager,
		ProviderCalls: calls,
		Config:        assistantCfg,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

func TokenFor(t *testing.T, env *TestEnv, userID, username string) string {
	t.Helper()
	token, err := env.JWTManager.IssueToken(userID, username, time.Hour)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	return token
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
