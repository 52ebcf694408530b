package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulse-platform/assistant/internal/api"
	"github.com/pulse-platform/assistant/internal/assistant"
	"github.com/pulse-platform/assistant/internal/auth"
	"github.com/pulse-platform/assistant/internal/cache"
	"github.com/pulse-platform/assistant/internal/classifier"
	"github.com/pulse-platform/assistant/internal/config"
	"github.com/pulse-platform/assistant/internal/database"
	"github.com/pulse-platform/assistant/internal/dedup"
	"github.com/pulse-platform/assistant/internal/governance/audit"
	"github.com/pulse-platform/assistant/internal/governance/quota"
	"github.com/pulse-platform/assistant/internal/middleware"
	inats "github.com/pulse-platform/assistant/internal/nats"
	"github.com/pulse-platform/assistant/internal/platform"
	"github.com/pulse-platform/assistant/internal/profiles"
	"github.com/pulse-platform/assistant/internal/provider"
	iredis "github.com/pulse-platform/assistant/internal/redis"
	"github.com/pulse-platform/assistant/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Redis is the one hard dependency: cache, dedup, expansion gate and
	// the burst limiter all live there.
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// PostgreSQL is optional. Without it quota pools are in-memory and
	// profiles resolve from token claims only.
	var (
		pool         *pgxpool.Pool
		quotaStore   quota.Store
		profileStore profiles.Store
		auditRepo    *audit.Repository
	)
	if cfg.DB.Enabled() {
		pool, err = database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			slog.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}

		quotaStore = quota.NewRepository(pool)
		profileStore = profiles.NewRepository(pool)
		auditRepo = audit.NewRepository(pool)
	} else {
		slog.Warn("postgres not configured, using in-memory quota pools")
		quotaStore = quota.NewMemoryStore()
		profileStore = profiles.TokenOnly{}
	}

	// NATS is optional. Without it usage events are dropped and the audit
	// trail stays empty.
	var (
		natsClient *inats.Client
		publisher  *inats.Publisher
	)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())

		if auditRepo != nil {
			consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
			go func() {
				if err := consumer.Start(ctx); err != nil {
					slog.Error("audit consumer stopped", "error", err)
				}
			}()
		}
	} else {
		slog.Warn("nats not configured, usage events disabled")
	}

	providerClient := provider.NewHTTPClient(cfg.Provider)

	// Assistant wiring
	quotaSvc := quota.NewService(quotaStore, cfg.Assistant)
	cacheStore := cache.NewStore(redisClient)
	dedupSet := dedup.NewSet(redisClient, cfg.Assistant.DedupSessionTTL)
	gate := assistant.NewExpansionGate(redisClient, cfg.Assistant.DedupSessionTTL)
	statsSource := platform.NewFixedStats(cfg.Platform)

	svc := assistant.NewService(
		quotaSvc,
		cacheStore,
		dedupSet,
		gate,
		providerClient,
		profileStore,
		statsSource,
		publisher,
		cfg.Assistant,
	)

	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret)
	handler := assistant.NewHandler(svc, auditRepo, providerClient, classifier.DefaultTaxonomy(), cfg.Assistant.DefaultCategory)

	askLimiter := middleware.NewRateLimiter(redisClient, cfg.Assistant.BurstPerMinute, 60)

	// Router
	router := api.NewRouter(pool, redisClient, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AskRateLimiter:     askLimiter.Middleware,
	}, api.HandlerSet{
		Ask:        handler.Ask,
		Status:     handler.Status,
		Expand:     handler.Expand,
		ClearCache: handler.ClearCache,

		ListAuditLogs: handler.ListAuditLogs,
		Classify:      handler.Classify,

		OptionalAuthMiddleware: auth.OptionalMiddleware(jwtManager),
		RequiredAuthMiddleware: auth.Middleware(jwtManager),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
