package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pulse-platform/assistant/internal/database"
	mw "github.com/pulse-platform/assistant/internal/middleware"
	inats "github.com/pulse-platform/assistant/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Assistant handlers
	Ask        http.HandlerFunc
	Status     http.HandlerFunc
	Expand     http.HandlerFunc
	ClearCache http.HandlerFunc

	// Governance handlers
	ListAuditLogs http.HandlerFunc

	// Ingestion handlers
	Classify http.HandlerFunc

	// Auth middleware. Optional resolves an identity when a token is
	// present but lets anonymous requests through; Required rejects them.
	OptionalAuthMiddleware func(http.Handler) http.Handler
	RequiredAuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AskRateLimiter     func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, redisClient *redis.Client, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks Redis, Postgres and NATS
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"redis":    "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if pool != nil {
			if err := database.HealthCheck(r.Context(), pool); err != nil {
				health["database"] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		} else {
			health["database"] = "not configured"
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/assistant", func(r chi.Router) {
			// Conversational routes accept anonymous callers; the service
			// decides what anonymity means per operation.
			r.Group(func(r chi.Router) {
				r.Use(h.OptionalAuthMiddleware)

				r.Group(func(r chi.Router) {
					if cfg.AskRateLimiter != nil {
						r.Use(cfg.AskRateLimiter)
					}
					r.Post("/ask", h.Ask)
					r.Post("/expand", h.Expand)
				})

				r.Get("/status", h.Status)
			})

			// Administrative and per-user routes require a valid token.
			r.Group(func(r chi.Router) {
				r.Use(h.RequiredAuthMiddleware)
				r.Delete("/cache", h.ClearCache)
				r.Get("/audit", h.ListAuditLogs)
			})
		})

		// Ingestion-side classification, called by trusted services.
		r.Group(func(r chi.Router) {
			r.Use(h.RequiredAuthMiddleware)
			r.Post("/classify", h.Classify)
		})
	})

	return r
}
