package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/pharmledger/internal/adapter/http/handler"
	"github.com/iho/pharmledger/internal/adapter/http/middleware"
	"github.com/iho/pharmledger/internal/infrastructure/auth"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
	"github.com/iho/pharmledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler   *handler.AccountHandler
	GroupHandler     *handler.GroupHandler
	FundingHandler   *handler.FundingHandler
	PaymentHandler   *handler.PaymentHandler
	AutoEntryHandler *handler.AutoEntryHandler
	LedgerHandler    *handler.LedgerHandler
	HealthHandler    *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	// JWTManager enables bearer-token authentication. Without it the scope
	// is read from the X-Actor-ID / X-Organization-ID headers.
	JWTManager  *auth.JWTManager
	RateLimiter *middleware.RateLimiter
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	// MetricsHandler serves /metrics; defaults to the global registry.
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// Development exposes internal error detail in responses.
	Development bool
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	handler.SetDevelopmentMode(cfg.Development)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(corsOptions(cfg.CORSAllowedOrigins)))

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.JWTManager, cfg.Metrics))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Patch("/{id}", cfg.AccountHandler.Update)
			r.Post("/{id}/deactivate", cfg.AccountHandler.Deactivate)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", cfg.GroupHandler.Create)
			r.Get("/", cfg.GroupHandler.List)
			r.Post("/balances", cfg.GroupHandler.BatchBalance)
			r.Get("/{id}", cfg.GroupHandler.Get)
			r.Patch("/{id}", cfg.GroupHandler.Update)
			r.Post("/{id}/confirm", cfg.GroupHandler.Confirm)
			r.Post("/{id}/cancel", cfg.GroupHandler.Cancel)
			r.Get("/{id}/balance", cfg.GroupHandler.Balance)
			r.Post("/{id}/allocations", cfg.FundingHandler.Allocate)
			r.Get("/{id}/funding/validate", cfg.FundingHandler.Validate)
		})

		r.Route("/funding", func(r chi.Router) {
			r.Get("/sources", cfg.FundingHandler.Available)
			r.Get("/sources/{id}/usage", cfg.FundingHandler.Usage)
			r.Get("/flow", cfg.FundingHandler.Flow)
		})

		r.Post("/payments", cfg.PaymentHandler.Create)
		r.Route("/payables", func(r chi.Router) {
			r.Post("/status", cfg.PaymentHandler.BatchStatus)
			r.Get("/{documentId}/status", cfg.PaymentHandler.PayableStatus)
		})

		r.Route("/external-documents", func(r chi.Router) {
			r.Post("/{id}/complete", cfg.AutoEntryHandler.Complete)
			r.Post("/{id}/reverse", cfg.AutoEntryHandler.Reverse)
		})

		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			middleware.IdempotencyKeyHeader, middleware.ActorIDHeader, middleware.OrganizationIDHeader,
		},
		ExposedHeaders: []string{"X-Idempotency-Replay", "X-Request-Id"},
		MaxAge:         300,
	}
}
