package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iho/pharmledger/internal/adapter/gateway"
	httpAdapter "github.com/iho/pharmledger/internal/adapter/http"
	"github.com/iho/pharmledger/internal/adapter/http/handler"
	"github.com/iho/pharmledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/pharmledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/pharmledger/internal/adapter/repository/redis"
	"github.com/iho/pharmledger/internal/infrastructure/auth"
	"github.com/iho/pharmledger/internal/infrastructure/config"
	"github.com/iho/pharmledger/internal/infrastructure/eventpublisher"
	"github.com/iho/pharmledger/internal/infrastructure/logger"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
	"github.com/iho/pharmledger/internal/infrastructure/postgres"
	"github.com/iho/pharmledger/internal/infrastructure/redis"
	"github.com/iho/pharmledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) error {
	if cfg.AuthEnabled && cfg.JWTSecret == "" {
		return errors.New("AUTH_ENABLED requires JWT_SECRET")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, appLogger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	pool, err := postgres.NewPool(connectCtx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	appLogger.Info().Msg("connected to postgres")

	var redisOpts []redis.ClientOption
	if cfg.RedisPoolSize > 0 {
		redisOpts = append(redisOpts, redis.WithPoolSize(cfg.RedisPoolSize))
	}
	redisClient, err := redis.NewClient(connectCtx, cfg.RedisURL, redisOpts...)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	appLogger.Info().Msg("connected to redis")

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	groupRepo := postgresRepo.NewGroupRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	retrier := postgresRepo.NewRetrier(appLogger, m)
	idGen := postgresRepo.NewULIDGenerator()
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient, m)
	sequence := redisRepo.NewSequenceGenerator(redisClient, m)
	documents := newDocumentGateway(cfg, appLogger)

	// Use cases
	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, outboxRepo, idGen, m)
	groupUC := usecase.NewGroupUseCase(txManager, groupRepo, accountRepo, outboxRepo, sequence, documents, idGen, retrier, appLogger, m)
	fundingUC := usecase.NewFundingUseCase(txManager, groupRepo, outboxRepo, idGen, retrier, appLogger, m)
	paymentUC := usecase.NewPaymentUseCase(txManager, groupRepo, accountRepo, outboxRepo, sequence, documents, idGen, retrier, appLogger, m)
	autoEntryUC := usecase.NewAutoEntryUseCase(txManager, groupRepo, accountRepo, outboxRepo, sequence, documents, idGen, retrier, appLogger, m)
	ledgerUC := usecase.NewLedgerUseCase(groupRepo)

	var jwtManager *auth.JWTManager
	if cfg.AuthEnabled {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTokenTTL)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	go evictIdleLimiters(ctx, rateLimiter, cfg.RateLimitIdle, appLogger)

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(appLogger),
		Logger:     appLogger,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})
	go func() {
		if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC),
		GroupHandler:       handler.NewGroupHandler(groupUC),
		FundingHandler:     handler.NewFundingHandler(fundingUC),
		PaymentHandler:     handler.NewPaymentHandler(paymentUC),
		AutoEntryHandler:   handler.NewAutoEntryHandler(autoEntryUC),
		LedgerHandler:      handler.NewLedgerHandler(ledgerUC),
		HealthHandler:      handler.NewHealthHandler(pool, redisPinger(redisClient)),
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		JWTManager:         jwtManager,
		RateLimiter:        rateLimiter,
		Metrics:            m,
		Logger:             appLogger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Development:        cfg.IsDevelopment(),
	})

	server := &http.Server{
		Addr:         listenAddr(cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	appLogger.Info().Msg("shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Info().Msg("server stopped")
	return nil
}

// newDocumentGateway talks to the document service when one is configured.
func newDocumentGateway(cfg *config.Config, l zerolog.Logger) usecase.ExternalDocumentGateway {
	if cfg.ExternalDocumentsURL == "" {
		return gateway.NewNoopGateway(l)
	}
	return gateway.NewWebhookGateway(gateway.WebhookConfig{
		BaseURL:    cfg.ExternalDocumentsURL,
		Timeout:    cfg.ExternalDocumentsTimeout,
		MaxRetries: cfg.ExternalDocumentsMaxRetries,
		Logger:     l,
	})
}

func redisPinger(client goredis.UniversalClient) handler.PingFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func evictIdleLimiters(ctx context.Context, rl *middleware.RateLimiter, idle time.Duration, l zerolog.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.CleanupLimiters(idle); n > 0 {
				l.Debug().Int("evicted", n).Msg("rate limiters evicted")
			}
		}
	}
}

func listenAddr(port string) string {
	if port == "" {
		port = "8080"
	}
	return ":" + port
}
