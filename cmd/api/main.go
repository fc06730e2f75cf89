package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/admin"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/api"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/audit"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/auth"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/config"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/database"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/metrics"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/ratelimit"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/repository"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/webhook"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting partnerhub gateway",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Repositories
	partners := repository.NewPartnerRepository(pool)
	credentials := repository.NewCredentialRepository(pool)
	subscriptions := repository.NewSubscriptionRepository(pool)
	deliveries := repository.NewDeliveryRepository(pool)
	accessLogs := repository.NewAccessLogRepository(pool)

	// Background task queue for access logs and last-used touches
	queueCfg := worker.DefaultConfig()
	queueCfg.BufferSize = cfg.TaskQueueSize
	tasks := worker.NewTaskQueue(logger, m, queueCfg)
	tasks.Start()

	// Auth
	tokens := auth.NewTokenManager(cfg.TokenSigningKey, cfg.TokenIssuer)
	tokenService := auth.NewService(credentials, partners, tokens, logger,
		auth.WithQueue(tasks),
		auth.WithRecorder(m),
	)
	adminJWT := admin.NewJWTService(cfg.AdminJWTSecret, cfg.TokenIssuer+"-internal", 24*time.Hour)

	// Webhooks
	retries := webhook.NewQueue()
	dispatcher := webhook.NewDispatcher(
		subscriptions,
		deliveries,
		webhook.NewSender(cfg.WebhookTimeout),
		retries,
		logger,
		webhook.Config{
			MaxAttempts:      cfg.WebhookMaxAttempts,
			DisableThreshold: cfg.WebhookDisableThreshold,
		},
		webhook.WithRecorder(m),
	)
	reconciler := webhook.NewReconciler(deliveries, subscriptions, dispatcher, retries, cfg.WebhookReconcileInterval, logger).
		WithRecorder(m)

	// Deliveries left RETRYING by a previous process are resumed before serving traffic
	recovered, err := reconciler.RunOnce(ctx)
	if err != nil {
		logger.Error("startup webhook recovery failed", slog.Any("error", err))
	} else {
		logger.Info("startup webhook recovery finished", slog.Int("recovered", recovered))
	}

	// Rate limiting
	limiterStore := ratelimit.NewMemoryStore()
	limiter := ratelimit.NewLimiter(limiterStore)

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()
	go reconciler.Run(bgCtx)
	go ratelimit.NewSweeper(limiterStore, cfg.RateLimitSweepInterval, logger).Run(bgCtx)

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		DB:          pool,
		Partners:    partners,
		Tokens:      tokens,
		TokenIssuer: tokenService,
		Webhooks:    webhook.NewService(subscriptions, deliveries, dispatcher, cfg.MaxSubscriptionsPerPartner, logger),
		Dispatcher:  dispatcher,
		Credentials: admin.NewCredentialService(partners, credentials, logger),
		Limiter:     limiter,
		AccessLog: audit.MultiLogger{
			audit.NewSlogLogger(logger),
			audit.NewStoreLogger(accessLogs, tasks),
		},
		Metrics:        m,
		Gatherer:       reg,
		AdminJWT:       adminJWT,
		TrustedProxies: cfg.TrustedProxies,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	// Pending retries stay RETRYING in storage and are picked up by the next process
	cancelBackground()
	retries.Stop()
	dispatcher.Wait()
	tasks.Stop()

	logger.Info("server stopped")

	return nil
}
