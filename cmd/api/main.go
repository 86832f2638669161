package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_backend/internal/activities"
	"crm_backend/internal/followups"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/http/router"
	"crm_backend/internal/leads"
	"crm_backend/internal/store/postgres"
	"crm_backend/platform/config"
	"crm_backend/platform/db"
	"crm_backend/platform/idempotency"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	idemStore, closeIdempotency := initIdempotency(ctx, cfg, log)
	if closeIdempotency != nil {
		defer closeIdempotency()
	}

	// ========================================================================
	// Domain Modules
	// ========================================================================

	backend := postgres.New(pool)
	val := validator.New()

	activitiesModule := activities.NewModule(backend, val)
	leadsModule := leads.NewModule(backend, activitiesModule.Recorder(), val, cfg, log)
	followupsModule := followups.NewModule(backend, activitiesModule.Recorder(), val, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:      cfg,
		Logger:      log,
		Health:      db.NewPoolAdapter(pool),
		Idempotency: idemStore,
		Modules: []apphttp.Module{
			activitiesModule,
			leadsModule,
			followupsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initIdempotency(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (idempotency.Store, func()) {
	if !cfg.IsIdempotencyEnabled() {
		log.Warn("REDIS_URL not configured; Idempotency-Key replay disabled")
		return nil, nil
	}

	client, err := idempotency.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize idempotency store", "error", err)
		return nil, nil
	}

	return idempotency.NewRedisStore(client), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
