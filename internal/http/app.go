// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"crm_backend/platform/config"
	"crm_backend/platform/idempotency"
	"crm_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	config.RedisConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration.
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness checks (database ping).
	Health HealthChecker
	// Idempotency stores replayable responses. Nil disables Idempotency-Key handling.
	Idempotency idempotency.Store
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
