// Package router assembles the gin engine: global middleware, the health
// endpoint and the /api/v1 groups every module mounts on.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "crm_backend/internal/http"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/idempotency"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const healthTimeout = 2 * time.Second

// New builds the engine for app.
func New(app *apphttp.App) *gin.Engine {
	cfg := app.Config
	log := app.Logger

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())
	if cfg.GetCORSAllowAll() || len(cfg.GetCORSOrigins()) > 0 {
		engine.Use(cors.New(corsConfig(cfg)))
	}

	if cfg.GetRateLimitRPS() > 0 {
		limiter := httpkit.NewIPRateLimiter(rate.Limit(cfg.GetRateLimitRPS()), cfg.GetRateLimitBurst(), log)
		engine.Use(limiter.RateLimit())
	}

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				httpkit.JSON(c, http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		httpkit.JSON(c, http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(httpkit.AuthRequired(cfg))

	routerCtx := &apphttp.RouterContext{
		Engine:    engine,
		V1:        v1,
		Protected: protected,
		Config:    cfg,
	}
	if app.Idempotency != nil && cfg.IsIdempotencyEnabled() {
		routerCtx.Idempotency = idempotency.Middleware(app.Idempotency, cfg.GetIdempotencyTTL(), log)
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		log.Info("registered module routes", "module", module.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpkit.HeaderRequestID, idempotency.HeaderKey},
		ExposeHeaders:    []string{httpkit.HeaderRequestID, idempotency.HeaderReplayed},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
		// Wildcard origins cannot be combined with credentials.
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	return corsCfg
}
