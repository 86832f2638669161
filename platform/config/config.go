// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// RedisConfig provides settings for the idempotency store.
type RedisConfig interface {
	GetRedisURL() string
	GetIdempotencyTTL() time.Duration
	IsIdempotencyEnabled() bool
}

// AgendaConfig provides settings for the follow-up agenda windows.
type AgendaConfig interface {
	GetAgendaLocation() *time.Location
	GetAgendaUpcomingDays() int
}

// FollowUpConfig provides settings for the follow-up state machine.
type FollowUpConfig interface {
	GetStrictTransitions() bool
}

// PhoneConfig provides settings for lead phone normalization.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	JWTAccessSecret    string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	RateLimitRPS       float64
	RateLimitBurst     int
	RedisURL           string
	IdempotencyTTL     time.Duration
	AgendaLocation     *time.Location
	AgendaUpcomingDays int
	StrictTransitions  bool
	PhoneDefaultRegion string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// RedisConfig implementation
func (c *Config) GetRedisURL() string              { return c.RedisURL }
func (c *Config) GetIdempotencyTTL() time.Duration { return c.IdempotencyTTL }
func (c *Config) IsIdempotencyEnabled() bool       { return c.RedisURL != "" }

// AgendaConfig implementation
func (c *Config) GetAgendaLocation() *time.Location { return c.AgendaLocation }
func (c *Config) GetAgendaUpcomingDays() int        { return c.AgendaUpcomingDays }

// FollowUpConfig implementation
func (c *Config) GetStrictTransitions() bool { return c.StrictTransitions }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	location, err := time.LoadLocation(getEnv("AGENDA_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("AGENDA_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":3333"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTAccessSecret:    getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		RateLimitRPS:       mustFloat(getEnv("RATE_LIMIT_RPS", "20")),
		RateLimitBurst:     mustInt(getEnv("RATE_LIMIT_BURST", "40")),
		RedisURL:           getEnv("REDIS_URL", ""),
		IdempotencyTTL:     mustDuration(getEnv("IDEMPOTENCY_TTL", "24h")),
		AgendaLocation:     location,
		AgendaUpcomingDays: mustInt(getEnv("AGENDA_UPCOMING_DAYS", "7")),
		StrictTransitions:  strings.EqualFold(getEnv("FOLLOWUP_STRICT_TRANSITIONS", "false"), "true"),
		PhoneDefaultRegion: strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "BR")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.AgendaUpcomingDays < 1 {
		return nil, fmt.Errorf("AGENDA_UPCOMING_DAYS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
