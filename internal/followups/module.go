// Package followups provides the follow-up lifecycle and agenda module.
package followups

import (
	activityservice "crm_backend/internal/activities/service"
	"crm_backend/internal/followups/agenda"
	"crm_backend/internal/followups/domain"
	"crm_backend/internal/followups/handler"
	"crm_backend/internal/followups/service"
	"crm_backend/internal/followups/statussync"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/store"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"
)

// Config combines the settings the module reads.
type Config interface {
	config.FollowUpConfig
	config.AgendaConfig
}

// Module represents the follow-ups domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	agenda  *agenda.Engine
}

// NewModule creates a new follow-ups module with all dependencies wired
func NewModule(backend store.Backend, recorder *activityservice.Recorder, val *validator.Validator, cfg Config, log *logger.Logger) *Module {
	policy := domain.PolicyPermissive
	if cfg.GetStrictTransitions() {
		policy = domain.PolicyStrict
	}

	svc := service.New(backend, statussync.New(recorder), recorder, policy, log)
	engine := agenda.New(backend.FollowUps(), cfg)

	return &Module{
		handler: handler.New(svc, engine, val),
		service: svc,
		agenda:  engine,
	}
}

// Service exposes the state machine.
func (m *Module) Service() *service.Service {
	return m.service
}

// Agenda exposes the agenda engine.
func (m *Module) Agenda() *agenda.Engine {
	return m.agenda
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "followups"
}

// RegisterRoutes registers the module's routes under /api/v1/followups
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/followups")
	if ctx.Idempotency != nil {
		group.Use(ctx.Idempotency)
	}
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
