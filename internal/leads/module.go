// Package leads provides the lead bounded context module.
package leads

import (
	activityservice "crm_backend/internal/activities/service"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/leads/handler"
	"crm_backend/internal/leads/service"
	"crm_backend/internal/store"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/phone"
	"crm_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(backend store.Backend, recorder *activityservice.Recorder, val *validator.Validator, cfg config.PhoneConfig, log *logger.Logger) *Module {
	svc := service.New(backend, recorder, phone.NewNormalizer(cfg.GetPhoneDefaultRegion()), log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Service returns the lead service.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts lead routes on the provided router group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	if ctx.Idempotency != nil {
		group.Use(ctx.Idempotency)
	}
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
