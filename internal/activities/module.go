// Package activities provides the append-only activity feed module.
package activities

import (
	"crm_backend/internal/activities/handler"
	"crm_backend/internal/activities/service"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/store"
	"crm_backend/platform/validator"
)

// Module represents the activities domain module
type Module struct {
	handler  *handler.Handler
	service  *service.Service
	recorder *service.Recorder
}

// NewModule creates the module. The recorder is shared with the modules that
// write activities inside their own units of work.
func NewModule(backend store.Backend, val *validator.Validator) *Module {
	svc := service.New(backend.Activities())
	return &Module{
		handler:  handler.New(svc, val),
		service:  svc,
		recorder: service.NewRecorder(nil),
	}
}

// Recorder returns the shared activity recorder.
func (m *Module) Recorder() *service.Recorder {
	return m.recorder
}

// Service returns the feed service.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "activities"
}

// RegisterRoutes registers the module's routes under /api/v1/activities
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/activities"))
}

var _ apphttp.Module = (*Module)(nil)
