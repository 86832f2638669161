package handler

import (
	"errors"
	"io"
	"net/http"

	"crm_backend/internal/followups/agenda"
	"crm_backend/internal/followups/service"
	"crm_backend/internal/followups/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for follow-ups and the agenda
type Handler struct {
	svc    *service.Service
	agenda *agenda.Engine
	val    *validator.Validator
}

// New creates a new follow-ups handler
func New(svc *service.Service, agendaEngine *agenda.Engine, val *validator.Validator) *Handler {
	return &Handler{svc: svc, agenda: agendaEngine, val: val}
}

// RegisterRoutes registers the follow-up routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/today", h.Today)
	rg.GET("/overdue", h.Overdue)
	rg.GET("/upcoming", h.Upcoming)
	rg.GET("/agenda", h.Agenda)
	rg.GET("/lead/:leadId", h.ListByLead)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/done", h.Complete)
	rg.PATCH("/:id/cancel", h.Cancel)
	rg.PATCH("/:id/reschedule", h.Reschedule)
}

// Create handles POST /api/v1/followups
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateFollowUpRequest
	if !h.bind(c, &req, false) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), identity.WorkspaceID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

// GetByID handles GET /api/v1/followups/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), identity.WorkspaceID(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ListByLead handles GET /api/v1/followups/lead/:leadId
func (h *Handler) ListByLead(c *gin.Context) {
	leadID, ok := parseUUIDParam(c, "leadId")
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListByLead(c.Request.Context(), identity.WorkspaceID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Complete handles PATCH /api/v1/followups/:id/done
func (h *Handler) Complete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.CompleteFollowUpRequest
	if !h.bind(c, &req, true) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Complete(c.Request.Context(), identity.WorkspaceID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Cancel handles PATCH /api/v1/followups/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.CancelFollowUpRequest
	if !h.bind(c, &req, true) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), identity.WorkspaceID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Reschedule handles PATCH /api/v1/followups/:id/reschedule
func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.RescheduleFollowUpRequest
	if !h.bind(c, &req, false) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Reschedule(c.Request.Context(), identity.WorkspaceID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Today handles GET /api/v1/followups/today
func (h *Handler) Today(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.agenda.Today(c.Request.Context(), identity.WorkspaceID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Overdue handles GET /api/v1/followups/overdue
func (h *Handler) Overdue(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.agenda.Overdue(c.Request.Context(), identity.WorkspaceID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Upcoming handles GET /api/v1/followups/upcoming
func (h *Handler) Upcoming(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.agenda.Upcoming(c.Request.Context(), identity.WorkspaceID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Agenda handles GET /api/v1/followups/agenda
func (h *Handler) Agenda(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.agenda.Snapshot(c.Request.Context(), identity.WorkspaceID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// bind decodes and validates the JSON body. optional accepts an empty body.
func (h *Handler) bind(c *gin.Context, req any, optional bool) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if !optional || !errors.Is(err, io.EOF) {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return false
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
