package handler

import (
	"net/http"

	"crm_backend/internal/leads/service"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for leads
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new leads handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the lead routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
}

// Create handles POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), identity.WorkspaceID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, lead)
}

// List handles GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	leads, err := h.svc.List(c.Request.Context(), identity.WorkspaceID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, leads)
}

// GetByID handles GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), identity.WorkspaceID(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}
