package handler

import (
	"net/http"

	"crm_backend/internal/activities/service"
	"crm_backend/internal/activities/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler serves the workspace activity feed
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new activities handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the activity routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
}

// List handles GET /api/v1/activities
func (h *Handler) List(c *gin.Context) {
	var query transport.ListActivitiesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query", nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.List(c.Request.Context(), identity.WorkspaceID(), query.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, items)
}
