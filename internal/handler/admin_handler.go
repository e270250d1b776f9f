package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
	"github.com/campus-hub/clearance-api/pkg/response"
)

type statsService interface {
	Dashboard(ctx context.Context) (*models.RequestStats, error)
	AuditLogs(ctx context.Context, query dto.AuditQuery) ([]models.AuditLog, error)
}

// AdminHandler serves the dashboard counters and the audit trail.
type AdminHandler struct {
	service statsService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(svc statsService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Stats godoc
// @Summary Dashboard counters
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// AuditLogs godoc
// @Summary List audit trail entries
// @Tags Admin
// @Produce json
// @Param action query string false "Action filter"
// @Param user query string false "User filter"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Envelope
// @Router /admin/audit-logs [get]
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}

	logs, err := h.service.AuditLogs(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
