package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-hub/clearance-api/internal/dto"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
	"github.com/campus-hub/clearance-api/pkg/response"
)

type workflowService interface {
	Resolve(ctx context.Context, query dto.ResolveWorkflowQuery) (*dto.WorkflowView, error)
	List(ctx context.Context) ([]dto.WorkflowView, error)
	Update(ctx context.Context, userID string, req dto.UpdateWorkflowRequest) (*dto.UpdateWorkflowResult, error)
}

// WorkflowHandler exposes sequence resolution and admin overrides.
type WorkflowHandler struct {
	service workflowService
}

// NewWorkflowHandler constructs the handler.
func NewWorkflowHandler(svc workflowService) *WorkflowHandler {
	return &WorkflowHandler{service: svc}
}

// Resolve godoc
// @Summary Resolve the effective approval sequence
// @Tags Workflows
// @Produce json
// @Param type query string true "Request type"
// @Param programKey query string true "Program key, e.g. undergraduate-regular"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /workflows/resolve [get]
func (h *WorkflowHandler) Resolve(c *gin.Context) {
	var query dto.ResolveWorkflowQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}

	view, err := h.service.Resolve(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// List godoc
// @Summary List stored workflow overrides
// @Tags Workflows
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /workflows [get]
func (h *WorkflowHandler) List(c *gin.Context) {
	views, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Update godoc
// @Summary Store a workflow override and propagate it
// @Tags Workflows
// @Accept json
// @Produce json
// @Param payload body dto.UpdateWorkflowRequest true "Workflow override"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /workflows [put]
func (h *WorkflowHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid workflow payload"))
		return
	}

	result, err := h.service.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
