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

type registrationService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*models.Registration, error)
	List(ctx context.Context, status models.RegistrationStatus) ([]models.Registration, error)
	Review(ctx context.Context, adminID, registrationID string, req dto.ReviewRegistrationRequest) (*models.User, error)
}

// RegistrationHandler exposes public signup and the admin review queue.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(svc registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: svc}
}

// Register godoc
// @Summary Submit a signup for review
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid registration payload"))
		return
	}

	registration, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// List godoc
// @Summary List the signup review queue
// @Tags Registrations
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	status := models.RegistrationStatus(c.Query("status"))
	registrations, err := h.service.List(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, nil)
}

// Review godoc
// @Summary Approve or reject a signup
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.ReviewRegistrationRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/registrations/{id}/review [post]
func (h *RegistrationHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReviewRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}

	user, err := h.service.Review(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if user == nil {
		response.JSON(c, http.StatusOK, gin.H{"status": "rejected"}, nil)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
