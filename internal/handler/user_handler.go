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

type userService interface {
	Profile(ctx context.Context, userID string) (*models.UserInfo, error)
	UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*models.UserInfo, error)
	List(ctx context.Context, query dto.UserQuery) ([]models.User, *response.Pagination, error)
	Create(ctx context.Context, adminID string, req dto.CreateUserRequest) (*models.User, error)
	UpdateStatus(ctx context.Context, adminID, userID string, req dto.UpdateUserStatusRequest) error
	Delete(ctx context.Context, adminID, userID string) error
}

// UserHandler exposes profile lookup plus admin account management.
type UserHandler struct {
	service userService
}

// NewUserHandler constructs the handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// Me godoc
// @Summary Get the authenticated account's profile
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info, err := h.service.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// UpdateMe godoc
// @Summary Update the authenticated account's profile
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid profile payload"))
		return
	}

	info, err := h.service.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// List godoc
// @Summary List user accounts
// @Tags Users
// @Produce json
// @Param role query string false "Role filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	var query dto.UserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}

	users, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Create godoc
// @Summary Create a user account directly
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user payload"))
		return
	}

	user, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// UpdateStatus godoc
// @Summary Block or unblock an account
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.UpdateUserStatusRequest true "New status"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id}/status [patch]
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), claims.UserID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a user account
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
