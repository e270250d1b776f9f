package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
	"github.com/campus-hub/clearance-api/pkg/response"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id, name, email string, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	Delete(ctx context.Context, id string) error
}

// UserService provides admin account management plus profile lookup.
type UserService struct {
	repo      userStore
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(repo userStore, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Profile returns the account behind the token.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	info := toUserInfo(user)
	return &info, nil
}

// UpdateProfile lets an account change its own display name and email.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	if err := s.repo.UpdateProfile(ctx, userID, req.Name, req.Email, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	details, _ := json.Marshal(map[string]string{"name": req.Name, "email": req.Email})
	s.emitUserAudit(ctx, userID, models.AuditActionProfileUpdate, userID, details)

	return s.Profile(ctx, userID)
}

// List returns users for the admin screen.
func (s *UserService) List(ctx context.Context, query dto.UserQuery) ([]models.User, *response.Pagination, error) {
	filter := models.UserFilter{
		Search:   query.Search,
		SearchBy: query.SearchBy,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Role != "" {
		role := models.UserRole(query.Role)
		filter.Role = &role
	}
	if query.Status != "" {
		status := models.UserStatus(query.Status)
		filter.Status = &status
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	pagination := &response.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}
	return users, pagination, nil
}

// Create inserts a user directly, bypassing the registration queue.
func (s *UserService) Create(ctx context.Context, adminID string, req dto.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.Role,
		Department:   req.Department,
		Program:      req.Program,
		ApproverType: req.ApproverType,
		Status:       models.UserStatusActive,
	}
	if user.Role == models.RoleStudent {
		user.StudentID = generateStudentID()
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	details, _ := json.Marshal(map[string]string{"username": user.Username, "role": string(user.Role)})
	s.emitUserAudit(ctx, adminID, models.AuditActionUserCreate, user.ID, details)

	return user, nil
}

// UpdateStatus blocks or unblocks an account.
func (s *UserService) UpdateStatus(ctx context.Context, adminID, userID string, req dto.UpdateUserStatusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if adminID == userID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot change own account status")
	}

	if err := s.repo.UpdateStatus(ctx, userID, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user status")
	}

	details, _ := json.Marshal(map[string]string{"status": string(req.Status)})
	s.emitUserAudit(ctx, adminID, models.AuditActionUserStatusChange, userID, details)
	return nil
}

// Delete removes an account.
func (s *UserService) Delete(ctx context.Context, adminID, userID string) error {
	if adminID == userID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete own account")
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.emitUserAudit(ctx, adminID, models.AuditActionUserDelete, userID, nil)
	return nil
}

func (s *UserService) emitUserAudit(ctx context.Context, adminID, action, userID string, details []byte) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     action,
		Resource:   "user",
		ResourceID: &userID,
		Details:    details,
	}); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}
