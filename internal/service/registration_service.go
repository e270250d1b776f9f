package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

type registrationStore interface {
	Create(ctx context.Context, registration *models.Registration) error
	GetByID(ctx context.Context, id string) (*models.Registration, error)
	FindByUsername(ctx context.Context, username string) (*models.Registration, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
}

type registrationUserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// RegistrationService runs the signup review queue. Signups never become
// accounts directly; an admin approves or rejects each one, and approval is
// the moment the user row is created and a student ID assigned.
type RegistrationService struct {
	registrations registrationStore
	users         registrationUserStore
	audit         auditWriter
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewRegistrationService constructs the service.
func NewRegistrationService(registrations registrationStore, users registrationUserStore, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RegistrationService{
		registrations: registrations,
		users:         users,
		audit:         audit,
		validator:     validate,
		logger:        logger,
	}
}

// Register enqueues a signup for review.
func (s *RegistrationService) Register(ctx context.Context, req dto.RegisterRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if _, err := s.registrations.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a registration for this username is already pending")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending registrations")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	registration := &models.Registration{
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.Role,
		Department:   req.Department,
		Program:      req.Program,
		ApproverType: req.ApproverType,
		Status:       models.RegistrationPending,
	}
	if err := s.registrations.Create(ctx, registration); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store registration")
	}

	s.logger.Info("registration queued", zap.String("username", req.Username), zap.String("role", string(req.Role)))
	return registration, nil
}

// List returns the review queue.
func (s *RegistrationService) List(ctx context.Context, status models.RegistrationStatus) ([]models.Registration, error) {
	registrations, err := s.registrations.List(ctx, models.RegistrationFilter{Status: status})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return registrations, nil
}

// Review decides a pending registration. Approval creates the account;
// students get a generated campus ID at this point.
func (s *RegistrationService) Review(ctx context.Context, adminID, registrationID string, req dto.ReviewRegistrationRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	registration, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if registration.Status != models.RegistrationPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "registration has already been reviewed")
	}

	if req.Action == "rejected" {
		if err := s.markReviewed(ctx, registrationID, models.RegistrationRejected); err != nil {
			return nil, err
		}
		s.emitRegistrationAudit(ctx, adminID, models.AuditActionRegistrationRejected, registrationID, nil)
		return nil, nil
	}

	if err := s.markReviewed(ctx, registrationID, models.RegistrationApproved); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     registration.Username,
		PasswordHash: registration.PasswordHash,
		Name:         registration.Name,
		Email:        registration.Email,
		Role:         registration.Role,
		Department:   registration.Department,
		Program:      registration.Program,
		ApproverType: registration.ApproverType,
		Status:       models.UserStatusActive,
	}
	if user.Role == models.RoleStudent {
		user.StudentID = generateStudentID()
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user from registration")
	}

	details, _ := json.Marshal(map[string]string{"username": user.Username, "userId": user.ID})
	s.emitRegistrationAudit(ctx, adminID, models.AuditActionRegistrationApproved, registrationID, details)

	return user, nil
}

func (s *RegistrationService) markReviewed(ctx context.Context, registrationID string, status models.RegistrationStatus) error {
	if err := s.registrations.UpdateStatus(ctx, registrationID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "registration was reviewed by someone else")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration")
	}
	return nil
}

func (s *RegistrationService) emitRegistrationAudit(ctx context.Context, adminID, action, registrationID string, details []byte) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     action,
		Resource:   "registration",
		ResourceID: &registrationID,
		Details:    details,
	}); err != nil {
		s.logger.Warn("failed to record registration audit log", zap.String("action", action), zap.Error(err))
	}
}

// generateStudentID issues a campus ID of the form DMU followed by six
// digits.
func generateStudentID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "DMU000000"
	}
	return fmt.Sprintf("DMU%06d", n.Int64())
}
