package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

type registrationStoreStub struct {
	registrations map[string]*models.Registration
}

func newRegistrationStoreStub() *registrationStoreStub {
	return &registrationStoreStub{registrations: make(map[string]*models.Registration)}
}

func (s *registrationStoreStub) Create(ctx context.Context, registration *models.Registration) error {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	s.registrations[registration.ID] = registration
	return nil
}

func (s *registrationStoreStub) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	if reg, ok := s.registrations[id]; ok {
		copy := *reg
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *registrationStoreStub) FindByUsername(ctx context.Context, username string) (*models.Registration, error) {
	for _, reg := range s.registrations {
		if reg.Username == username && reg.Status == models.RegistrationPending {
			return reg, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *registrationStoreStub) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	out := make([]models.Registration, 0, len(s.registrations))
	for _, reg := range s.registrations {
		if filter.Status != "" && reg.Status != filter.Status {
			continue
		}
		out = append(out, *reg)
	}
	return out, nil
}

func (s *registrationStoreStub) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	reg, ok := s.registrations[id]
	if !ok || reg.Status != models.RegistrationPending {
		return sql.ErrNoRows
	}
	reg.Status = status
	return nil
}

type registrationUserStoreStub struct {
	users map[string]*models.User
}

func newRegistrationUserStoreStub() *registrationUserStoreStub {
	return &registrationUserStoreStub{users: make(map[string]*models.User)}
}

func (s *registrationUserStoreStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := s.users[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *registrationUserStoreStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.Username] = user
	return nil
}

func studentSignup() dto.RegisterRequest {
	return dto.RegisterRequest{
		Username:   "newstudent",
		Password:   "secret1",
		Name:       "Asha Komba",
		Email:      "asha@example.com",
		Role:       models.RoleStudent,
		Department: "Marine Engineering",
		Program:    "BSc Marine Engineering",
	}
}

func TestRegistrationServiceRegisterQueuesPending(t *testing.T) {
	registrations := newRegistrationStoreStub()
	svc := NewRegistrationService(registrations, newRegistrationUserStoreStub(), &auditStub{}, nil, nil)

	registration, err := svc.Register(context.Background(), studentSignup())
	require.NoError(t, err)
	require.Equal(t, models.RegistrationPending, registration.Status)
	require.NotEqual(t, "secret1", registration.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(registration.PasswordHash), []byte("secret1")))
}

func TestRegistrationServiceRegisterRejectsTakenUsername(t *testing.T) {
	users := newRegistrationUserStoreStub()
	users.users["newstudent"] = &models.User{ID: "u-1", Username: "newstudent"}
	svc := NewRegistrationService(newRegistrationStoreStub(), users, &auditStub{}, nil, nil)

	_, err := svc.Register(context.Background(), studentSignup())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegistrationServiceRegisterRejectsPendingDuplicate(t *testing.T) {
	registrations := newRegistrationStoreStub()
	svc := NewRegistrationService(registrations, newRegistrationUserStoreStub(), &auditStub{}, nil, nil)

	_, err := svc.Register(context.Background(), studentSignup())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), studentSignup())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegistrationServiceApproveCreatesStudentAccount(t *testing.T) {
	registrations := newRegistrationStoreStub()
	users := newRegistrationUserStoreStub()
	audit := &auditStub{}
	svc := NewRegistrationService(registrations, users, audit, nil, nil)

	registration, err := svc.Register(context.Background(), studentSignup())
	require.NoError(t, err)

	user, err := svc.Review(context.Background(), "admin-1", registration.ID, dto.ReviewRegistrationRequest{Action: "approved"})
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, models.UserStatusActive, user.Status)
	require.True(t, strings.HasPrefix(user.StudentID, "DMU"))
	require.Len(t, user.StudentID, 9)
	require.Equal(t, models.RegistrationApproved, registrations.registrations[registration.ID].Status)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionRegistrationApproved, audit.logs[0].Action)
}

func TestRegistrationServiceRejectLeavesNoAccount(t *testing.T) {
	registrations := newRegistrationStoreStub()
	users := newRegistrationUserStoreStub()
	svc := NewRegistrationService(registrations, users, &auditStub{}, nil, nil)

	registration, err := svc.Register(context.Background(), studentSignup())
	require.NoError(t, err)

	user, err := svc.Review(context.Background(), "admin-1", registration.ID, dto.ReviewRegistrationRequest{Action: "rejected"})
	require.NoError(t, err)
	require.Nil(t, user)
	require.Empty(t, users.users)
	require.Equal(t, models.RegistrationRejected, registrations.registrations[registration.ID].Status)
}

func TestRegistrationServiceDoubleReview(t *testing.T) {
	registrations := newRegistrationStoreStub()
	svc := NewRegistrationService(registrations, newRegistrationUserStoreStub(), &auditStub{}, nil, nil)

	registration, err := svc.Register(context.Background(), studentSignup())
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), "admin-1", registration.ID, dto.ReviewRegistrationRequest{Action: "approved"})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), "admin-2", registration.ID, dto.ReviewRegistrationRequest{Action: "rejected"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}
