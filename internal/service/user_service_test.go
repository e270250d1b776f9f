package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

type adminUserStoreStub struct {
	users  map[string]*models.User
	filter models.UserFilter
}

func newAdminUserStoreStub(users ...*models.User) *adminUserStoreStub {
	stub := &adminUserStoreStub{users: make(map[string]*models.User)}
	for _, u := range users {
		stub.users[u.ID] = u
	}
	return stub
}

func (s *adminUserStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *adminUserStoreStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *adminUserStoreStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	s.filter = filter
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (s *adminUserStoreStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.ID] = user
	return nil
}

func (s *adminUserStoreStub) UpdateProfile(ctx context.Context, id, name, email string, updatedAt time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Name = name
	u.Email = email
	u.UpdatedAt = updatedAt
	return nil
}

func (s *adminUserStoreStub) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Status = status
	return nil
}

func (s *adminUserStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.users, id)
	return nil
}

func TestUserServiceProfile(t *testing.T) {
	store := newAdminUserStoreStub(studentUser())
	svc := NewUserService(store, &auditStub{}, nil, nil)

	info, err := svc.Profile(context.Background(), "student-1")
	require.NoError(t, err)
	require.Equal(t, "john", info.Username)
	require.Equal(t, "DMU001234", info.StudentID)

	_, err = svc.Profile(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	store := newAdminUserStoreStub(studentUser())
	audit := &auditStub{}
	svc := NewUserService(store, audit, nil, nil)

	info, err := svc.UpdateProfile(context.Background(), "student-1", dto.UpdateProfileRequest{
		Name:  "John M. Mwita",
		Email: "john.mwita@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "John M. Mwita", info.Name)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionProfileUpdate, audit.logs[0].Action)

	_, err = svc.UpdateProfile(context.Background(), "student-1", dto.UpdateProfileRequest{Name: "No Mail", Email: "not-an-email"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceListBuildsFilter(t *testing.T) {
	store := newAdminUserStoreStub(studentUser())
	svc := NewUserService(store, &auditStub{}, nil, nil)

	users, pagination, err := svc.List(context.Background(), dto.UserQuery{Role: "student", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NotNil(t, store.filter.Role)
	require.Equal(t, models.RoleStudent, *store.filter.Role)
	require.Equal(t, 2, pagination.Page)
	require.Equal(t, 10, pagination.PageSize)
	require.Equal(t, 1, pagination.TotalCount)
}

func TestUserServiceCreateAssignsStudentID(t *testing.T) {
	store := newAdminUserStoreStub()
	audit := &auditStub{}
	svc := NewUserService(store, audit, nil, nil)

	user, err := svc.Create(context.Background(), "admin-1", dto.CreateUserRequest{
		Username: "fresh",
		Password: "secret1",
		Name:     "Fresh Account",
		Email:    "fresh@example.com",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(user.StudentID, "DMU"))
	require.Equal(t, models.UserStatusActive, user.Status)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionUserCreate, audit.logs[0].Action)

	_, err = svc.Create(context.Background(), "admin-1", dto.CreateUserRequest{
		Username: "fresh",
		Password: "secret1",
		Name:     "Duplicate",
		Email:    "dup@example.com",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateStatusGuards(t *testing.T) {
	store := newAdminUserStoreStub(studentUser())
	svc := NewUserService(store, &auditStub{}, nil, nil)

	err := svc.UpdateStatus(context.Background(), "admin-1", "admin-1", dto.UpdateUserStatusRequest{Status: models.UserStatusBlocked})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.UpdateStatus(context.Background(), "admin-1", "student-1", dto.UpdateUserStatusRequest{Status: models.UserStatusBlocked})
	require.NoError(t, err)
	require.Equal(t, models.UserStatusBlocked, store.users["student-1"].Status)
}

func TestUserServiceDeleteGuards(t *testing.T) {
	store := newAdminUserStoreStub(studentUser())
	svc := NewUserService(store, &auditStub{}, nil, nil)

	err := svc.Delete(context.Background(), "admin-1", "admin-1")
	require.Error(t, err)

	require.NoError(t, svc.Delete(context.Background(), "admin-1", "student-1"))
	require.Empty(t, store.users)

	err = svc.Delete(context.Background(), "admin-1", "student-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
