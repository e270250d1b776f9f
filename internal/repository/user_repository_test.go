package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/clearance-api/internal/models"
)

func userRows(id, username string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "username", "password_hash", "name", "email", "role", "department",
		"program", "student_id", "approver_type", "status", "last_login", "created_at", "updated_at",
	}).AddRow(id, username, "hash", "Abebe Kebede", "abebe@dmu.edu.et", "student",
		"Computer Science", "BSc Computer Science", "DMU123456", "", "active", nil, now, now)
}

func TestUserRepositoryFindByUsername(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
		WithArgs("abebe").
		WillReturnRows(userRows("user-1", "abebe"))

	user, err := repo.FindByUsername(context.Background(), "abebe")
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, models.RoleStudent, user.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{
		Username:     "abebe",
		PasswordHash: "hash",
		Name:         "Abebe Kebede",
		Email:        "abebe@dmu.edu.et",
		Role:         models.RoleStudent,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotEmpty(t, user.ID)
	require.Equal(t, models.UserStatusActive, user.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.UserStatusBlocked)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepositoryUpdateProfile(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = $2, email = $3")).
		WithArgs("user-1", "Asha Komba", "asha@example.com", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateProfile(context.Background(), "user-1", "Asha Komba", "asha@example.com", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	role := models.RoleApprover
	mock.ExpectQuery(regexp.QuoteMeta("role = $1")).
		WithArgs("approver").
		WillReturnRows(userRows("user-2", "registrar1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("approver").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
