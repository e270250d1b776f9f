package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/clearance-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func requestRows(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "requester_id", "student_name", "department", "program", "type", "reason",
		"program_type", "program_mode", "documents", "status", "current_step",
		"approval_sequence", "approvals", "notifications", "created_at", "updated_at",
	}).AddRow(
		id, "student-1", "Abebe Kebede", "Computer Science", "BSc Computer Science",
		"termination", "graduating", "undergraduate", "regular", "{}", "pending", 0,
		`{"Academic Advisor","Registrar"}`, `[]`, `[]`, now, now,
	)
}

func TestRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clearance_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.ClearanceRequest{
		ID:               "req-1",
		RequesterID:      "student-1",
		StudentName:      "Abebe Kebede",
		Type:             models.RequestTypeTermination,
		Status:           models.StatusPending,
		ApprovalSequence: pq.StringArray{"Academic Advisor", "Registrar"},
	}
	require.NoError(t, repo.Create(context.Background(), req))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, requester_id, student_name")).
		WithArgs("req-1").
		WillReturnRows(requestRows("req-1"))

	found, err := repo.GetByID(context.Background(), "req-1")
	require.NoError(t, err)
	require.Equal(t, "req-1", found.ID)
	require.Equal(t, models.StatusPending, found.Status)
	require.Len(t, found.ApprovalSequence, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, requester_id, student_name")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRequestRepositoryListRequesterScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("requester_id = $1")).
		WithArgs("student-1").
		WillReturnRows(requestRows("req-1"))

	list, err := repo.List(context.Background(), models.RequestFilter{RequesterID: "student-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListApproverUnion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	pattern := regexp.QuoteMeta("(status = 'pending' AND approval_sequence[current_step + 1] = $1) OR approvals @> jsonb_build_array(jsonb_build_object('approver', $1::text))")
	mock.ExpectQuery(pattern).
		WithArgs("Registrar").
		WillReturnRows(requestRows("req-1"))

	list, err := repo.List(context.Background(), models.RequestFilter{ApproverLabel: "Registrar"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListSearchFields(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(reason) LIKE $1")).
		WithArgs("%transfer%").
		WillReturnRows(requestRows("req-1"))
	_, err := repo.List(context.Background(), models.RequestFilter{Search: "Transfer", SearchBy: "reason"})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(program) LIKE $1")).
		WithArgs("%logistics%").
		WillReturnRows(requestRows("req-1"))
	_, err = repo.List(context.Background(), models.RequestFilter{Search: "Logistics", SearchBy: "program"})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(id::text) LIKE $1")).
		WithArgs("%1111%").
		WillReturnRows(requestRows("req-1"))
	_, err = repo.List(context.Background(), models.RequestFilter{Search: "1111", SearchBy: "id"})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("(LOWER(student_name) LIKE $1 OR LOWER(department) LIKE $1 OR LOWER(reason) LIKE $1)")).
		WithArgs("%kebede%").
		WillReturnRows(requestRows("req-1"))
	_, err = repo.List(context.Background(), models.RequestFilter{Search: "Kebede"})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListApproverPendingOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("status = 'pending' AND approval_sequence[current_step + 1] = $1")).
		WithArgs("Registrar").
		WillReturnRows(requestRows("req-1"))

	list, err := repo.List(context.Background(), models.RequestFilter{ApproverLabel: "Registrar", PendingOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateTransition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	req := &models.ClearanceRequest{
		ID:               "req-1",
		Status:           models.StatusPending,
		CurrentStep:      1,
		ApprovalSequence: pq.StringArray{"Academic Advisor", "Registrar"},
		UpdatedAt:        time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE clearance_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateTransition(context.Background(), req, models.StatusPending, 0))

	// concurrent writer already moved the row
	mock.ExpectExec(regexp.QuoteMeta("UPDATE clearance_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateTransition(context.Background(), req, models.StatusPending, 0)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListPendingByKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("status = 'pending' AND type = $1 AND program_type = $2 AND program_mode = $3")).
		WithArgs("termination", "undergraduate", "regular").
		WillReturnRows(requestRows("req-1"))

	key := models.WorkflowKey{
		Type:        models.RequestTypeTermination,
		ProgramType: models.ProgramUndergraduate,
		ProgramMode: models.ModeRegular,
	}
	list, err := repo.ListPendingByKey(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryStats(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 3).
			AddRow("certificate_ready", 2).
			AddRow("rejected", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT type, COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"type", "count"}).
			AddRow("termination", 4).
			AddRow("idReplacement", 2))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, stats.TotalRequests)
	require.Equal(t, 3, stats.PendingRequests)
	require.Equal(t, 2, stats.ApprovedRequests)
	require.Equal(t, 1, stats.RejectedRequests)
	require.Equal(t, 4, stats.RequestsByType["termination"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryAppendDocuments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET documents = documents ||")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AppendDocuments(context.Background(), "req-1", "student-1", []string{"documents-1.pdf"}, time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("SET documents = documents ||")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.AppendDocuments(context.Background(), "req-1", "other-student", []string{"documents-1.pdf"}, time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
}
