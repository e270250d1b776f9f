package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campus-hub/clearance-api/internal/models"
)

const requestColumns = `id, requester_id, student_name, department, program, type, reason, program_type, program_mode,
       documents, status, current_step, approval_sequence, approvals, notifications, created_at, updated_at`

// RequestRepository persists clearance requests and their embedded histories.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row.
func (r *RequestRepository) Create(ctx context.Context, req *models.ClearanceRequest) error {
	const query = `INSERT INTO clearance_requests
	(id, requester_id, student_name, department, program, type, reason, program_type, program_mode,
	 documents, status, current_step, approval_sequence, approvals, notifications, created_at, updated_at)
	VALUES (:id, :requester_id, :student_name, :department, :program, :type, :reason, :program_type, :program_mode,
	 :documents, :status, :current_step, :approval_sequence, :approvals, :notifications, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.ClearanceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM clearance_requests WHERE id = $1 LIMIT 1`, requestColumns)
	var req models.ClearanceRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return &req, nil
}

// List returns requests within the filter's visibility scope, newest first.
// An approver sees the union of requests waiting on their label right now and
// requests they have already decided; a requester sees only their own.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.ClearanceRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 8)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM clearance_requests`, requestColumns))

	conditions := make([]string, 0, 6)
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if filter.ApproverLabel != "" {
		args = append(args, filter.ApproverLabel)
		labelArg := len(args)
		current := fmt.Sprintf("(status = 'pending' AND approval_sequence[current_step + 1] = $%d)", labelArg)
		if filter.PendingOnly {
			conditions = append(conditions, current)
		} else {
			decided := fmt.Sprintf("approvals @> jsonb_build_array(jsonb_build_object('approver', $%d::text))", labelArg)
			conditions = append(conditions, fmt.Sprintf("(%s OR %s)", current, decided))
		}
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		switch filter.SearchBy {
		case "studentName":
			args = append(args, pattern)
			conditions = append(conditions, fmt.Sprintf("LOWER(student_name) LIKE $%d", len(args)))
		case "department":
			args = append(args, pattern)
			conditions = append(conditions, fmt.Sprintf("LOWER(department) LIKE $%d", len(args)))
		case "program":
			args = append(args, pattern)
			conditions = append(conditions, fmt.Sprintf("LOWER(program) LIKE $%d", len(args)))
		case "reason":
			args = append(args, pattern)
			conditions = append(conditions, fmt.Sprintf("LOWER(reason) LIKE $%d", len(args)))
		case "id":
			args = append(args, pattern)
			conditions = append(conditions, fmt.Sprintf("LOWER(id::text) LIKE $%d", len(args)))
		default:
			args = append(args, pattern)
			conditions = append(conditions, fmt.Sprintf("(LOWER(student_name) LIKE $%d OR LOWER(department) LIKE $%d OR LOWER(reason) LIKE $%d)", len(args), len(args), len(args)))
		}
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	var requests []models.ClearanceRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// UpdateTransition persists a state machine transition. The WHERE clause pins
// the row to the status and step the transition was computed from, so a
// concurrent writer makes this a no-op and the caller sees sql.ErrNoRows.
func (r *RequestRepository) UpdateTransition(ctx context.Context, req *models.ClearanceRequest, fromStatus models.RequestStatus, fromStep int) error {
	const query = `UPDATE clearance_requests
	SET status = :status, current_step = :current_step, approval_sequence = :approval_sequence,
	    approvals = :approvals, notifications = :notifications, updated_at = :updated_at
	WHERE id = :id AND status = :from_status AND current_step = :from_step`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                req.ID,
		"status":            req.Status,
		"current_step":      req.CurrentStep,
		"approval_sequence": req.ApprovalSequence,
		"approvals":         req.Approvals,
		"notifications":     req.Notifications,
		"updated_at":        req.UpdatedAt,
		"from_status":       fromStatus,
		"from_step":         fromStep,
	})
	if err != nil {
		return fmt.Errorf("update request transition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListPendingByKey returns in-flight pending requests matching a workflow
// definition key, used when propagating an updated sequence.
func (r *RequestRepository) ListPendingByKey(ctx context.Context, key models.WorkflowKey) ([]models.ClearanceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM clearance_requests
	WHERE status = 'pending' AND type = $1 AND program_type = $2 AND program_mode = $3
	ORDER BY created_at`, requestColumns)
	var requests []models.ClearanceRequest
	if err := r.db.SelectContext(ctx, &requests, query, key.Type, key.ProgramType, key.ProgramMode); err != nil {
		return nil, fmt.Errorf("list pending requests by key: %w", err)
	}
	return requests, nil
}

// Stats aggregates dashboard counters in a single round trip per dimension.
func (r *RequestRepository) Stats(ctx context.Context) (*models.RequestStats, error) {
	stats := &models.RequestStats{RequestsByType: make(map[string]int)}

	type statusCount struct {
		Status models.RequestStatus `db:"status"`
		Count  int                  `db:"count"`
	}
	var byStatus []statusCount
	if err := r.db.SelectContext(ctx, &byStatus, `SELECT status, COUNT(*) AS count FROM clearance_requests GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count requests by status: %w", err)
	}
	for _, row := range byStatus {
		stats.TotalRequests += row.Count
		switch row.Status {
		case models.StatusPending:
			stats.PendingRequests = row.Count
		case models.StatusCertificateReady:
			stats.ApprovedRequests = row.Count
		case models.StatusRejected:
			stats.RejectedRequests = row.Count
		}
	}

	type typeCount struct {
		Type  string `db:"type"`
		Count int    `db:"count"`
	}
	var byType []typeCount
	if err := r.db.SelectContext(ctx, &byType, `SELECT type, COUNT(*) AS count FROM clearance_requests GROUP BY type`); err != nil {
		return nil, fmt.Errorf("count requests by type: %w", err)
	}
	for _, row := range byType {
		stats.RequestsByType[row.Type] = row.Count
	}

	return stats, nil
}

// AppendDocuments adds stored file names to a request owned by the requester.
func (r *RequestRepository) AppendDocuments(ctx context.Context, id, requesterID string, documents []string, updatedAt time.Time) error {
	const query = `UPDATE clearance_requests
	SET documents = documents || $3, updated_at = $4
	WHERE id = $1 AND requester_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, requesterID, pq.StringArray(documents), updatedAt)
	if err != nil {
		return fmt.Errorf("append request documents: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document append rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
