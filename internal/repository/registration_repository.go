package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-hub/clearance-api/internal/models"
)

const registrationColumns = `id, username, password_hash, name, email, role, department, program, student_id, approver_type, status, created_at`

// RegistrationRepository persists the signup review queue.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a pending registration.
func (r *RegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	if registration.Status == "" {
		registration.Status = models.RegistrationPending
	}
	if registration.CreatedAt.IsZero() {
		registration.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO registrations (id, username, password_hash, name, email, role, department, program, student_id, approver_type, status, created_at)
	VALUES (:id, :username, :password_hash, :name, :email, :role, :department, :program, :student_id, :approver_type, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, registration); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// GetByID fetches a registration by identifier.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE id = $1 LIMIT 1`, registrationColumns)
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &registration, nil
}

// FindByUsername returns a pending registration claiming the username.
func (r *RegistrationRepository) FindByUsername(ctx context.Context, username string) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE username = $1 AND status = 'pending' LIMIT 1`, registrationColumns)
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find registration by username: %w", err)
	}
	return &registration, nil
}

// List returns registrations matching the filter, newest first.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM registrations`, registrationColumns))

	conditions := make([]string, 0, 2)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		if filter.SearchBy == "username" {
			args = append(args, pattern)
			conditions = append(conditions, fmt.Sprintf("LOWER(username) LIKE $%d", len(args)))
		} else {
			args = append(args, pattern)
			conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(username) LIKE $%d)", len(args), len(args)))
		}
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	var registrations []models.Registration
	if err := r.db.SelectContext(ctx, &registrations, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return registrations, nil
}

// UpdateStatus records the review outcome. The WHERE clause pins the row to
// pending so a double review surfaces as sql.ErrNoRows.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	const query = `UPDATE registrations SET status = $2 WHERE id = $1 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check registration status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
