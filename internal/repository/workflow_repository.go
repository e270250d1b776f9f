package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-hub/clearance-api/internal/models"
)

const workflowColumns = `id, type, program_type, program_mode, sequence, created_at, updated_at`

// WorkflowRepository persists admin-managed approval sequence overrides.
type WorkflowRepository struct {
	db *sqlx.DB
}

// NewWorkflowRepository constructs the repository.
func NewWorkflowRepository(db *sqlx.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// Find returns the stored definition for a key, or sql.ErrNoRows.
func (r *WorkflowRepository) Find(ctx context.Context, key models.WorkflowKey) (*models.WorkflowDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_definitions WHERE type = $1 AND program_type = $2 AND program_mode = $3 LIMIT 1`, workflowColumns)
	var definition models.WorkflowDefinition
	if err := r.db.GetContext(ctx, &definition, query, key.Type, key.ProgramType, key.ProgramMode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find workflow definition: %w", err)
	}
	return &definition, nil
}

// Upsert stores or replaces the definition for its key.
func (r *WorkflowRepository) Upsert(ctx context.Context, definition *models.WorkflowDefinition) error {
	if definition.ID == "" {
		definition.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = now
	}
	definition.UpdatedAt = now

	const query = `INSERT INTO workflow_definitions (id, type, program_type, program_mode, sequence, created_at, updated_at)
	VALUES (:id, :type, :program_type, :program_mode, :sequence, :created_at, :updated_at)
	ON CONFLICT (type, program_type, program_mode)
	DO UPDATE SET sequence = EXCLUDED.sequence, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, definition); err != nil {
		return fmt.Errorf("upsert workflow definition: %w", err)
	}
	return nil
}

// List returns all stored definitions.
func (r *WorkflowRepository) List(ctx context.Context) ([]models.WorkflowDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_definitions ORDER BY type, program_type, program_mode`, workflowColumns)
	var definitions []models.WorkflowDefinition
	if err := r.db.SelectContext(ctx, &definitions, query); err != nil {
		return nil, fmt.Errorf("list workflow definitions: %w", err)
	}
	return definitions, nil
}
