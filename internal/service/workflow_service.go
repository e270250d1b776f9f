package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/models"
	"github.com/campus-hub/clearance-api/internal/workflow"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

type workflowStore interface {
	Find(ctx context.Context, key models.WorkflowKey) (*models.WorkflowDefinition, error)
	Upsert(ctx context.Context, definition *models.WorkflowDefinition) error
	List(ctx context.Context) ([]models.WorkflowDefinition, error)
}

type propagationStore interface {
	ListPendingByKey(ctx context.Context, key models.WorkflowKey) ([]models.ClearanceRequest, error)
	UpdateTransition(ctx context.Context, req *models.ClearanceRequest, fromStatus models.RequestStatus, fromStep int) error
}

// WorkflowService exposes sequence resolution to clients and lets admins
// store overrides. Storing an override also propagates the new sequence onto
// matching in-flight requests.
type WorkflowService struct {
	store     workflowStore
	requests  propagationStore
	catalog   sequenceResolver
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWorkflowService constructs the service.
func NewWorkflowService(store workflowStore, requests propagationStore, catalog sequenceResolver, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &WorkflowService{
		store:     store,
		requests:  requests,
		catalog:   catalog,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Resolve returns the effective sequence for a type and program key.
func (s *WorkflowService) Resolve(ctx context.Context, query dto.ResolveWorkflowQuery) (*dto.WorkflowView, error) {
	if !query.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown request type")
	}
	programType, programMode, err := models.ParseProgramKey(query.ProgramKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program key")
	}

	key := models.WorkflowKey{Type: query.Type, ProgramType: programType, ProgramMode: programMode}
	sequence, err := s.catalog.ResolveSequence(ctx, key)
	if err != nil {
		return nil, err
	}

	return &dto.WorkflowView{
		Type:       query.Type,
		ProgramKey: key.ProgramKey(),
		Sequence:   sequence,
	}, nil
}

// List returns every stored override.
func (s *WorkflowService) List(ctx context.Context) ([]dto.WorkflowView, error) {
	definitions, err := s.store.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list workflow definitions")
	}
	views := make([]dto.WorkflowView, len(definitions))
	for i, definition := range definitions {
		views[i] = dto.WorkflowView{
			Type:       definition.Type,
			ProgramKey: definition.Key().ProgramKey(),
			Sequence:   definition.Sequence,
		}
	}
	return views, nil
}

// Update stores an override and propagates it onto matching pending requests.
// Propagation is best effort: a request that fails to update is logged and
// counted as skipped, never blocking the override itself.
func (s *WorkflowService) Update(ctx context.Context, userID string, req dto.UpdateWorkflowRequest) (*dto.UpdateWorkflowResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid workflow payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request type")
	}
	programType, programMode, err := models.ParseProgramKey(req.ProgramKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program key")
	}

	key := models.WorkflowKey{Type: req.Type, ProgramType: programType, ProgramMode: programMode}
	definition := &models.WorkflowDefinition{
		Type:        key.Type,
		ProgramType: key.ProgramType,
		ProgramMode: key.ProgramMode,
		Sequence:    pq.StringArray(req.Sequence),
	}
	if err := s.store.Upsert(ctx, definition); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store workflow definition")
	}

	updated, skipped := s.propagate(ctx, key, req.Sequence)

	details, _ := json.Marshal(map[string]interface{}{
		"programKey":      req.ProgramKey,
		"sequence":        req.Sequence,
		"updatedRequests": updated,
		"skippedRequests": skipped,
	})
	if s.audit != nil {
		if err := s.audit.Create(ctx, &models.AuditLog{
			UserID:     &userID,
			Action:     models.AuditActionWorkflowUpdate,
			Resource:   "workflow",
			ResourceID: &definition.ID,
			Details:    details,
		}); err != nil {
			s.logger.Warn("failed to record workflow audit log", zap.Error(err))
		}
	}

	return &dto.UpdateWorkflowResult{
		Workflow: dto.WorkflowView{
			Type:       req.Type,
			ProgramKey: key.ProgramKey(),
			Sequence:   req.Sequence,
		},
		UpdatedRequests: updated,
		SkippedRequests: skipped,
	}, nil
}

func (s *WorkflowService) propagate(ctx context.Context, key models.WorkflowKey, sequence []string) (updated, skipped int) {
	pending, err := s.requests.ListPendingByKey(ctx, key)
	if err != nil {
		s.logger.Warn("failed to list pending requests for propagation", zap.Error(err))
		return 0, 0
	}

	now := time.Now().UTC()
	for i := range pending {
		request := &pending[i]
		fromStatus, fromStep := request.Status, request.CurrentStep
		if !workflow.ApplySequence(request, sequence, now) {
			skipped++
			continue
		}
		if err := s.requests.UpdateTransition(ctx, request, fromStatus, fromStep); err != nil {
			s.logger.Warn("failed to propagate workflow update",
				zap.String("request_id", request.ID), zap.Error(err))
			skipped++
			continue
		}
		updated++
	}
	return updated, skipped
}
