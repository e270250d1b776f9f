package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/models"
	"github.com/campus-hub/clearance-api/internal/workflow"
	"github.com/campus-hub/clearance-api/pkg/certificate"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, req *models.ClearanceRequest) error
	GetByID(ctx context.Context, id string) (*models.ClearanceRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.ClearanceRequest, error)
	UpdateTransition(ctx context.Context, req *models.ClearanceRequest, fromStatus models.RequestStatus, fromStep int) error
	AppendDocuments(ctx context.Context, id, requesterID string, documents []string, updatedAt time.Time) error
}

type requestUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type sequenceResolver interface {
	ResolveSequence(ctx context.Context, key models.WorkflowKey) ([]string, error)
}

type certificateRenderer interface {
	Render(data certificate.Data) ([]byte, error)
}

type statsInvalidator interface {
	Invalidate(ctx context.Context)
}

// RequestConfig carries certificate branding for fully approved requests.
type RequestConfig struct {
	Institution    string
	IssuingOffice  string
	ValidityMonths int
}

// RequestService orchestrates the clearance request lifecycle: submission,
// approver decisions, cancellation, reassignment and certificate issuance.
// State transitions themselves live in the workflow package; this service
// loads the actors, enforces visibility and persists the outcome.
type RequestService struct {
	requests  requestStore
	users     requestUserStore
	catalog   sequenceResolver
	renderer  certificateRenderer
	audit     auditWriter
	stats     statsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	config    RequestConfig
}

// NewRequestService constructs the service. The stats invalidator is
// optional; when present the dashboard cache is dropped after every
// successful lifecycle transition.
func NewRequestService(requests requestStore, users requestUserStore, catalog sequenceResolver, renderer certificateRenderer, audit auditWriter, stats statsInvalidator, validate *validator.Validate, logger *zap.Logger, config RequestConfig) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.ValidityMonths <= 0 {
		config.ValidityMonths = 6
	}
	return &RequestService{
		requests:  requests,
		users:     users,
		catalog:   catalog,
		renderer:  renderer,
		audit:     audit,
		stats:     stats,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Submit opens a new request for the authenticated student. The approval
// sequence is resolved once here and never re-resolved afterwards.
func (s *RequestService) Submit(ctx context.Context, userID string, req dto.CreateRequestRequest, documents []string) (*dto.RequestView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request type")
	}
	if !req.ProgramType.Valid() || !req.ProgramMode.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown program type or mode")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := models.WorkflowKey{Type: req.Type, ProgramType: req.ProgramType, ProgramMode: req.ProgramMode}
	sequence, err := s.catalog.ResolveSequence(ctx, key)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request, err := workflow.Submit(workflow.SubmitInput{
		RequesterID: user.ID,
		StudentName: user.Name,
		Department:  user.Department,
		Program:     user.Program,
		Type:        req.Type,
		Reason:      req.Reason,
		ProgramType: req.ProgramType,
		ProgramMode: req.ProgramMode,
		Documents:   documents,
		Sequence:    sequence,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist request")
	}

	s.logger.Info("clearance request submitted",
		zap.String("request_id", request.ID),
		zap.String("type", string(request.Type)),
		zap.Int("sequence_length", len(request.ApprovalSequence)))
	s.emitRequestAudit(ctx, userID, models.AuditActionRequestSubmit, request.ID, nil)
	s.invalidateStats(ctx)

	view := dto.NewRequestView(request, "")
	return &view, nil
}

// Get returns one request if the actor may see it.
func (s *RequestService) Get(ctx context.Context, userID, requestID string) (*dto.RequestView, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	label := workflow.ResolveLabel(actorFromUser(user))
	if !s.canView(user, label, request) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request is not visible to this account")
	}

	view := dto.NewRequestView(request, label)
	return &view, nil
}

// List returns the requests visible to the actor, scoped by role: students
// see their own, approvers see their desk plus their history, admins see all.
func (s *RequestService) List(ctx context.Context, userID string, query dto.RequestQuery) ([]dto.RequestView, error) {
	return s.list(ctx, userID, query, false)
}

// ListPending narrows the approver view to requests currently sitting on
// their desk, dropping the decision history.
func (s *RequestService) ListPending(ctx context.Context, userID string, query dto.RequestQuery) ([]dto.RequestView, error) {
	return s.list(ctx, userID, query, true)
}

func (s *RequestService) list(ctx context.Context, userID string, query dto.RequestQuery, pendingOnly bool) ([]dto.RequestView, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	filter := models.RequestFilter{
		PendingOnly: pendingOnly,
		Status:      query.Status,
		Type:        query.Type,
		Search:      query.Search,
		SearchBy:    query.SearchBy,
	}
	if from, ok := parseQueryDate(query.DateFrom); ok {
		filter.DateFrom = &from
	}
	if to, ok := parseQueryDate(query.DateTo); ok {
		filter.DateTo = &to
	}

	label := workflow.ResolveLabel(actorFromUser(user))
	switch user.Role {
	case models.RoleAdmin:
		// unrestricted
	case models.RoleApprover, models.RoleTeacher:
		if label == "" {
			return []dto.RequestView{}, nil
		}
		filter.ApproverLabel = label
	default:
		filter.RequesterID = user.ID
	}

	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return dto.NewRequestViews(requests, label), nil
}

// Decide applies an approver decision to the request's current step. The
// persisted update is pinned to the status and step the decision was computed
// from, so losing a race surfaces as a conflict instead of a double write.
func (s *RequestService) Decide(ctx context.Context, userID, requestID string, decision dto.DecisionRequest) (*dto.RequestView, error) {
	if err := s.validator.Struct(decision); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	actor := actorFromUser(user)
	if !workflow.IsAuthorized(actor, request) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not the current approver for this request")
	}

	// An admin decides on behalf of whichever label holds the current step.
	label := workflow.ResolveLabel(actor)
	if user.Role == models.RoleAdmin {
		if label, err = workflow.CurrentApproverLabel(request); err != nil {
			return nil, err
		}
	}

	fromStatus, fromStep := request.Status, request.CurrentStep
	now := time.Now().UTC()

	var action string
	switch decision.Action {
	case models.ActionApproved:
		err = workflow.Advance(request, label, decision.Comment, now)
		action = models.AuditActionRequestApprove
	case models.ActionRejected:
		err = workflow.Reject(request, label, decision.Comment, now)
		action = models.AuditActionRequestReject
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown decision action")
	}
	if err != nil {
		return nil, err
	}

	if err := s.persistTransition(ctx, request, fromStatus, fromStep); err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]string{"approver": label, "comment": decision.Comment})
	s.emitRequestAudit(ctx, userID, action, request.ID, details)

	view := dto.NewRequestView(request, label)
	return &view, nil
}

// Cancel withdraws the requester's own request.
func (s *RequestService) Cancel(ctx context.Context, userID, requestID string) (*dto.RequestView, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another account")
	}

	fromStatus, fromStep := request.Status, request.CurrentStep
	if err := workflow.Cancel(request, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.persistTransition(ctx, request, fromStatus, fromStep); err != nil {
		return nil, err
	}

	s.emitRequestAudit(ctx, userID, models.AuditActionRequestCancel, request.ID, nil)

	view := dto.NewRequestView(request, "")
	return &view, nil
}

// Reassign overwrites the current step's approver. The RBAC layer restricts
// this to admins.
func (s *RequestService) Reassign(ctx context.Context, userID, requestID string, req dto.ReassignRequest) (*dto.RequestView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassignment payload")
	}

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	fromStatus, fromStep := request.Status, request.CurrentStep
	if err := workflow.Reassign(request, req.NewApprover, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.persistTransition(ctx, request, fromStatus, fromStep); err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]string{"newApprover": req.NewApprover})
	s.emitRequestAudit(ctx, userID, models.AuditActionRequestReassign, request.ID, details)

	view := dto.NewRequestView(request, "")
	return &view, nil
}

// AttachDocuments records uploaded file names on the requester's own request.
func (s *RequestService) AttachDocuments(ctx context.Context, userID, requestID string, documents []string) error {
	if len(documents) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "no documents supplied")
	}
	if err := s.requests.AppendDocuments(ctx, requestID, userID, documents, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach documents")
	}
	return nil
}

// Certificate renders the completion certificate for a fully approved
// request. Only the requester and admins may download it.
func (s *RequestService) Certificate(ctx context.Context, userID, requestID string) ([]byte, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleAdmin && request.RequesterID != user.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "certificate belongs to another account")
	}
	if request.Status != models.StatusCertificateReady {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is not fully approved")
	}

	issuedAt := time.Now().UTC()
	signatures := make([]certificate.Signature, 0, len(request.Approvals))
	for _, record := range request.Approvals {
		signatures = append(signatures, certificate.Signature{
			Approver: record.Approver,
			Date:     record.Timestamp,
		})
	}

	requester, err := s.users.FindByID(ctx, request.RequesterID)
	studentID := ""
	if err == nil {
		studentID = requester.StudentID
	}

	pdf, err := s.renderer.Render(certificate.Data{
		Institution:   s.config.Institution,
		IssuingOffice: s.config.IssuingOffice,
		StudentName:   request.StudentName,
		Department:    request.Department,
		Program:       request.Program,
		StudentID:     studentID,
		RequestID:     request.ID,
		RequestType:   string(request.Type),
		Reason:        request.Reason,
		IssuedAt:      issuedAt,
		ValidUntil:    issuedAt.AddDate(0, s.config.ValidityMonths, 0),
		Signatures:    signatures,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return pdf, nil
}

func (s *RequestService) persistTransition(ctx context.Context, request *models.ClearanceRequest, fromStatus models.RequestStatus, fromStep int) error {
	if err := s.requests.UpdateTransition(ctx, request, fromStatus, fromStep); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "request was modified by another decision")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist request")
	}
	s.invalidateStats(ctx)
	return nil
}

// invalidateStats drops the dashboard cache so status counts reflect the
// transition before the TTL expires.
func (s *RequestService) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	s.stats.Invalidate(ctx)
}

func (s *RequestService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *RequestService) loadRequest(ctx context.Context, requestID string) (*models.ClearanceRequest, error) {
	if uuid.Validate(requestID) != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid request id")
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

// canView mirrors the listing scope for a single fetch: requester, admin, or
// an approver whose label either holds the current step or appears in the
// decision history.
func (s *RequestService) canView(user *models.User, label string, request *models.ClearanceRequest) bool {
	if user.Role == models.RoleAdmin || request.RequesterID == user.ID {
		return true
	}
	if label == "" {
		return false
	}
	if current, ok := request.CurrentApprover(); ok && request.Status == models.StatusPending && current == label {
		return true
	}
	_, decided := request.Approvals.ByApprover(label)
	return decided
}

func (s *RequestService) emitRequestAudit(ctx context.Context, userID, action, requestID string, details []byte) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "request",
		ResourceID: &requestID,
		Details:    details,
	}); err != nil {
		s.logger.Warn("failed to record request audit log", zap.String("action", action), zap.Error(err))
	}
}

func actorFromUser(user *models.User) workflow.Actor {
	return workflow.Actor{ID: user.ID, Role: user.Role, ApproverType: user.ApproverType}
}

func parseQueryDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
