package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

func newTestRequest(t *testing.T, requestType models.RequestType) *models.ClearanceRequest {
	t.Helper()
	sequence, ok := DefaultRules().TypeDefault(requestType)
	require.True(t, ok)

	req, err := Submit(SubmitInput{
		RequesterID: "student-1",
		StudentName: "Abebe Kebede",
		Department:  "Computer Science",
		Program:     "BSc Computer Science",
		Type:        requestType,
		Reason:      "Graduating this semester",
		ProgramType: models.ProgramUndergraduate,
		ProgramMode: models.ModeRegular,
		Sequence:    sequence,
	}, time.Now())
	require.NoError(t, err)
	return req
}

func TestSubmit(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)

	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, 0, req.CurrentStep)
	assert.Len(t, req.ApprovalSequence, 8)
	assert.Empty(t, req.Approvals)
	require.Len(t, req.Notifications, 1)
	assert.Equal(t, models.NotificationSubmitted, req.Notifications[0].Kind)

	current, ok := req.CurrentApprover()
	require.True(t, ok)
	assert.Equal(t, "Academic Advisor", current)
}

func TestSubmitUnknownType(t *testing.T) {
	_, err := Submit(SubmitInput{Type: "transfer", Sequence: []string{"Registrar"}}, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdvanceThroughFullSequence(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)
	now := time.Now()

	for step, label := range req.ApprovalSequence {
		require.NoError(t, Advance(req, label, "ok", now))

		if step < len(req.ApprovalSequence)-1 {
			assert.Equal(t, models.StatusPending, req.Status)
			assert.Equal(t, step+1, req.CurrentStep)
		}
	}

	assert.Equal(t, models.StatusCertificateReady, req.Status)
	assert.Equal(t, len(req.ApprovalSequence)-1, req.CurrentStep)
	assert.Len(t, req.Approvals, 8)

	last, ok := req.Notifications.Last()
	require.True(t, ok)
	assert.Equal(t, models.NotificationCertificateReady, last.Kind)
}

func TestAdvanceForwardsToNextApprover(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)
	now := time.Now()

	require.NoError(t, Advance(req, "Academic Advisor", "", now))

	last, ok := req.Notifications.Last()
	require.True(t, ok)
	assert.Equal(t, models.NotificationApproved, last.Kind)
	assert.Equal(t, "Approved by Academic Advisor. Forwarded to Department Head.", last.Message)
}

func TestAdvanceWrongApprover(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)

	err := Advance(req, "Registrar", "", time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, req.CurrentStep)
	assert.Empty(t, req.Approvals)
}

func TestRejectMidSequence(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)
	now := time.Now()

	require.NoError(t, Advance(req, "Academic Advisor", "", now))
	require.NoError(t, Advance(req, "Department Head", "", now))

	err := Reject(req, "Library (A) Chief of Circulation", "outstanding book fines", now)
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, req.Status)
	assert.Equal(t, 2, req.CurrentStep)
	require.Len(t, req.Approvals, 3)
	assert.Equal(t, models.ActionRejected, req.Approvals[2].Action)
	assert.Equal(t, "outstanding book fines", req.Approvals[2].Comment)

	last, ok := req.Notifications.Last()
	require.True(t, ok)
	assert.Equal(t, models.NotificationRejected, last.Kind)
	assert.Equal(t, "Request rejected by Library (A) Chief of Circulation. Reason: outstanding book fines", last.Message)
	assert.Equal(t, "high", last.Priority)
}

func TestRejectRequiresComment(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)

	for _, comment := range []string{"", "   ", "\t\n"} {
		err := Reject(req, "Academic Advisor", comment, time.Now())
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Empty(t, req.Approvals)
}

func TestTerminalStatusesRejectDecisions(t *testing.T) {
	for _, status := range []models.RequestStatus{models.StatusRejected, models.StatusCertificateReady, models.StatusCancelled} {
		req := newTestRequest(t, models.RequestTypeIDReplacement)
		req.Status = status

		err := Advance(req, "Academic Advisor", "", time.Now())
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

		err = Reject(req, "Academic Advisor", "nope", time.Now())
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	}
}

func TestCancel(t *testing.T) {
	tests := []struct {
		status  models.RequestStatus
		allowed bool
	}{
		{models.StatusDraft, true},
		{models.StatusSubmitted, true},
		{models.StatusApproved, true},
		{models.StatusCompleted, true},
		{models.StatusPending, false},
		{models.StatusRejected, false},
		{models.StatusCertificateReady, false},
		{models.StatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			req := newTestRequest(t, models.RequestTypeIDReplacement)
			req.Status = tt.status

			err := Cancel(req, time.Now())
			if !tt.allowed {
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusCancelled, req.Status)

			last, ok := req.Notifications.Last()
			require.True(t, ok)
			assert.Equal(t, models.NotificationCancelled, last.Kind)
		})
	}
}

func TestReassignOverwritesCurrentStepOnly(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)
	now := time.Now()

	require.NoError(t, Advance(req, "Academic Advisor", "", now))
	require.NoError(t, Reassign(req, "Acting Department Head", now))

	assert.Equal(t, "Acting Department Head", req.ApprovalSequence[1])
	assert.Equal(t, "Academic Advisor", req.ApprovalSequence[0])
	assert.Equal(t, "Library (A) Chief of Circulation", req.ApprovalSequence[2])
	assert.Len(t, req.Approvals, 1)

	last, ok := req.Notifications.Last()
	require.True(t, ok)
	assert.Equal(t, models.NotificationReassigned, last.Kind)

	require.NoError(t, Advance(req, "Acting Department Head", "", now))
	assert.Equal(t, 2, req.CurrentStep)
}

func TestReassignNonPending(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)
	req.Status = models.StatusRejected

	err := Reassign(req, "Registrar", time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestApplySequence(t *testing.T) {
	now := time.Now()

	t.Run("updates pending request within range", func(t *testing.T) {
		req := newTestRequest(t, models.RequestTypeIDReplacement)
		require.NoError(t, Advance(req, "Academic Advisor", "", now))

		updated := ApplySequence(req, []string{"Academic Advisor", "Finance Office", "Registrar"}, now)
		require.True(t, updated)
		assert.Equal(t, []string{"Academic Advisor", "Finance Office", "Registrar"}, []string(req.ApprovalSequence))
		assert.Equal(t, 1, req.CurrentStep)

		last, ok := req.Notifications.Last()
		require.True(t, ok)
		assert.Equal(t, models.NotificationWorkflowUpdated, last.Kind)
		assert.Equal(t, "Workflow updated by admin. Current approver: Finance Office", last.Message)
	})

	t.Run("skips request past the new sequence length", func(t *testing.T) {
		req := newTestRequest(t, models.RequestTypeIDReplacement)
		for _, label := range []string{"Academic Advisor", "Library Services", "Campus Security"} {
			require.NoError(t, Advance(req, label, "", now))
		}
		require.Equal(t, 3, req.CurrentStep)

		before := copySequence(req.ApprovalSequence)
		updated := ApplySequence(req, []string{"Academic Advisor", "Registrar"}, now)
		assert.False(t, updated)
		assert.Equal(t, before, []string(req.ApprovalSequence))
	})

	t.Run("skips non-pending request", func(t *testing.T) {
		req := newTestRequest(t, models.RequestTypeIDReplacement)
		req.Status = models.StatusCertificateReady

		assert.False(t, ApplySequence(req, []string{"Registrar"}, now))
	})
}

func TestFromErrorPreservesTypedErrors(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)
	req.Status = models.StatusCancelled

	err := Advance(req, "Academic Advisor", "", time.Now())
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, 409, typed.Status)
}
