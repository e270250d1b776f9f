package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

// SubmitInput carries everything needed to open a new request. The approval
// sequence is resolved by the caller and frozen into the request here.
type SubmitInput struct {
	RequesterID string
	StudentName string
	Department  string
	Program     string
	Type        models.RequestType
	Reason      string
	ProgramType models.ProgramType
	ProgramMode models.ProgramMode
	Documents   []string
	Sequence    []string
}

// Submit builds a new pending request at step zero with its sequence frozen.
func Submit(in SubmitInput, now time.Time) (*models.ClearanceRequest, error) {
	if !in.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request type")
	}
	if len(in.Sequence) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInternal, "empty approval sequence")
	}
	req := &models.ClearanceRequest{
		ID:               uuid.NewString(),
		RequesterID:      in.RequesterID,
		StudentName:      in.StudentName,
		Department:       in.Department,
		Program:          in.Program,
		Type:             in.Type,
		Reason:           in.Reason,
		ProgramType:      in.ProgramType,
		ProgramMode:      in.ProgramMode,
		Documents:        append([]string(nil), in.Documents...),
		Status:           models.StatusPending,
		CurrentStep:      0,
		ApprovalSequence: copySequence(in.Sequence),
		Approvals:        models.ApprovalList{},
		Notifications:    models.NotificationList{models.NewSubmittedNotification(now)},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return req, nil
}

// Advance records an approval at the current step and moves the request
// forward. Approving the final step flips the request to certificate_ready
// while the step pointer stays on the last label.
func Advance(req *models.ClearanceRequest, approverLabel, comment string, now time.Time) error {
	if req.Status != models.StatusPending {
		return appErrors.Clone(appErrors.ErrInvalidState, "request is not pending")
	}
	current, err := CurrentApproverLabel(req)
	if err != nil {
		return err
	}
	if current != approverLabel {
		return appErrors.Clone(appErrors.ErrForbidden, "not the current approver for this request")
	}

	req.Approvals = append(req.Approvals, models.ApprovalRecord{
		Approver:  approverLabel,
		Action:    models.ActionApproved,
		Comment:   comment,
		Timestamp: now,
	})

	if req.CurrentStep == len(req.ApprovalSequence)-1 {
		req.Status = models.StatusCertificateReady
		req.Notifications = append(req.Notifications, models.NewCertificateReadyNotification(now))
	} else {
		req.CurrentStep++
		next := req.ApprovalSequence[req.CurrentStep]
		req.Notifications = append(req.Notifications, models.NewApprovedNotification(approverLabel, next, now))
	}
	req.UpdatedAt = now
	return nil
}

// Reject terminates the request at the current step. The comment is mandatory
// and is surfaced verbatim to the requester.
func Reject(req *models.ClearanceRequest, approverLabel, comment string, now time.Time) error {
	if req.Status != models.StatusPending {
		return appErrors.Clone(appErrors.ErrInvalidState, "request is not pending")
	}
	current, err := CurrentApproverLabel(req)
	if err != nil {
		return err
	}
	if current != approverLabel {
		return appErrors.Clone(appErrors.ErrForbidden, "not the current approver for this request")
	}
	if strings.TrimSpace(comment) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "rejection comment is required")
	}

	req.Approvals = append(req.Approvals, models.ApprovalRecord{
		Approver:  approverLabel,
		Action:    models.ActionRejected,
		Comment:   comment,
		Timestamp: now,
	})
	req.Status = models.StatusRejected
	req.Notifications = append(req.Notifications, models.NewRejectedNotification(approverLabel, comment, now))
	req.UpdatedAt = now
	return nil
}

// Cancel lets the requester withdraw a request. A pending request sits on an
// approver's desk and cannot be pulled back, and terminal requests stay put.
func Cancel(req *models.ClearanceRequest, now time.Time) error {
	if req.Status == models.StatusPending || req.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrInvalidState, "request cannot be cancelled in its current status")
	}
	req.Status = models.StatusCancelled
	req.Notifications = append(req.Notifications, models.NewCancelledNotification(now))
	req.UpdatedAt = now
	return nil
}

// Reassign overwrites the label at the current step of a pending request.
// History and future steps are untouched.
func Reassign(req *models.ClearanceRequest, newApprover string, now time.Time) error {
	if req.Status != models.StatusPending {
		return appErrors.Clone(appErrors.ErrInvalidState, "only pending requests can be reassigned")
	}
	if strings.TrimSpace(newApprover) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "new approver is required")
	}
	if _, err := CurrentApproverLabel(req); err != nil {
		return err
	}
	req.ApprovalSequence[req.CurrentStep] = newApprover
	req.Notifications = append(req.Notifications, models.NewReassignedNotification(newApprover, now))
	req.UpdatedAt = now
	return nil
}

// ApplySequence propagates an updated workflow definition onto an in-flight
// pending request. Requests whose step pointer would fall outside the new
// sequence are skipped rather than corrupted; the caller counts both outcomes.
func ApplySequence(req *models.ClearanceRequest, sequence []string, now time.Time) bool {
	if req.Status != models.StatusPending {
		return false
	}
	if req.CurrentStep >= len(sequence) {
		return false
	}
	req.ApprovalSequence = copySequence(sequence)
	req.Notifications = append(req.Notifications, models.NewWorkflowUpdatedNotification(sequence[req.CurrentStep], now))
	req.UpdatedAt = now
	return true
}
