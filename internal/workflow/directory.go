package workflow

import (
	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

// teacherFallbackLabel is the step label a teacher account acts under when no
// explicit approver type is stored for it.
const teacherFallbackLabel = "Academic Advisor"

// Actor is the acting identity checked against a request's current step.
type Actor struct {
	ID           string
	Role         models.UserRole
	ApproverType string
}

// ResolveLabel maps an actor to the sequence-step label it may act on.
// Empty means the actor holds no approver label at all.
func ResolveLabel(actor Actor) string {
	if actor.ApproverType != "" {
		return actor.ApproverType
	}
	if actor.Role == models.RoleTeacher {
		return teacherFallbackLabel
	}
	return ""
}

// CurrentApproverLabel returns the label owning the request's current step.
// The step pointer is maintained by the state machine, so an out of range
// index indicates a corrupted record.
func CurrentApproverLabel(req *models.ClearanceRequest) (string, error) {
	label, ok := req.CurrentApprover()
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInternal, "current step outside approval sequence")
	}
	return label, nil
}

// IsAuthorized reports whether the actor may decide the request's current
// step. Admins bypass the label check entirely; approvers and teachers must
// match the label at the current step; every other role is never authorized.
func IsAuthorized(actor Actor, req *models.ClearanceRequest) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if actor.Role != models.RoleApprover && actor.Role != models.RoleTeacher {
		return false
	}
	label := ResolveLabel(actor)
	if label == "" {
		return false
	}
	current, ok := req.CurrentApprover()
	return ok && current == label
}
