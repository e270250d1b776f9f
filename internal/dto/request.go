package dto

import (
	"time"

	"github.com/campus-hub/clearance-api/internal/models"
)

// CreateRequestRequest payload for submitting a new clearance request.
// Documents are attached through the multipart form, not this body.
type CreateRequestRequest struct {
	Type        models.RequestType `json:"type" form:"type" validate:"required"`
	Reason      string             `json:"reason" form:"reason" validate:"required"`
	ProgramType models.ProgramType `json:"programType" form:"programType" validate:"required"`
	ProgramMode models.ProgramMode `json:"programMode" form:"programMode" validate:"required"`
}

// DecisionRequest captures an approver decision on the current step.
type DecisionRequest struct {
	Action  models.ApprovalAction `json:"action" validate:"required,oneof=approved rejected"`
	Comment string                `json:"comment"`
}

// ReassignRequest payload for overwriting the current step's approver.
type ReassignRequest struct {
	NewApprover string `json:"newApprover" validate:"required"`
}

// RequestQuery mirrors supported listing filters.
type RequestQuery struct {
	Status   models.RequestStatus `form:"status"`
	Type     models.RequestType   `form:"type"`
	Search   string               `form:"search"`
	SearchBy string               `form:"searchBy"`
	DateFrom string               `form:"dateFrom"`
	DateTo   string               `form:"dateTo"`
}

// RequestView decorates a request with fields computed for the viewing
// approver: their own recorded decision and whether the request currently
// sits on their desk.
type RequestView struct {
	*models.ClearanceRequest

	CurrentApproverLabel string     `json:"currentApprover,omitempty"`
	ApproverStatus       string     `json:"approverStatus,omitempty"`
	ApproverComment      string     `json:"approverComment,omitempty"`
	ApproverDate         *time.Time `json:"approverDate,omitempty"`
	IsCurrentApprover    bool       `json:"isCurrentApprover"`
}

// NewRequestView builds the view for one request. An empty viewer label
// (student or admin perspective) yields no approver annotations.
func NewRequestView(req *models.ClearanceRequest, viewerLabel string) RequestView {
	view := RequestView{ClearanceRequest: req}
	if current, ok := req.CurrentApprover(); ok && req.Status == models.StatusPending {
		view.CurrentApproverLabel = current
		view.IsCurrentApprover = viewerLabel != "" && current == viewerLabel
	}
	if viewerLabel == "" {
		return view
	}
	if record, ok := req.Approvals.ByApprover(viewerLabel); ok {
		view.ApproverStatus = string(record.Action)
		view.ApproverComment = record.Comment
		ts := record.Timestamp
		view.ApproverDate = &ts
	} else if view.IsCurrentApprover {
		view.ApproverStatus = "pending"
	}
	return view
}

// NewRequestViews maps a result set through NewRequestView.
func NewRequestViews(requests []models.ClearanceRequest, viewerLabel string) []RequestView {
	views := make([]RequestView, len(requests))
	for i := range requests {
		views[i] = NewRequestView(&requests[i], viewerLabel)
	}
	return views
}
