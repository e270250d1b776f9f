package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// RequestType enumerates the supported clearance request categories.
type RequestType string

const (
	RequestTypeTermination   RequestType = "termination"
	RequestTypeIDReplacement RequestType = "idReplacement"
)

// Valid reports whether the type is a known request category.
func (t RequestType) Valid() bool {
	return t == RequestTypeTermination || t == RequestTypeIDReplacement
}

// RequestStatus captures the request lifecycle. Only pending, rejected,
// certificate_ready and cancelled are reachable through the implemented
// transitions; the remaining members are accepted for storage and filtering.
type RequestStatus string

const (
	StatusDraft            RequestStatus = "draft"
	StatusSubmitted        RequestStatus = "submitted"
	StatusPending          RequestStatus = "pending"
	StatusApproved         RequestStatus = "approved"
	StatusRejected         RequestStatus = "rejected"
	StatusCompleted        RequestStatus = "completed"
	StatusCertificateReady RequestStatus = "certificate_ready"
	StatusCancelled        RequestStatus = "cancelled"
)

// Valid reports whether the status is a known enum member.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusPending, StatusApproved,
		StatusRejected, StatusCompleted, StatusCertificateReady, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further workflow transition is permitted.
func (s RequestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCertificateReady || s == StatusCancelled
}

// ApprovalAction is the decision recorded by an approver.
type ApprovalAction string

const (
	ActionApproved ApprovalAction = "approved"
	ActionRejected ApprovalAction = "rejected"
)

// ApprovalRecord is one immutable decision entry owned by its request.
type ApprovalRecord struct {
	Approver  string         `json:"approver"`
	Action    ApprovalAction `json:"action"`
	Comment   string         `json:"comment"`
	Timestamp time.Time      `json:"timestamp"`
}

// ApprovalList stores the append-only approval history as a JSONB column.
type ApprovalList []ApprovalRecord

// Value implements driver.Valuer.
func (l ApprovalList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ApprovalList) Scan(src interface{}) error {
	return scanJSON(src, l, "approvals")
}

// ByApprover returns the first decision recorded by the given label.
func (l ApprovalList) ByApprover(label string) (ApprovalRecord, bool) {
	for _, record := range l {
		if record.Approver == label {
			return record, true
		}
	}
	return ApprovalRecord{}, false
}

// ClearanceRequest is the central aggregate moving through the approval
// pipeline. The sequence is frozen at submission; currentStep indexes into it.
type ClearanceRequest struct {
	ID          string      `db:"id" json:"id"`
	RequesterID string      `db:"requester_id" json:"studentId"`
	StudentName string      `db:"student_name" json:"studentName"`
	Department  string      `db:"department" json:"department"`
	Program     string      `db:"program" json:"program"`
	Type        RequestType `db:"type" json:"type"`
	Reason      string      `db:"reason" json:"reason"`
	ProgramType ProgramType `db:"program_type" json:"programType"`
	ProgramMode ProgramMode `db:"program_mode" json:"programMode"`

	Documents pq.StringArray `db:"documents" json:"documents"`

	Status           RequestStatus    `db:"status" json:"status"`
	CurrentStep      int              `db:"current_step" json:"currentStep"`
	ApprovalSequence pq.StringArray   `db:"approval_sequence" json:"approvalSequence"`
	Approvals        ApprovalList     `db:"approvals" json:"approvals"`
	Notifications    NotificationList `db:"notifications" json:"notifications"`

	CreatedAt time.Time `db:"created_at" json:"submittedAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CurrentApprover returns the label owning the current step.
func (r *ClearanceRequest) CurrentApprover() (string, bool) {
	if r.CurrentStep < 0 || r.CurrentStep >= len(r.ApprovalSequence) {
		return "", false
	}
	return r.ApprovalSequence[r.CurrentStep], true
}

// RequestFilter carries visibility scoping plus optional narrowing criteria.
type RequestFilter struct {
	RequesterID   string
	ApproverLabel string
	PendingOnly   bool

	Search   string
	SearchBy string
	Status   RequestStatus
	Type     RequestType
	DateFrom *time.Time
	DateTo   *time.Time
}

// RequestStats aggregates counts for the admin dashboard.
type RequestStats struct {
	TotalRequests    int            `json:"totalRequests"`
	PendingRequests  int            `json:"pendingRequests"`
	ApprovedRequests int            `json:"approvedRequests"`
	RejectedRequests int            `json:"rejectedRequests"`
	TotalUsers       int            `json:"totalUsers"`
	RequestsByType   map[string]int `json:"requestsByType"`
}

func scanJSON(src interface{}, dest interface{}, what string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported scan source %T for %s", src, what)
	}
}
