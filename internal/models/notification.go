package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationKind is the closed set of timeline entry types appended to a
// request as it moves through the pipeline.
type NotificationKind string

const (
	NotificationSubmitted        NotificationKind = "SUBMITTED"
	NotificationApproved         NotificationKind = "APPROVED"
	NotificationRejected         NotificationKind = "REJECTED"
	NotificationCertificateReady NotificationKind = "CERTIFICATE_READY"
	NotificationReassigned       NotificationKind = "REASSIGNED"
	NotificationWorkflowUpdated  NotificationKind = "WORKFLOW_UPDATED"
	NotificationCancelled        NotificationKind = "CANCELLED"
)

// Notification is one human-readable timeline entry. Instances are built only
// through the constructors below so every kind carries a well-formed message.
type Notification struct {
	Kind      NotificationKind `json:"type"`
	Message   string           `json:"message"`
	Priority  string           `json:"priority,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// NotificationList stores the append-only timeline as a JSONB column.
type NotificationList []Notification

// Value implements driver.Valuer.
func (l NotificationList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *NotificationList) Scan(src interface{}) error {
	return scanJSON(src, l, "notifications")
}

// Last returns the most recent entry.
func (l NotificationList) Last() (Notification, bool) {
	if len(l) == 0 {
		return Notification{}, false
	}
	return l[len(l)-1], true
}

// NewSubmittedNotification marks a freshly submitted request.
func NewSubmittedNotification(ts time.Time) Notification {
	return Notification{
		Kind:      NotificationSubmitted,
		Message:   "Request submitted successfully",
		Timestamp: ts,
	}
}

// NewApprovedNotification records an intermediate approval and names the
// approver now holding the request.
func NewApprovedNotification(approvedBy, nextApprover string, ts time.Time) Notification {
	return Notification{
		Kind:      NotificationApproved,
		Message:   fmt.Sprintf("Approved by %s. Forwarded to %s.", approvedBy, nextApprover),
		Timestamp: ts,
	}
}

// NewRejectedNotification carries the rejection comment verbatim.
func NewRejectedNotification(rejectedBy, comment string, ts time.Time) Notification {
	return Notification{
		Kind:      NotificationRejected,
		Message:   fmt.Sprintf("Request rejected by %s. Reason: %s", rejectedBy, comment),
		Priority:  "high",
		Timestamp: ts,
	}
}

// NewCertificateReadyNotification marks terminal success.
func NewCertificateReadyNotification(ts time.Time) Notification {
	return Notification{
		Kind:      NotificationCertificateReady,
		Message:   "Your clearance request has been fully approved. Certificate is ready for download.",
		Timestamp: ts,
	}
}

// NewReassignedNotification records an admin step reassignment.
func NewReassignedNotification(newApprover string, ts time.Time) Notification {
	return Notification{
		Kind:      NotificationReassigned,
		Message:   fmt.Sprintf("Request reassigned to %s", newApprover),
		Timestamp: ts,
	}
}

// NewWorkflowUpdatedNotification records sequence propagation onto an
// in-flight request, naming the approver now at the current step.
func NewWorkflowUpdatedNotification(currentApprover string, ts time.Time) Notification {
	return Notification{
		Kind:      NotificationWorkflowUpdated,
		Message:   fmt.Sprintf("Workflow updated by admin. Current approver: %s", currentApprover),
		Timestamp: ts,
	}
}

// NewCancelledNotification records requester-initiated cancellation.
func NewCancelledNotification(ts time.Time) Notification {
	return Notification{
		Kind:      NotificationCancelled,
		Message:   "Request cancelled by student",
		Timestamp: ts,
	}
}
