package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin                = "LOGIN"
	AuditActionLogout               = "LOGOUT"
	AuditActionPasswordChange       = "PASSWORD_CHANGE"
	AuditActionPasswordReset        = "PASSWORD_RESET"
	AuditActionProfileUpdate        = "PROFILE_UPDATE"
	AuditActionUserCreate           = "USER_CREATE"
	AuditActionUserStatusChange     = "USER_STATUS_CHANGE"
	AuditActionUserDelete           = "USER_DELETE"
	AuditActionRequestSubmit        = "REQUEST_SUBMIT"
	AuditActionRequestApprove       = "REQUEST_APPROVED"
	AuditActionRequestReject        = "REQUEST_REJECTED"
	AuditActionRequestCancel        = "REQUEST_CANCEL"
	AuditActionRequestReassign      = "REQUEST_REASSIGN"
	AuditActionDocumentUpload       = "DOCUMENT_UPLOAD"
	AuditActionCertificateDownload  = "CERTIFICATE_DOWNLOAD"
	AuditActionWorkflowUpdate       = "WORKFLOW_UPDATE"
	AuditActionRegistrationApproved = "REGISTRATION_APPROVED"
	AuditActionRegistrationRejected = "REGISTRATION_REJECTED"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter constrains audit log listing.
type AuditFilter struct {
	Action   string
	User     string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
}
