package models

import "time"

// RegistrationStatus tracks the signup review queue.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// Registration is a pending signup awaiting admin or registrar review.
// New accounts are never created directly; the review decides.
type Registration struct {
	ID           string             `db:"id" json:"id"`
	Username     string             `db:"username" json:"username"`
	PasswordHash string             `db:"password_hash" json:"-"`
	Name         string             `db:"name" json:"name"`
	Email        string             `db:"email" json:"email"`
	Role         UserRole           `db:"role" json:"role"`
	Department   string             `db:"department" json:"department,omitempty"`
	Program      string             `db:"program" json:"program,omitempty"`
	StudentID    string             `db:"student_id" json:"studentId,omitempty"`
	ApproverType string             `db:"approver_type" json:"approverType,omitempty"`
	Status       RegistrationStatus `db:"status" json:"status"`
	CreatedAt    time.Time          `db:"created_at" json:"submittedAt"`
}

// RegistrationFilter constrains registration queue listing.
type RegistrationFilter struct {
	Status   RegistrationStatus
	Search   string
	SearchBy string
}
