package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent  UserRole = "student"
	RoleTeacher  UserRole = "teacher"
	RoleApprover UserRole = "approver"
	RoleAdmin    UserRole = "admin"
)

// UserStatus captures the account lifecycle.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	Role         UserRole   `db:"role" json:"role"`
	Department   string     `db:"department" json:"department,omitempty"`
	Program      string     `db:"program" json:"program,omitempty"`
	StudentID    string     `db:"student_id" json:"studentId,omitempty"`
	ApproverType string     `db:"approver_type" json:"approverType,omitempty"`
	Status       UserStatus `db:"status" json:"status"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Status   *UserStatus
	Search   string
	SearchBy string
	Page     int
	PageSize int
}
