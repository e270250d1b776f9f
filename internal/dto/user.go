package dto

import "github.com/campus-hub/clearance-api/internal/models"

// RegisterRequest payload for the public signup queue. Accounts are not
// created directly; an admin reviews the registration first.
type RegisterRequest struct {
	Username     string          `json:"username" validate:"required,min=3"`
	Password     string          `json:"password" validate:"required,min=6"`
	Name         string          `json:"name" validate:"required"`
	Email        string          `json:"email" validate:"required,email"`
	Role         models.UserRole `json:"role" validate:"required,oneof=student teacher approver"`
	Department   string          `json:"department"`
	Program      string          `json:"program"`
	ApproverType string          `json:"approverType"`
}

// ReviewRegistrationRequest captures the admin decision on a signup.
type ReviewRegistrationRequest struct {
	Action string `json:"action" validate:"required,oneof=approved rejected"`
}

// CreateUserRequest payload for direct admin user creation.
type CreateUserRequest struct {
	Username     string          `json:"username" validate:"required,min=3"`
	Password     string          `json:"password" validate:"required,min=6"`
	Name         string          `json:"name" validate:"required"`
	Email        string          `json:"email" validate:"required,email"`
	Role         models.UserRole `json:"role" validate:"required,oneof=student teacher approver admin"`
	Department   string          `json:"department"`
	Program      string          `json:"program"`
	ApproverType string          `json:"approverType"`
}

// UpdateProfileRequest carries the fields an account may edit on itself.
type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// UpdateUserStatusRequest toggles an account between active and blocked.
type UpdateUserStatusRequest struct {
	Status models.UserStatus `json:"status" validate:"required,oneof=active blocked"`
}

// UserQuery mirrors supported user listing filters.
type UserQuery struct {
	Role     string `form:"role"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	SearchBy string `form:"searchBy"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"pageSize,default=20"`
}

// AuditQuery mirrors supported audit log listing filters.
type AuditQuery struct {
	Action   string `form:"action"`
	User     string `form:"user"`
	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`
	Limit    int    `form:"limit,default=100"`
}
