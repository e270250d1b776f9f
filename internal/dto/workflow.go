package dto

import "github.com/campus-hub/clearance-api/internal/models"

// UpdateWorkflowRequest payload for storing an approval sequence override.
// ProgramKey uses the wire form "programType-programMode".
type UpdateWorkflowRequest struct {
	Type       models.RequestType `json:"type" validate:"required"`
	ProgramKey string             `json:"programKey" validate:"required"`
	Sequence   []string           `json:"sequence" validate:"required,min=1,dive,required"`
}

// ResolveWorkflowQuery selects the sequence to resolve.
type ResolveWorkflowQuery struct {
	Type       models.RequestType `form:"type"`
	ProgramKey string             `form:"programKey"`
}

// WorkflowView exposes one resolved or stored sequence.
type WorkflowView struct {
	Type       models.RequestType `json:"type"`
	ProgramKey string             `json:"programKey"`
	Sequence   []string           `json:"sequence"`
}

// UpdateWorkflowResult reports the stored override plus the propagation
// outcome over in-flight pending requests.
type UpdateWorkflowResult struct {
	Workflow        WorkflowView `json:"workflow"`
	UpdatedRequests int          `json:"updatedRequests"`
	SkippedRequests int          `json:"skippedRequests"`
}
