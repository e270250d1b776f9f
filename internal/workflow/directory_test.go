package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/clearance-api/internal/models"
)

func TestResolveLabel(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		want  string
	}{
		{"approver with explicit type", Actor{Role: models.RoleApprover, ApproverType: "Registrar"}, "Registrar"},
		{"teacher with explicit type wins", Actor{Role: models.RoleTeacher, ApproverType: "Department Head"}, "Department Head"},
		{"teacher falls back to advisor", Actor{Role: models.RoleTeacher}, "Academic Advisor"},
		{"approver without type has no label", Actor{Role: models.RoleApprover}, ""},
		{"student has no label", Actor{Role: models.RoleStudent}, ""},
		{"admin has no label", Actor{Role: models.RoleAdmin}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLabel(tt.actor))
		})
	}
}

func TestIsAuthorized(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)
	require.NoError(t, Advance(req, "Academic Advisor", "", time.Now()))
	// current step now owned by "Department Head"

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"admin always", Actor{Role: models.RoleAdmin}, true},
		{"matching approver", Actor{Role: models.RoleApprover, ApproverType: "Department Head"}, true},
		{"matching teacher override", Actor{Role: models.RoleTeacher, ApproverType: "Department Head"}, true},
		{"wrong label", Actor{Role: models.RoleApprover, ApproverType: "Registrar"}, false},
		{"teacher fallback at wrong step", Actor{Role: models.RoleTeacher}, false},
		{"student never", Actor{Role: models.RoleStudent, ApproverType: "Department Head"}, false},
		{"approver without label", Actor{Role: models.RoleApprover}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthorized(tt.actor, req))
		})
	}
}

func TestIsAuthorizedTeacherFallbackAtFirstStep(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)

	assert.True(t, IsAuthorized(Actor{Role: models.RoleTeacher}, req))
	assert.False(t, IsAuthorized(Actor{Role: models.RoleTeacher, ApproverType: "Registrar"}, req))
}

func TestIsAuthorizedCorruptedStep(t *testing.T) {
	req := newTestRequest(t, models.RequestTypeTermination)
	req.CurrentStep = len(req.ApprovalSequence)

	assert.False(t, IsAuthorized(Actor{Role: models.RoleApprover, ApproverType: "Registrar"}, req))
	assert.True(t, IsAuthorized(Actor{Role: models.RoleAdmin}, req))
}
