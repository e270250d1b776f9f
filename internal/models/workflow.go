package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ProgramType classifies the academic program of the requester.
type ProgramType string

const (
	ProgramUndergraduate ProgramType = "undergraduate"
	ProgramPostgraduate  ProgramType = "postgraduate"
	ProgramDiploma       ProgramType = "diploma"
)

// Valid reports whether the program type is known.
func (p ProgramType) Valid() bool {
	return p == ProgramUndergraduate || p == ProgramPostgraduate || p == ProgramDiploma
}

// ProgramMode classifies the delivery mode of the program.
type ProgramMode string

const (
	ModeRegular ProgramMode = "regular"
	ModeEvening ProgramMode = "evening"
	ModeSummer  ProgramMode = "summer"
)

// Valid reports whether the program mode is known.
func (m ProgramMode) Valid() bool {
	return m == ModeRegular || m == ModeEvening || m == ModeSummer
}

// WorkflowKey identifies one approval sequence configuration.
type WorkflowKey struct {
	Type        RequestType
	ProgramType ProgramType
	ProgramMode ProgramMode
}

// ProgramKey renders the program half of the key in its wire form,
// e.g. "undergraduate-regular".
func (k WorkflowKey) ProgramKey() string {
	return fmt.Sprintf("%s-%s", k.ProgramType, k.ProgramMode)
}

// ParseProgramKey splits a wire-form program key into its typed parts.
func ParseProgramKey(raw string) (ProgramType, ProgramMode, error) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed program key %q", raw)
	}
	pt, pm := ProgramType(parts[0]), ProgramMode(parts[1])
	if !pt.Valid() || !pm.Valid() {
		return "", "", fmt.Errorf("unknown program key %q", raw)
	}
	return pt, pm, nil
}

// WorkflowDefinition is an admin-managed approval sequence override persisted
// independently of in-flight requests.
type WorkflowDefinition struct {
	ID          string         `db:"id" json:"id"`
	Type        RequestType    `db:"type" json:"type"`
	ProgramType ProgramType    `db:"program_type" json:"programType"`
	ProgramMode ProgramMode    `db:"program_mode" json:"programMode"`
	Sequence    pq.StringArray `db:"sequence" json:"sequence"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// Key returns the composite identifier of the definition.
func (d *WorkflowDefinition) Key() WorkflowKey {
	return WorkflowKey{Type: d.Type, ProgramType: d.ProgramType, ProgramMode: d.ProgramMode}
}
