package workflow

import "github.com/campus-hub/clearance-api/internal/models"

// Default sequences mirror the configuration the registrar office runs when no
// admin override exists. Termination clearance passes every circulation desk;
// ID replacement goes through the consolidated library desk plus security and
// finance.
var (
	terminationSequence = []string{
		"Academic Advisor",
		"Department Head",
		"Library (A) Chief of Circulation",
		"Library (B) Chief of Circulation",
		"(Main) Library (C)",
		"Dean's Office",
		"Student Services",
		"Registrar",
	}

	idReplacementSequence = []string{
		"Academic Advisor",
		"Library Services",
		"Campus Security",
		"Finance Office",
		"Registrar",
	}
)

// Rules is the immutable built-in sequence table, constructed once at startup
// and injected wherever resolution is needed.
type Rules struct {
	table        map[models.WorkflowKey][]string
	typeDefaults map[models.RequestType][]string
}

// DefaultRules builds the built-in table covering every known
// (type, programType, programMode) combination plus the type-level fallbacks.
func DefaultRules() *Rules {
	rules := &Rules{
		table: make(map[models.WorkflowKey][]string),
		typeDefaults: map[models.RequestType][]string{
			models.RequestTypeTermination:   terminationSequence,
			models.RequestTypeIDReplacement: idReplacementSequence,
		},
	}

	programTypes := []models.ProgramType{models.ProgramUndergraduate, models.ProgramPostgraduate, models.ProgramDiploma}
	programModes := []models.ProgramMode{models.ModeRegular, models.ModeEvening, models.ModeSummer}
	for requestType, sequence := range rules.typeDefaults {
		for _, pt := range programTypes {
			for _, pm := range programModes {
				key := models.WorkflowKey{Type: requestType, ProgramType: pt, ProgramMode: pm}
				rules.table[key] = sequence
			}
		}
	}
	return rules
}

// Lookup returns the keyed sequence when configured.
func (r *Rules) Lookup(key models.WorkflowKey) ([]string, bool) {
	sequence, ok := r.table[key]
	if !ok {
		return nil, false
	}
	return copySequence(sequence), true
}

// TypeDefault returns the type-level fallback sequence.
func (r *Rules) TypeDefault(requestType models.RequestType) ([]string, bool) {
	sequence, ok := r.typeDefaults[requestType]
	if !ok {
		return nil, false
	}
	return copySequence(sequence), true
}

func copySequence(sequence []string) []string {
	out := make([]string, len(sequence))
	copy(out, sequence)
	return out
}
