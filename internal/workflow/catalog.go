package workflow

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

// DefinitionStore loads admin-managed sequence overrides.
// Implementations return sql.ErrNoRows when no override exists.
type DefinitionStore interface {
	Find(ctx context.Context, key models.WorkflowKey) (*models.WorkflowDefinition, error)
}

// Catalog resolves the ordered approver sequence for a request. Resolution is
// three-tiered: stored override, built-in keyed table, type-level fallback.
// The fallback chain means an unconfigured program combination still yields a
// usable sequence; only an unrecognized request type fails.
type Catalog struct {
	store DefinitionStore
	rules *Rules
}

// NewCatalog constructs the catalog around a definition store and the
// immutable built-in rules.
func NewCatalog(store DefinitionStore, rules *Rules) *Catalog {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Catalog{store: store, rules: rules}
}

// ResolveSequence returns the approver sequence for the given key.
func (c *Catalog) ResolveSequence(ctx context.Context, key models.WorkflowKey) ([]string, error) {
	if !key.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown request type")
	}

	if c.store != nil {
		definition, err := c.store.Find(ctx, key)
		switch {
		case err == nil && len(definition.Sequence) > 0:
			return copySequence(definition.Sequence), nil
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workflow definition")
		}
	}

	if sequence, ok := c.rules.Lookup(key); ok {
		return sequence, nil
	}

	if sequence, ok := c.rules.TypeDefault(key.Type); ok {
		return sequence, nil
	}

	return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown request type")
}
