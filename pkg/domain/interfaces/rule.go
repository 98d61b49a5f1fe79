package interfaces

import (
	"context"

	"github.com/secmon-lab/adsafe/pkg/domain/model"
)

// RuleRepository provides access to rules
type RuleRepository interface {
	// Get retrieves a rule by ID. Returns model.ErrNotFound if absent.
	Get(ctx context.Context, id int64) (*model.Rule, error)

	// List retrieves rules matching filter, ordered by ID descending
	List(ctx context.Context, filter *model.RuleFilter) ([]*model.Rule, error)

	// Create stores a new rule with an auto-generated ID. Returns
	// model.ErrReferentialConflict if its risk code or version does not exist.
	Create(ctx context.Context, rule *model.Rule) (*model.Rule, error)

	// Update applies a partial update. Returns model.ErrNotFound if absent.
	Update(ctx context.Context, id int64, update *model.RuleUpdate) (*model.Rule, error)

	// Delete removes a rule. Returns model.ErrNotFound if absent.
	Delete(ctx context.Context, id int64) error
}
