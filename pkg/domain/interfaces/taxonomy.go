package interfaces

import (
	"context"

	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

// TaxonomyRepository provides access to risk taxonomy entries
type TaxonomyRepository interface {
	// Get retrieves an entry by risk code. Returns model.ErrNotFound if absent.
	Get(ctx context.Context, code types.RiskCode) (*model.RiskTaxonomyEntry, error)

	// List retrieves all entries ordered by (level1, level2, level3)
	List(ctx context.Context) ([]*model.RiskTaxonomyEntry, error)

	// Create stores a new entry. Returns model.ErrDuplicateKey if the risk code exists.
	Create(ctx context.Context, entry *model.RiskTaxonomyEntry) (*model.RiskTaxonomyEntry, error)

	// Update applies a partial update. Returns model.ErrNotFound if absent.
	Update(ctx context.Context, code types.RiskCode, update *model.TaxonomyUpdate) (*model.RiskTaxonomyEntry, error)

	// Delete removes an entry. Returns model.ErrNotFound if absent, or
	// model.ErrReferentialConflict carrying model.RuleCountKey when rules reference it.
	Delete(ctx context.Context, code types.RiskCode) error
}
