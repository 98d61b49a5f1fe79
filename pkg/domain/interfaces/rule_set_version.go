package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/adsafe/pkg/domain/model"
)

// RuleSetVersionRepository provides access to rule set versions.
// At most one version may be active at any observable point.
type RuleSetVersionRepository interface {
	// Create stores a new version with an auto-generated ID. When the version
	// is created active, the previously active version is deactivated in the
	// same atomic unit.
	Create(ctx context.Context, version *model.RuleSetVersion) (*model.RuleSetVersion, error)

	// Get retrieves a version by ID. Returns model.ErrNotFound if absent.
	Get(ctx context.Context, id int64) (*model.RuleSetVersion, error)

	// GetActive retrieves the active version.
	// Returns nil, nil if no version is active.
	GetActive(ctx context.Context) (*model.RuleSetVersion, error)

	// List retrieves all versions ordered by status priority, then creation time descending
	List(ctx context.Context) ([]*model.RuleSetVersion, error)

	// Activate deactivates every active version and activates id at the given
	// time as one atomic unit. Returns model.ErrNotFound or model.ErrInvalidTransition.
	Activate(ctx context.Context, id int64, at time.Time) (*model.RuleSetVersion, error)

	// Deactivate moves an active version to inactive. Returns model.ErrNotFound
	// or model.ErrInvalidTransition.
	Deactivate(ctx context.Context, id int64) (*model.RuleSetVersion, error)

	// Delete removes a non-active version and every rule it owns, returning
	// the number of rules removed.
	Delete(ctx context.Context, id int64) (int, error)
}
