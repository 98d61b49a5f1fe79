package interfaces

import (
	"context"

	"github.com/secmon-lab/adsafe/pkg/domain/model"
)

// SnapshotReader reads the static artifact of pre-decoded rules used when
// the live store cannot produce a rule set.
type SnapshotReader interface {
	Read(ctx context.Context) ([]model.DecodedRule, error)
}

// SnapshotWriter persists a decoded rule list as a static artifact
type SnapshotWriter interface {
	Write(ctx context.Context, rules []model.DecodedRule) error
}
