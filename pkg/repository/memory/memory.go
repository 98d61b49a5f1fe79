package memory

import (
	"sync"

	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// store holds every table behind one lock so that cross-table invariants
// (activation swap, cascade delete, referential checks) are atomic.
type store struct {
	mu            sync.RWMutex
	taxonomy      map[types.RiskCode]*model.RiskTaxonomyEntry
	versions      map[int64]*model.RuleSetVersion
	rules         map[int64]*model.Rule
	nextVersionID int64
	nextRuleID    int64
}

type Memory struct {
	taxonomy *taxonomyRepository
	version  *versionRepository
	rule     *ruleRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	s := &store{
		taxonomy:      make(map[types.RiskCode]*model.RiskTaxonomyEntry),
		versions:      make(map[int64]*model.RuleSetVersion),
		rules:         make(map[int64]*model.Rule),
		nextVersionID: 1,
		nextRuleID:    1,
	}

	return &Memory{
		taxonomy: &taxonomyRepository{s: s},
		version:  &versionRepository{s: s},
		rule:     &ruleRepository{s: s},
	}
}

func (m *Memory) Taxonomy() interfaces.TaxonomyRepository {
	return m.taxonomy
}

func (m *Memory) Version() interfaces.RuleSetVersionRepository {
	return m.version
}

func (m *Memory) Rule() interfaces.RuleRepository {
	return m.rule
}

func (m *Memory) Close() error {
	return nil
}
