package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

type taxonomyRepository struct {
	s *store
}

func (r *taxonomyRepository) Get(ctx context.Context, code types.RiskCode) (*model.RiskTaxonomyEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entry, exists := r.s.taxonomy[code]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "taxonomy entry not found", goerr.V(model.RiskCodeKey, code))
	}
	return entry.Copy(), nil
}

func (r *taxonomyRepository) List(ctx context.Context) ([]*model.RiskTaxonomyEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entries := make([]*model.RiskTaxonomyEntry, 0, len(r.s.taxonomy))
	for _, entry := range r.s.taxonomy {
		entries = append(entries, entry.Copy())
	}
	model.SortTaxonomy(entries)
	return entries, nil
}

func (r *taxonomyRepository) Create(ctx context.Context, entry *model.RiskTaxonomyEntry) (*model.RiskTaxonomyEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.taxonomy[entry.RiskCode]; exists {
		return nil, goerr.Wrap(model.ErrDuplicateKey, "risk code already exists", goerr.V(model.RiskCodeKey, entry.RiskCode))
	}

	now := time.Now().UTC()
	created := entry.Copy()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.s.taxonomy[created.RiskCode] = created
	return created.Copy(), nil
}

func (r *taxonomyRepository) Update(ctx context.Context, code types.RiskCode, update *model.TaxonomyUpdate) (*model.RiskTaxonomyEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, exists := r.s.taxonomy[code]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "taxonomy entry not found", goerr.V(model.RiskCodeKey, code))
	}

	updated := existing.Copy()
	update.Apply(updated)
	updated.UpdatedAt = time.Now().UTC()

	r.s.taxonomy[code] = updated
	return updated.Copy(), nil
}

func (r *taxonomyRepository) Delete(ctx context.Context, code types.RiskCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.taxonomy[code]; !exists {
		return goerr.Wrap(model.ErrNotFound, "taxonomy entry not found", goerr.V(model.RiskCodeKey, code))
	}

	count := 0
	for _, rule := range r.s.rules {
		if rule.RiskCode == code {
			count++
		}
	}
	if count > 0 {
		return goerr.Wrap(model.ErrReferentialConflict, "taxonomy entry is referenced by rules",
			goerr.V(model.RiskCodeKey, code), goerr.V(model.RuleCountKey, count))
	}

	delete(r.s.taxonomy, code)
	return nil
}
