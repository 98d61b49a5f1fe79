package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
)

type ruleRepository struct {
	s *store
}

func (r *ruleRepository) Get(ctx context.Context, id int64) (*model.Rule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rule, exists := r.s.rules[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "rule not found", goerr.V(model.RuleIDKey, id))
	}
	return rule.Copy(), nil
}

func (r *ruleRepository) List(ctx context.Context, filter *model.RuleFilter) ([]*model.Rule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if filter == nil {
		filter = &model.RuleFilter{}
	}

	rules := make([]*model.Rule, 0, len(r.s.rules))
	for _, rule := range r.s.rules {
		if filter.Match(rule, r.s.taxonomy[rule.RiskCode]) {
			rules = append(rules, rule.Copy())
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ID > rules[j].ID
	})
	return rules, nil
}

func (r *ruleRepository) Create(ctx context.Context, rule *model.Rule) (*model.Rule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.taxonomy[rule.RiskCode]; !exists {
		return nil, goerr.Wrap(model.ErrReferentialConflict, "risk code does not exist in taxonomy",
			goerr.V(model.RiskCodeKey, rule.RiskCode))
	}
	if _, exists := r.s.versions[rule.VersionID]; !exists {
		return nil, goerr.Wrap(model.ErrReferentialConflict, "rule set version does not exist",
			goerr.V(model.VersionIDKey, rule.VersionID))
	}

	created := rule.Copy()
	created.ID = r.s.nextRuleID
	created.CreatedAt = time.Now().UTC()
	r.s.nextRuleID++

	r.s.rules[created.ID] = created
	return created.Copy(), nil
}

func (r *ruleRepository) Update(ctx context.Context, id int64, update *model.RuleUpdate) (*model.Rule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, exists := r.s.rules[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "rule not found", goerr.V(model.RuleIDKey, id))
	}

	updated := existing.Copy()
	update.Apply(updated)
	r.s.rules[id] = updated

	return updated.Copy(), nil
}

func (r *ruleRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.rules[id]; !exists {
		return goerr.Wrap(model.ErrNotFound, "rule not found", goerr.V(model.RuleIDKey, id))
	}

	delete(r.s.rules, id)
	return nil
}
