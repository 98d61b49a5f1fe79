package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

type RuleUseCase struct {
	repo interfaces.Repository
}

func NewRuleUseCase(repo interfaces.Repository) *RuleUseCase {
	return &RuleUseCase{repo: repo}
}

// filter drops rule type and severity values outside their enums so that
// an unknown value lists unfiltered instead of matching nothing
func (q RuleQuery) filter() *model.RuleFilter {
	f := &model.RuleFilter{
		VersionID: q.VersionID,
		RiskCode:  types.RiskCode(strings.TrimSpace(q.RiskCode)),
	}
	if t := types.RuleType(strings.TrimSpace(q.RuleType)); t.IsValid() {
		f.RuleType = t
	}
	if level, err := types.ParseRiskLevel(strings.TrimSpace(q.Severity)); err == nil {
		f.Severity = level
	}
	return f
}

// List returns the rules matching q, newest first, joined with their taxonomy classification
func (uc *RuleUseCase) List(ctx context.Context, q RuleQuery) ([]*model.RuleView, error) {
	rules, err := uc.repo.Rule().List(ctx, q.filter())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list rules")
	}

	taxonomy, err := uc.taxonomyIndex(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]*model.RuleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, model.NewRuleView(r, taxonomy[r.RiskCode]))
	}
	return views, nil
}

func (uc *RuleUseCase) taxonomyIndex(ctx context.Context) (map[types.RiskCode]*model.RiskTaxonomyEntry, error) {
	entries, err := uc.repo.Taxonomy().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list taxonomy")
	}

	index := make(map[types.RiskCode]*model.RiskTaxonomyEntry, len(entries))
	for _, e := range entries {
		index[e.RiskCode] = e
	}
	return index, nil
}

func (uc *RuleUseCase) Get(ctx context.Context, id int64) (*model.Rule, error) {
	r, err := uc.repo.Rule().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get rule")
	}
	return r, nil
}

// Create stores a new rule. Invalid rule types become keyword and invalid
// severities are dropped so that the taxonomy default applies.
func (uc *RuleUseCase) Create(ctx context.Context, input RuleInput) (*model.Rule, error) {
	code := types.RiskCode(strings.TrimSpace(input.RiskCode))
	if code == "" {
		return nil, validationError("risk code is required", "riskCode")
	}

	// Checked before a default version may be created on the rule's behalf
	if _, err := uc.repo.Taxonomy().Get(ctx, code); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, goerr.Wrap(model.ErrReferentialConflict, "risk code does not exist in taxonomy",
				goerr.V(model.RiskCodeKey, code))
		}
		return nil, goerr.Wrap(err, "failed to get taxonomy entry")
	}

	ruleType, _ := types.CoerceRuleType(strings.TrimSpace(input.RuleType))

	rule := &model.Rule{
		VersionID:           input.VersionID,
		RiskCode:            code,
		RuleName:            strings.TrimSpace(input.RuleName),
		RuleType:            ruleType,
		Pattern:             strings.TrimSpace(input.Pattern),
		ExplanationTemplate: optionalText(input.Explanation),
		SuggestionTemplate:  optionalText(input.Suggestion),
		IsActive:            true,
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	if level, err := types.ParseRiskLevel(strings.TrimSpace(input.Severity)); err == nil {
		rule.SeverityOverride = &level
	}

	if rule.VersionID <= 0 {
		versionID, err := uc.defaultVersionID(ctx)
		if err != nil {
			return nil, err
		}
		rule.VersionID = versionID
	}

	created, err := uc.repo.Rule().Create(ctx, rule)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create rule")
	}
	return created, nil
}

// defaultVersionID returns the active version, creating an active default
// version when no version is active.
func (uc *RuleUseCase) defaultVersionID(ctx context.Context) (int64, error) {
	active, err := uc.repo.Version().GetActive(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get active rule set version")
	}
	if active != nil {
		return active.ID, nil
	}

	created, err := uc.repo.Version().Create(ctx, &model.RuleSetVersion{
		Name:     model.DefaultVersionName,
		Industry: types.IndustryGeneral,
		Status:   types.VersionStatusActive,
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create default rule set version")
	}

	logging.From(ctx).Info("created default rule set version", "version_id", created.ID, "name", created.Name)
	return created.ID, nil
}

// Update applies a partial update. Invalid rule types and severities are
// ignored; a patch with nothing applicable is a validation error.
func (uc *RuleUseCase) Update(ctx context.Context, id int64, patch RulePatch) (*model.Rule, error) {
	update := &model.RuleUpdate{
		RuleName:            trimmed(patch.RuleName),
		Pattern:             trimmed(patch.Pattern),
		ExplanationTemplate: trimmed(patch.Explanation),
		SuggestionTemplate:  trimmed(patch.Suggestion),
		IsActive:            patch.IsActive,
	}
	if patch.RuleType != nil {
		if t := types.RuleType(strings.TrimSpace(*patch.RuleType)); t.IsValid() {
			update.RuleType = &t
		}
	}
	if patch.Severity != nil {
		if level, err := types.ParseRiskLevel(strings.TrimSpace(*patch.Severity)); err == nil {
			update.SeverityOverride = &level
		}
	}

	if update.IsEmpty() {
		// an unknown rule is reported before the empty patch
		if _, err := uc.repo.Rule().Get(ctx, id); err != nil {
			return nil, goerr.Wrap(err, "failed to get rule")
		}
		return nil, nothingToUpdate(goerr.V(model.RuleIDKey, id))
	}

	updated, err := uc.repo.Rule().Update(ctx, id, update)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update rule")
	}
	return updated, nil
}

func (uc *RuleUseCase) Delete(ctx context.Context, id int64) error {
	if err := uc.repo.Rule().Delete(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete rule")
	}
	return nil
}
