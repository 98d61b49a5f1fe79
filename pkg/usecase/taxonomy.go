package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

type TaxonomyUseCase struct {
	repo interfaces.Repository
}

func NewTaxonomyUseCase(repo interfaces.Repository) *TaxonomyUseCase {
	return &TaxonomyUseCase{repo: repo}
}

func (uc *TaxonomyUseCase) List(ctx context.Context) ([]*model.RiskTaxonomyEntry, error) {
	entries, err := uc.repo.Taxonomy().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list taxonomy")
	}
	return entries, nil
}

func (uc *TaxonomyUseCase) Get(ctx context.Context, code string) (*model.RiskTaxonomyEntry, error) {
	entry, err := uc.repo.Taxonomy().Get(ctx, types.RiskCode(strings.TrimSpace(code)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get taxonomy entry")
	}
	return entry, nil
}

// Create validates the risk code and stores a new entry. An invalid risk
// level falls back to medium; IsActive defaults to true.
func (uc *TaxonomyUseCase) Create(ctx context.Context, input TaxonomyInput) (*model.RiskTaxonomyEntry, error) {
	code := types.RiskCode(strings.TrimSpace(input.RiskCode))
	if code == "" {
		return nil, validationError("risk code is required", "riskCode")
	}
	if err := code.Validate(); err != nil {
		return nil, goerr.Wrap(model.ErrValidation, err.Error(),
			goerr.V(FieldKey, "riskCode"), goerr.V(model.RiskCodeKey, code))
	}

	level, coerced := types.CoerceRiskLevel(strings.TrimSpace(input.RiskLevel), types.DefaultRiskLevel)
	if coerced && input.RiskLevel != "" {
		logging.From(ctx).Debug("risk level coerced to default",
			"risk_code", code, "given", input.RiskLevel, "used", level)
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	entry := &model.RiskTaxonomyEntry{
		RiskCode:         code,
		Level1:           strings.TrimSpace(input.Level1),
		Level2:           strings.TrimSpace(input.Level2),
		Level3:           strings.TrimSpace(input.Level3),
		DefaultRiskLevel: level,
		Description:      strings.TrimSpace(input.Description),
		IsActive:         isActive,
	}

	created, err := uc.repo.Taxonomy().Create(ctx, entry)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create taxonomy entry")
	}
	return created, nil
}

// Update applies a partial update. Invalid risk levels are ignored; a patch
// with nothing applicable is a validation error.
func (uc *TaxonomyUseCase) Update(ctx context.Context, code string, patch TaxonomyPatch) (*model.RiskTaxonomyEntry, error) {
	riskCode := types.RiskCode(strings.TrimSpace(code))

	update := &model.TaxonomyUpdate{
		Level1:      trimmed(patch.Level1),
		Level2:      trimmed(patch.Level2),
		Level3:      trimmed(patch.Level3),
		Description: trimmed(patch.Description),
		IsActive:    patch.IsActive,
	}
	if patch.RiskLevel != nil {
		if level, err := types.ParseRiskLevel(strings.TrimSpace(*patch.RiskLevel)); err == nil {
			update.DefaultRiskLevel = &level
		}
	}

	if update.IsEmpty() {
		// an unknown entry is reported before the empty patch
		if _, err := uc.repo.Taxonomy().Get(ctx, riskCode); err != nil {
			return nil, goerr.Wrap(err, "failed to get taxonomy entry")
		}
		return nil, nothingToUpdate(goerr.V(model.RiskCodeKey, riskCode))
	}

	updated, err := uc.repo.Taxonomy().Update(ctx, riskCode, update)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update taxonomy entry")
	}
	return updated, nil
}

// Delete removes an entry. It fails with model.ErrReferentialConflict while
// rules reference it; use model.BlockingRuleCount to read the count.
func (uc *TaxonomyUseCase) Delete(ctx context.Context, code string) error {
	if err := uc.repo.Taxonomy().Delete(ctx, types.RiskCode(strings.TrimSpace(code))); err != nil {
		return goerr.Wrap(err, "failed to delete taxonomy entry")
	}
	return nil
}
