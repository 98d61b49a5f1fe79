package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

type VersionUseCase struct {
	repo interfaces.Repository
	now  func() time.Time
}

func NewVersionUseCase(repo interfaces.Repository, now func() time.Time) *VersionUseCase {
	if now == nil {
		now = time.Now
	}
	return &VersionUseCase{repo: repo, now: now}
}

// Create stores a new version. Invalid industry and status values are
// coerced to general and draft.
func (uc *VersionUseCase) Create(ctx context.Context, input VersionInput) (*model.RuleSetVersion, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, validationError("version name is required", "name")
	}

	industry, industryCoerced := types.CoerceIndustry(strings.TrimSpace(input.Industry))
	status, statusCoerced := types.CoerceVersionStatus(strings.TrimSpace(input.Status))
	if (industryCoerced && input.Industry != "") || (statusCoerced && input.Status != "") {
		logging.From(ctx).Debug("version enum coerced to default",
			"industry", input.Industry, "status", input.Status)
	}

	created, err := uc.repo.Version().Create(ctx, &model.RuleSetVersion{
		Name:      name,
		Industry:  industry,
		Status:    status,
		Changelog: strings.TrimSpace(input.Changelog),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create rule set version")
	}

	if created.IsActive() {
		logging.From(ctx).Info("rule set version created active", "version_id", created.ID, "name", created.Name)
	}
	return created, nil
}

func (uc *VersionUseCase) Get(ctx context.Context, id int64) (*model.RuleSetVersion, error) {
	v, err := uc.repo.Version().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get rule set version")
	}
	return v, nil
}

// GetActive returns the active version, or nil if none
func (uc *VersionUseCase) GetActive(ctx context.Context) (*model.RuleSetVersion, error) {
	v, err := uc.repo.Version().GetActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get active rule set version")
	}
	return v, nil
}

func (uc *VersionUseCase) List(ctx context.Context) ([]*model.RuleSetVersion, error) {
	versions, err := uc.repo.Version().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list rule set versions")
	}
	return versions, nil
}

// Activate makes id the single active version
func (uc *VersionUseCase) Activate(ctx context.Context, id int64) (*model.RuleSetVersion, error) {
	v, err := uc.repo.Version().Activate(ctx, id, uc.now().UTC())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to activate rule set version")
	}

	logging.From(ctx).Info("rule set version activated", "version_id", v.ID, "name", v.Name)
	return v, nil
}

func (uc *VersionUseCase) Deactivate(ctx context.Context, id int64) (*model.RuleSetVersion, error) {
	v, err := uc.repo.Version().Deactivate(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to deactivate rule set version")
	}

	logging.From(ctx).Info("rule set version deactivated", "version_id", v.ID, "name", v.Name)
	return v, nil
}

// Delete removes a non-active version and its rules, returning the number of rules removed
func (uc *VersionUseCase) Delete(ctx context.Context, id int64) (int, error) {
	removed, err := uc.repo.Version().Delete(ctx, id)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete rule set version")
	}

	logging.From(ctx).Info("rule set version deleted", "version_id", id, "rules_removed", removed)
	return removed, nil
}
