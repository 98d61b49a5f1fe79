package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

func TestRuleSetVersion_Transitions(t *testing.T) {
	draft := &model.RuleSetVersion{ID: 1, Status: types.VersionStatusDraft}
	active := &model.RuleSetVersion{ID: 2, Status: types.VersionStatusActive}

	gt.NoError(t, draft.CheckActivate())
	gt.Error(t, active.CheckActivate()).Is(model.ErrInvalidTransition)

	gt.NoError(t, active.CheckDeactivate())
	gt.Error(t, draft.CheckDeactivate()).Is(model.ErrInvalidTransition)

	gt.NoError(t, draft.CheckDelete())
	gt.Error(t, active.CheckDelete()).Is(model.ErrInvalidTransition)
}

func TestRuleSetVersion_MarkActiveInactive(t *testing.T) {
	v := &model.RuleSetVersion{ID: 1, Status: types.VersionStatusDraft}
	now := time.Now().UTC()

	v.MarkActive(now)
	gt.Value(t, v.Status).Equal(types.VersionStatusActive)
	gt.Value(t, v.ActivatedAt).NotNil()
	gt.Bool(t, v.ActivatedAt.Equal(now)).True()

	c := v.Copy()
	v.MarkInactive()
	gt.Value(t, v.Status).Equal(types.VersionStatusInactive)
	gt.Value(t, v.ActivatedAt).Nil()
	gt.Value(t, c.ActivatedAt).NotNil()
}

func TestSortVersions(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	versions := []*model.RuleSetVersion{
		{ID: 1, Status: types.VersionStatusInactive, CreatedAt: base.Add(5 * time.Hour)},
		{ID: 2, Status: types.VersionStatusDraft, CreatedAt: base.Add(1 * time.Hour)},
		{ID: 3, Status: types.VersionStatusActive, CreatedAt: base},
		{ID: 4, Status: types.VersionStatusDraft, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 5, Status: types.VersionStatusDeprecated, CreatedAt: base.Add(6 * time.Hour)},
	}

	model.SortVersions(versions)

	ids := make([]int64, len(versions))
	for i, v := range versions {
		ids[i] = v.ID
	}
	gt.Value(t, ids).Equal([]int64{3, 4, 2, 5, 1})
}

func TestSortTaxonomy(t *testing.T) {
	entries := []*model.RiskTaxonomyEntry{
		{RiskCode: "RISK_C", Level1: "b", Level2: "a"},
		{RiskCode: "RISK_B", Level1: "a", Level2: "b"},
		{RiskCode: "RISK_A", Level1: "a", Level2: "a", Level3: "z"},
		{RiskCode: "RISK_D", Level1: "a", Level2: "a", Level3: "y"},
	}
	model.SortTaxonomy(entries)

	codes := make([]types.RiskCode, len(entries))
	for i, e := range entries {
		codes[i] = e.RiskCode
	}
	gt.Value(t, codes).Equal([]types.RiskCode{"RISK_D", "RISK_A", "RISK_B", "RISK_C"})
}

func TestErrorValues(t *testing.T) {
	err := model.StoreUnavailable(errors.New("connection refused"), "failed to list rules")
	gt.Error(t, err).Is(model.ErrStoreUnavailable)
	gt.String(t, err.Error()).Contains("connection refused")

	_, ok := model.BlockingRuleCount(err)
	gt.Bool(t, ok).False()
}
