package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/repository/memory"
	"github.com/secmon-lab/adsafe/pkg/usecase"
)

func TestVersionUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("coerces unknown enums", func(t *testing.T) {
		uc := usecase.New(memory.New())

		v, err := uc.Version.Create(ctx, usecase.VersionInput{Name: " 2024 Q1 ", Industry: "aerospace", Status: "published"})
		gt.NoError(t, err).Required()
		gt.Value(t, v.Name).Equal("2024 Q1")
		gt.Value(t, v.Industry).Equal(types.IndustryGeneral)
		gt.Value(t, v.Status).Equal(types.VersionStatusDraft)
		gt.Value(t, v.ActivatedAt).Nil()
	})

	t.Run("requires name", func(t *testing.T) {
		uc := usecase.New(memory.New())

		_, err := uc.Version.Create(ctx, usecase.VersionInput{Name: "  "})
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("creating active demotes the previous active", func(t *testing.T) {
		uc := usecase.New(memory.New())

		first, err := uc.Version.Create(ctx, usecase.VersionInput{Name: "v1", Status: "active"})
		gt.NoError(t, err).Required()
		second, err := uc.Version.Create(ctx, usecase.VersionInput{Name: "v2", Status: "active", Industry: "medical"})
		gt.NoError(t, err).Required()

		active, err := uc.Version.GetActive(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, active.ID).Equal(second.ID)

		old, err := uc.Version.Get(ctx, first.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, old.Status).Equal(types.VersionStatusInactive)
		gt.Value(t, old.ActivatedAt).Nil()
	})
}

func TestVersionUseCase_Lifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("KST", 9*60*60))
	uc := usecase.New(memory.New(), usecase.WithClock(func() time.Time { return now }))

	a, err := uc.Version.Create(ctx, usecase.VersionInput{Name: "a"})
	gt.NoError(t, err).Required()
	b, err := uc.Version.Create(ctx, usecase.VersionInput{Name: "b"})
	gt.NoError(t, err).Required()

	active, err := uc.Version.GetActive(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, active).Nil()

	activated, err := uc.Version.Activate(ctx, a.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, activated.Status).Equal(types.VersionStatusActive)
	gt.Value(t, activated.ActivatedAt).NotNil()
	gt.Bool(t, activated.ActivatedAt.Equal(now)).True()

	_, err = uc.Version.Activate(ctx, a.ID)
	gt.Error(t, err).Is(model.ErrInvalidTransition)

	_, err = uc.Version.Activate(ctx, b.ID)
	gt.NoError(t, err).Required()

	oldA, err := uc.Version.Get(ctx, a.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, oldA.Status).Equal(types.VersionStatusInactive)

	_, err = uc.Version.Deactivate(ctx, a.ID)
	gt.Error(t, err).Is(model.ErrInvalidTransition)

	_, err = uc.Version.Delete(ctx, b.ID)
	gt.Error(t, err).Is(model.ErrInvalidTransition)

	deactivated, err := uc.Version.Deactivate(ctx, b.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, deactivated.Status).Equal(types.VersionStatusInactive)

	_, err = uc.Version.Activate(ctx, 9999)
	gt.Error(t, err).Is(model.ErrNotFound)

	versions, err := uc.Version.List(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, versions).Length(2)
}

func TestVersionUseCase_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New())

	_, err := uc.Taxonomy.Create(ctx, usecase.TaxonomyInput{RiskCode: "RISK_A"})
	gt.NoError(t, err).Required()
	v, err := uc.Version.Create(ctx, usecase.VersionInput{Name: "draft"})
	gt.NoError(t, err).Required()

	for _, p := range []string{"a", "b", "c"} {
		_, err := uc.Rule.Create(ctx, usecase.RuleInput{VersionID: v.ID, RiskCode: "RISK_A", Pattern: p})
		gt.NoError(t, err).Required()
	}

	removed, err := uc.Version.Delete(ctx, v.ID)
	gt.NoError(t, err).Required()
	gt.Number(t, removed).Equal(3)

	rules, err := uc.Rule.List(ctx, usecase.RuleQuery{VersionID: v.ID})
	gt.NoError(t, err).Required()
	gt.Array(t, rules).Length(0)

	_, err = uc.Version.Delete(ctx, v.ID)
	gt.Error(t, err).Is(model.ErrNotFound)
}
