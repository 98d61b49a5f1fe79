package usecase_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/repository/memory"
	"github.com/secmon-lab/adsafe/pkg/usecase"
	"github.com/secmon-lab/adsafe/pkg/utils/metrics"
)

type snapshotMock struct {
	rules []model.DecodedRule
	err   error
	calls atomic.Int32
}

func (m *snapshotMock) Read(ctx context.Context) ([]model.DecodedRule, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.rules, nil
}

// brokenRepository fails every version lookup
type brokenRepository struct {
	*memory.Memory
}

type brokenVersions struct {
	interfaces.RuleSetVersionRepository
}

func (r *brokenRepository) Version() interfaces.RuleSetVersionRepository {
	return &brokenVersions{RuleSetVersionRepository: r.Memory.Version()}
}

func (brokenVersions) GetActive(ctx context.Context) (*model.RuleSetVersion, error) {
	return nil, model.StoreUnavailable(errors.New("connection refused"), "failed to query active version")
}

var snapshotRules = []model.DecodedRule{
	{
		RiskCode:  "RISK_SNAPSHOT",
		Level1:    "snapshot",
		RiskLevel: types.RiskLevelLow,
		Keywords:  []string{"from-snapshot"},
		Regex:     []string{},
	},
}

func scrapeMetrics(t *testing.T, c *metrics.Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	gt.NoError(t, err).Required()
	return string(body)
}

func seedLiveRules(t *testing.T, ctx context.Context, uc *usecase.UseCases) {
	t.Helper()

	_, err := uc.Taxonomy.Create(ctx, usecase.TaxonomyInput{
		RiskCode:    "RISK_MEDICAL_EFFICACY",
		Level1:      "의료",
		Level2:      "효능",
		Level3:      "치료",
		RiskLevel:   "high",
		Description: "질병 치료 효능 표방",
	})
	gt.NoError(t, err).Required()

	_, err = uc.Rule.Create(ctx, usecase.RuleInput{
		RiskCode: "RISK_MEDICAL_EFFICACY",
		Pattern:  "치료, 완치 | regex: \\d+% 효과",
	})
	gt.NoError(t, err).Required()
	_, err = uc.Rule.Create(ctx, usecase.RuleInput{
		RiskCode:    "RISK_MEDICAL_EFFICACY",
		Pattern:     "특효",
		Severity:    "medium",
		Explanation: ptr("효능 과장"),
		Suggestion:  ptr("표현을 완화하세요"),
	})
	gt.NoError(t, err).Required()
	_, err = uc.Rule.Create(ctx, usecase.RuleInput{
		RiskCode: "RISK_MEDICAL_EFFICACY",
		Pattern:  "비활성",
		IsActive: ptr(false),
	})
	gt.NoError(t, err).Required()
}

func TestResolver_Live(t *testing.T) {
	ctx := context.Background()
	snap := &snapshotMock{rules: snapshotRules}
	collector := metrics.New()
	uc := usecase.New(memory.New(), usecase.WithSnapshot(snap), usecase.WithMetrics(collector))
	seedLiveRules(t, ctx, uc)

	res := uc.Resolver.Resolve(ctx)
	gt.Value(t, res.Source).Equal(usecase.SourceLive)
	gt.Array(t, res.Rules).Length(2).Required()

	first := res.Rules[0]
	gt.Value(t, first.RiskCode).Equal(types.RiskCode("RISK_MEDICAL_EFFICACY"))
	gt.Value(t, first.Level1).Equal("의료")
	gt.Value(t, first.Level3).Equal("치료")
	gt.Value(t, first.RiskLevel).Equal(types.RiskLevelHigh)
	gt.Value(t, first.Keywords).Equal([]string{"치료", "완치"})
	gt.Value(t, first.Regex).Equal([]string{`\d+% 효과`})
	gt.Value(t, first.Explanation).Equal("질병 치료 효능 표방")
	gt.Value(t, first.Suggestion).Equal("")

	second := res.Rules[1]
	gt.Value(t, second.RiskLevel).Equal(types.RiskLevelMedium)
	gt.Value(t, second.Explanation).Equal("효능 과장")
	gt.Value(t, second.Suggestion).Equal("표현을 완화하세요")

	gt.Number(t, snap.calls.Load()).Equal(0)
	gt.String(t, scrapeMetrics(t, collector)).Contains(`adsafe_rule_resolutions_total{source="live"} 1`)
}

func TestResolver_Fallback(t *testing.T) {
	ctx := context.Background()

	t.Run("no active version uses snapshot", func(t *testing.T) {
		snap := &snapshotMock{rules: snapshotRules}
		collector := metrics.New()
		uc := usecase.New(memory.New(), usecase.WithSnapshot(snap), usecase.WithMetrics(collector))

		res := uc.Resolver.Resolve(ctx)
		gt.Value(t, res.Source).Equal(usecase.SourceSnapshot)
		gt.Value(t, res.Rules).Equal(snapshotRules)

		body := scrapeMetrics(t, collector)
		gt.String(t, body).Contains(`adsafe_rule_resolution_fallbacks_total{reason="live_empty"} 1`)
		gt.String(t, body).Contains(`adsafe_rule_resolutions_total{source="snapshot"} 1`)
	})

	t.Run("active version without active rules uses snapshot", func(t *testing.T) {
		snap := &snapshotMock{rules: snapshotRules}
		uc := usecase.New(memory.New(), usecase.WithSnapshot(snap))
		_, err := uc.Taxonomy.Create(ctx, usecase.TaxonomyInput{RiskCode: "RISK_A"})
		gt.NoError(t, err).Required()
		_, err = uc.Rule.Create(ctx, usecase.RuleInput{RiskCode: "RISK_A", Pattern: "x", IsActive: ptr(false)})
		gt.NoError(t, err).Required()

		res := uc.Resolver.Resolve(ctx)
		gt.Value(t, res.Source).Equal(usecase.SourceSnapshot)
	})

	t.Run("store failure uses snapshot", func(t *testing.T) {
		snap := &snapshotMock{rules: snapshotRules}
		collector := metrics.New()
		uc := usecase.New(&brokenRepository{Memory: memory.New()}, usecase.WithSnapshot(snap), usecase.WithMetrics(collector))

		res := uc.Resolver.Resolve(ctx)
		gt.Value(t, res.Source).Equal(usecase.SourceSnapshot)
		gt.Array(t, res.Rules).Length(1)
		gt.String(t, scrapeMetrics(t, collector)).Contains(`adsafe_rule_resolution_fallbacks_total{reason="live_error"} 1`)

		_, err := uc.Resolver.ResolveLive(ctx)
		gt.Error(t, err).Is(model.ErrStoreUnavailable)
	})

	t.Run("missing snapshot yields empty list", func(t *testing.T) {
		snap := &snapshotMock{err: goerr.Wrap(model.ErrNotFound, "no snapshot")}
		collector := metrics.New()
		uc := usecase.New(memory.New(), usecase.WithSnapshot(snap), usecase.WithMetrics(collector))

		res := uc.Resolver.Resolve(ctx)
		gt.Value(t, res.Source).Equal(usecase.SourceEmpty)
		if res.Rules == nil {
			t.Error("empty resolution must be a non-nil list")
		}
		gt.Array(t, res.Rules).Length(0)
		gt.String(t, scrapeMetrics(t, collector)).Contains(`adsafe_rule_resolution_fallbacks_total{reason="snapshot_missing"} 1`)
	})

	t.Run("unreadable snapshot yields empty list", func(t *testing.T) {
		snap := &snapshotMock{err: errors.New("malformed")}
		collector := metrics.New()
		uc := usecase.New(&brokenRepository{Memory: memory.New()}, usecase.WithSnapshot(snap), usecase.WithMetrics(collector))

		res := uc.Resolver.Resolve(ctx)
		gt.Value(t, res.Source).Equal(usecase.SourceEmpty)
		gt.Array(t, res.Rules).Length(0)
		gt.String(t, scrapeMetrics(t, collector)).Contains(`adsafe_rule_resolution_fallbacks_total{reason="snapshot_error"} 1`)
	})

	t.Run("no snapshot configured yields empty list", func(t *testing.T) {
		uc := usecase.New(memory.New())

		gt.Array(t, uc.Resolver.Rules(ctx)).Length(0)
	})
}

func TestResolver_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("first result is kept even when empty", func(t *testing.T) {
		snap := &snapshotMock{err: goerr.Wrap(model.ErrNotFound, "no snapshot")}
		uc := usecase.New(memory.New(), usecase.WithSnapshot(snap))

		gt.Bool(t, uc.Resolver.Cached()).False()
		gt.Array(t, uc.Resolver.Rules(ctx)).Length(0)
		gt.Bool(t, uc.Resolver.Cached()).True()

		seedLiveRules(t, ctx, uc)

		res := uc.Resolver.Resolve(ctx)
		gt.Value(t, res.Source).Equal(usecase.SourceEmpty)
		gt.Array(t, res.Rules).Length(0)
		gt.Number(t, snap.calls.Load()).Equal(1)

		live, err := uc.Resolver.ResolveLive(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, live).Length(2)
	})

	t.Run("concurrent callers share one computation", func(t *testing.T) {
		snap := &snapshotMock{rules: snapshotRules}
		uc := usecase.New(memory.New(), usecase.WithSnapshot(snap))

		var wg sync.WaitGroup
		results := make([]*usecase.Resolution, 32)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = uc.Resolver.Resolve(ctx)
			}(i)
		}
		wg.Wait()

		gt.Number(t, snap.calls.Load()).Equal(1)
		for _, r := range results {
			gt.Value(t, r).Equal(results[0])
		}
	})
}
