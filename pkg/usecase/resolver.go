package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/utils/cache"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"github.com/secmon-lab/adsafe/pkg/utils/metrics"
)

// Source tells which stage of the fallback chain produced a resolution
type Source string

const (
	SourceLive     Source = "live"
	SourceSnapshot Source = "snapshot"
	SourceEmpty    Source = "empty"
)

// Resolution is the effective rule set with its provenance
type Resolution struct {
	Rules      []model.DecodedRule
	Source     Source
	ResolvedAt time.Time
}

// ResolverUseCase produces the effective rule set through the chain
// live store -> snapshot -> empty. The first result is kept for the
// lifetime of the resolver; later changes to the store are not observed.
type ResolverUseCase struct {
	repo     interfaces.Repository
	snapshot interfaces.SnapshotReader
	metrics  *metrics.Collector
	timeout  time.Duration
	cache    *cache.Once[*Resolution]
}

func NewResolverUseCase(repo interfaces.Repository, snapshot interfaces.SnapshotReader, collector *metrics.Collector, timeout time.Duration) *ResolverUseCase {
	return &ResolverUseCase{
		repo:     repo,
		snapshot: snapshot,
		metrics:  collector,
		timeout:  timeout,
		cache:    &cache.Once[*Resolution]{},
	}
}

// Resolve returns the cached resolution, computing it on first use. It never
// fails. Cancellation of ctx does not abort the shared computation.
func (uc *ResolverUseCase) Resolve(ctx context.Context) *Resolution {
	return uc.cache.Do(func() *Resolution {
		return uc.compute(context.WithoutCancel(ctx))
	})
}

// Rules returns the effective rule list; it is never nil
func (uc *ResolverUseCase) Rules(ctx context.Context) []model.DecodedRule {
	return uc.Resolve(ctx).Rules
}

// Cached reports whether a resolution has been computed
func (uc *ResolverUseCase) Cached() bool {
	return uc.cache.Loaded()
}

func (uc *ResolverUseCase) compute(ctx context.Context) *Resolution {
	started := time.Now()
	logger := logging.From(ctx)

	res := &Resolution{Source: SourceEmpty, Rules: []model.DecodedRule{}}

	live, err := uc.resolveLive(ctx)
	switch {
	case err != nil:
		logger.Warn("live rule resolution failed, falling back to snapshot", "error", err)
		uc.metrics.RecordFallback("live_error")
	case len(live) == 0:
		logger.Info("live store produced no rules, falling back to snapshot")
		uc.metrics.RecordFallback("live_empty")
	default:
		res.Rules = live
		res.Source = SourceLive
	}

	if res.Source != SourceLive {
		if rules, ok := uc.readSnapshot(ctx); ok {
			res.Rules = rules
			res.Source = SourceSnapshot
		}
	}

	res.ResolvedAt = time.Now().UTC()
	uc.metrics.RecordResolution(string(res.Source), len(res.Rules), time.Since(started))
	logger.Info("rule set resolved", "source", res.Source, "rules", len(res.Rules))
	return res
}

func (uc *ResolverUseCase) readSnapshot(ctx context.Context) ([]model.DecodedRule, bool) {
	logger := logging.From(ctx)

	if uc.snapshot == nil {
		uc.metrics.RecordFallback("snapshot_missing")
		return nil, false
	}

	rules, err := uc.snapshot.Read(ctx)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("rule snapshot not found", "error", err)
			uc.metrics.RecordFallback("snapshot_missing")
		} else {
			logger.Warn("rule snapshot unreadable", "error", err)
			uc.metrics.RecordFallback("snapshot_error")
		}
		return nil, false
	}
	if rules == nil {
		rules = []model.DecodedRule{}
	}
	return rules, true
}

// ResolveLive reads the active version's rules directly from the store,
// bypassing the cache and the snapshot. It returns an empty list when no
// version is active.
func (uc *ResolverUseCase) ResolveLive(ctx context.Context) ([]model.DecodedRule, error) {
	return uc.resolveLive(ctx)
}

func (uc *ResolverUseCase) resolveLive(ctx context.Context) ([]model.DecodedRule, error) {
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	active, err := uc.repo.Version().GetActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get active rule set version")
	}
	if active == nil {
		return []model.DecodedRule{}, nil
	}

	rules, err := uc.repo.Rule().List(ctx, &model.RuleFilter{VersionID: active.ID, ActiveOnly: true})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list active rules", goerr.V(model.VersionIDKey, active.ID))
	}

	entries, err := uc.repo.Taxonomy().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list taxonomy")
	}
	taxonomy := make(map[types.RiskCode]*model.RiskTaxonomyEntry, len(entries))
	for _, e := range entries {
		taxonomy[e.RiskCode] = e
	}

	// oldest rule first, matching authoring order
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ID < rules[j].ID
	})

	decoded := make([]model.DecodedRule, 0, len(rules))
	for _, r := range rules {
		decoded = append(decoded, r.Decode(taxonomy[r.RiskCode]))
	}
	return decoded, nil
}
