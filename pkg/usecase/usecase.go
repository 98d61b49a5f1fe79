package usecase

import (
	"time"

	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/utils/metrics"
)

// DefaultStoreTimeout bounds each live resolution against the store
const DefaultStoreTimeout = 5 * time.Second

type UseCases struct {
	repo         interfaces.Repository
	snapshot     interfaces.SnapshotReader
	metrics      *metrics.Collector
	storeTimeout time.Duration
	now          func() time.Time

	Taxonomy *TaxonomyUseCase
	Version  *VersionUseCase
	Rule     *RuleUseCase
	Resolver *ResolverUseCase
	Seed     *SeedUseCase
}

type Option func(*UseCases)

// WithSnapshot sets the static artifact the resolver falls back to
func WithSnapshot(reader interfaces.SnapshotReader) Option {
	return func(uc *UseCases) {
		uc.snapshot = reader
	}
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(uc *UseCases) {
		uc.metrics = collector
	}
}

// WithStoreTimeout sets the deadline of the resolver's live path. Zero disables it.
func WithStoreTimeout(d time.Duration) Option {
	return func(uc *UseCases) {
		uc.storeTimeout = d
	}
}

// WithClock replaces the time source used for activation timestamps
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:         repo,
		storeTimeout: DefaultStoreTimeout,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Taxonomy = NewTaxonomyUseCase(repo)
	uc.Version = NewVersionUseCase(repo, uc.now)
	uc.Rule = NewRuleUseCase(repo)
	uc.Resolver = NewResolverUseCase(repo, uc.snapshot, uc.metrics, uc.storeTimeout)
	uc.Seed = NewSeedUseCase(repo, uc.Taxonomy, uc.Version, uc.Rule)

	return uc
}
