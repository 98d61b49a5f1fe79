package interfaces

// Repository defines the interface for data persistence. Implementations
// must keep the referential and single-active-version invariants atomic.
type Repository interface {
	Taxonomy() TaxonomyRepository
	Version() RuleSetVersionRepository
	Rule() RuleRepository

	// Close releases the underlying connection
	Close() error
}
