package model

import (
	"sort"
	"time"

	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

// RiskTaxonomyEntry is a classification node referenced by rules. Its
// DefaultRiskLevel and Description are inherited by rules that do not
// override them.
type RiskTaxonomyEntry struct {
	RiskCode         types.RiskCode
	Level1           string
	Level2           string
	Level3           string
	DefaultRiskLevel types.RiskLevel
	Description      string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Copy returns a deep copy of the entry
func (e *RiskTaxonomyEntry) Copy() *RiskTaxonomyEntry {
	copied := *e
	return &copied
}

// TaxonomyUpdate holds the fields of a partial taxonomy update. Nil fields are left untouched.
type TaxonomyUpdate struct {
	Level1           *string
	Level2           *string
	Level3           *string
	DefaultRiskLevel *types.RiskLevel
	Description      *string
	IsActive         *bool
}

// IsEmpty reports whether the update changes nothing
func (u *TaxonomyUpdate) IsEmpty() bool {
	return u.Level1 == nil && u.Level2 == nil && u.Level3 == nil &&
		u.DefaultRiskLevel == nil && u.Description == nil && u.IsActive == nil
}

// Apply writes the non-nil fields of u into e
func (u *TaxonomyUpdate) Apply(e *RiskTaxonomyEntry) {
	if u.Level1 != nil {
		e.Level1 = *u.Level1
	}
	if u.Level2 != nil {
		e.Level2 = *u.Level2
	}
	if u.Level3 != nil {
		e.Level3 = *u.Level3
	}
	if u.DefaultRiskLevel != nil {
		e.DefaultRiskLevel = *u.DefaultRiskLevel
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.IsActive != nil {
		e.IsActive = *u.IsActive
	}
}

// SortTaxonomy orders entries by (level1, level2, level3), using the risk code as tie-breaker.
func SortTaxonomy(entries []*RiskTaxonomyEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Level1 != b.Level1 {
			return a.Level1 < b.Level1
		}
		if a.Level2 != b.Level2 {
			return a.Level2 < b.Level2
		}
		if a.Level3 != b.Level3 {
			return a.Level3 < b.Level3
		}
		return a.RiskCode < b.RiskCode
	})
}
