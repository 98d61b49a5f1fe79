package model

import (
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

// DefaultVersionName is the name of the version created implicitly when a
// rule is added while no version exists.
const DefaultVersionName = "v1.0.0"

// RuleSetVersion is a named, status-governed collection of rules.
// ActivatedAt is non-nil only while Status is active.
type RuleSetVersion struct {
	ID          int64
	Name        string
	Industry    types.Industry
	Status      types.VersionStatus
	Changelog   string
	CreatedAt   time.Time
	ActivatedAt *time.Time
}

// Copy returns a deep copy of the version
func (v *RuleSetVersion) Copy() *RuleSetVersion {
	copied := *v
	if v.ActivatedAt != nil {
		at := *v.ActivatedAt
		copied.ActivatedAt = &at
	}
	return &copied
}

// IsActive reports whether the version is the active one
func (v *RuleSetVersion) IsActive() bool {
	return v.Status == types.VersionStatusActive
}

// CheckActivate returns ErrInvalidTransition if the version is already active
func (v *RuleSetVersion) CheckActivate() error {
	if v.IsActive() {
		return goerr.Wrap(ErrInvalidTransition, "version is already active",
			goerr.V(VersionIDKey, v.ID), goerr.V(StatusKey, v.Status))
	}
	return nil
}

// CheckDeactivate returns ErrInvalidTransition unless the version is active
func (v *RuleSetVersion) CheckDeactivate() error {
	if !v.IsActive() {
		return goerr.Wrap(ErrInvalidTransition, "version is not active",
			goerr.V(VersionIDKey, v.ID), goerr.V(StatusKey, v.Status))
	}
	return nil
}

// CheckDelete returns ErrInvalidTransition for an active version; it must be deactivated first
func (v *RuleSetVersion) CheckDelete() error {
	if v.IsActive() {
		return goerr.Wrap(ErrInvalidTransition, "active version cannot be deleted, deactivate it first",
			goerr.V(VersionIDKey, v.ID))
	}
	return nil
}

// MarkActive sets the active status and activation time
func (v *RuleSetVersion) MarkActive(at time.Time) {
	v.Status = types.VersionStatusActive
	v.ActivatedAt = &at
}

// MarkInactive sets the inactive status and clears the activation time
func (v *RuleSetVersion) MarkInactive() {
	v.Status = types.VersionStatusInactive
	v.ActivatedAt = nil
}

// SortVersions orders versions by status priority (active, draft, others)
// and by creation time descending within a group.
func SortVersions(versions []*RuleSetVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if pa, pb := a.Status.Priority(), b.Status.Priority(); pa != pb {
			return pa < pb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
