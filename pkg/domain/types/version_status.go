package types

import "fmt"

// VersionStatus represents the lifecycle state of a rule set version
type VersionStatus string

const (
	VersionStatusDraft      VersionStatus = "draft"
	VersionStatusActive     VersionStatus = "active"
	VersionStatusInactive   VersionStatus = "inactive"
	VersionStatusDeprecated VersionStatus = "deprecated"
)

// AllVersionStatuses returns all valid version statuses
func AllVersionStatuses() []VersionStatus {
	return []VersionStatus{
		VersionStatusDraft,
		VersionStatusActive,
		VersionStatusInactive,
		VersionStatusDeprecated,
	}
}

// IsValid checks if the version status is valid
func (s VersionStatus) IsValid() bool {
	switch s {
	case VersionStatusDraft,
		VersionStatusActive,
		VersionStatusInactive,
		VersionStatusDeprecated:
		return true
	default:
		return false
	}
}

// Priority is the listing rank of a status: active first, then draft, then the rest
func (s VersionStatus) Priority() int {
	switch s {
	case VersionStatusActive:
		return 0
	case VersionStatusDraft:
		return 1
	default:
		return 2
	}
}

// String returns the string representation of the version status
func (s VersionStatus) String() string {
	return string(s)
}

// ParseVersionStatus parses a string into a VersionStatus
func ParseVersionStatus(s string) (VersionStatus, error) {
	status := VersionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid version status: %s", s)
	}
	return status, nil
}

// CoerceVersionStatus parses s, falling back to VersionStatusDraft for unknown values
func CoerceVersionStatus(s string) (VersionStatus, bool) {
	return coerce(s, VersionStatusDraft)
}
