package types

import "fmt"

// RiskLevel represents the severity assigned to a taxonomy entry or a rule
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// DefaultRiskLevel is used when neither a rule nor its taxonomy entry carries a level
const DefaultRiskLevel = RiskLevelMedium

// AllRiskLevels returns all valid risk levels
func AllRiskLevels() []RiskLevel {
	return []RiskLevel{
		RiskLevelLow,
		RiskLevelMedium,
		RiskLevelHigh,
	}
}

// IsValid checks if the risk level is valid
func (l RiskLevel) IsValid() bool {
	switch l {
	case RiskLevelLow,
		RiskLevelMedium,
		RiskLevelHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk level
func (l RiskLevel) String() string {
	return string(l)
}

// ParseRiskLevel parses a string into a RiskLevel
func ParseRiskLevel(s string) (RiskLevel, error) {
	level := RiskLevel(s)
	if !level.IsValid() {
		return "", fmt.Errorf("invalid risk level: %s", s)
	}
	return level, nil
}

// CoerceRiskLevel returns the parsed level, or fallback with coerced=true when s is not a valid level
func CoerceRiskLevel(s string, fallback RiskLevel) (level RiskLevel, coerced bool) {
	return coerce(s, fallback)
}
