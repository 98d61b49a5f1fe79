package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// RiskCode identifies a risk taxonomy entry, e.g. RISK_MEDICAL_EFFICACY
type RiskCode string

var riskCodePattern = regexp.MustCompile(`^RISK_[A-Z0-9_]+$`)

// Validate checks if the RiskCode is valid
func (c RiskCode) Validate() error {
	if c == "" {
		return goerr.New("risk code cannot be empty")
	}
	if !riskCodePattern.MatchString(string(c)) {
		return goerr.New("risk code must start with RISK_ and contain only uppercase letters, digits and underscores", goerr.V("risk_code", c))
	}
	return nil
}

// String returns the string representation of RiskCode
func (c RiskCode) String() string {
	return string(c)
}
