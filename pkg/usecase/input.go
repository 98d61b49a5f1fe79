package usecase

import "strings"

// TaxonomyInput is the payload of a taxonomy creation. Enum fields are raw
// strings so that invalid values can be coerced to their defaults.
type TaxonomyInput struct {
	RiskCode    string
	Level1      string
	Level2      string
	Level3      string
	RiskLevel   string
	Description string
	IsActive    *bool
}

// TaxonomyPatch is a partial taxonomy update. Nil fields are untouched.
type TaxonomyPatch struct {
	Level1      *string
	Level2      *string
	Level3      *string
	RiskLevel   *string
	Description *string
	IsActive    *bool
}

// VersionInput is the payload of a rule set version creation
type VersionInput struct {
	Name      string
	Industry  string
	Status    string
	Changelog string
}

// RuleInput is the payload of a rule creation. A zero VersionID attaches the
// rule to the active version, creating a default one when none exists.
type RuleInput struct {
	VersionID   int64
	RiskCode    string
	RuleName    string
	RuleType    string
	Pattern     string
	Severity    string
	Explanation *string
	Suggestion  *string
	IsActive    *bool
}

// RulePatch is a partial rule update. Nil fields are untouched.
type RulePatch struct {
	RuleName    *string
	RuleType    *string
	Pattern     *string
	Severity    *string
	Explanation *string
	Suggestion  *string
	IsActive    *bool
}

// RuleQuery narrows a rule listing. Empty fields do not filter.
type RuleQuery struct {
	VersionID int64
	RiskCode  string
	RuleType  string
	Severity  string
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// optionalText trims s and treats blank text as absent
func optionalText(s *string) *string {
	v := trimmed(s)
	if v == nil || *v == "" {
		return nil
	}
	return v
}
