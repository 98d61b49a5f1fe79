package model

import (
	"time"

	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

// Rule is a single detection rule owned by a rule set version and linked to a taxonomy entry.
// Nil optional fields inherit from the taxonomy entry when resolved.
type Rule struct {
	ID                  int64
	VersionID           int64
	RiskCode            types.RiskCode
	RuleName            string
	RuleType            types.RuleType
	Pattern             string
	SeverityOverride    *types.RiskLevel
	ExplanationTemplate *string
	SuggestionTemplate  *string
	IsActive            bool
	CreatedAt           time.Time
}

// Copy returns a deep copy of the rule
func (r *Rule) Copy() *Rule {
	copied := *r
	if r.SeverityOverride != nil {
		v := *r.SeverityOverride
		copied.SeverityOverride = &v
	}
	if r.ExplanationTemplate != nil {
		v := *r.ExplanationTemplate
		copied.ExplanationTemplate = &v
	}
	if r.SuggestionTemplate != nil {
		v := *r.SuggestionTemplate
		copied.SuggestionTemplate = &v
	}
	return &copied
}

// EffectiveSeverity resolves override -> taxonomy default -> medium. tax may be nil.
func (r *Rule) EffectiveSeverity(tax *RiskTaxonomyEntry) types.RiskLevel {
	if r.SeverityOverride != nil {
		return *r.SeverityOverride
	}
	if tax != nil && tax.DefaultRiskLevel != "" {
		return tax.DefaultRiskLevel
	}
	return types.DefaultRiskLevel
}

// EffectiveExplanation resolves template -> taxonomy description -> "". tax may be nil.
func (r *Rule) EffectiveExplanation(tax *RiskTaxonomyEntry) string {
	if r.ExplanationTemplate != nil {
		return *r.ExplanationTemplate
	}
	if tax != nil {
		return tax.Description
	}
	return ""
}

// EffectiveSuggestion resolves template -> ""
func (r *Rule) EffectiveSuggestion() string {
	if r.SuggestionTemplate != nil {
		return *r.SuggestionTemplate
	}
	return ""
}

// Decode produces the resolved form of the rule. tax is the linked taxonomy
// entry, or nil when the link is missing.
func (r *Rule) Decode(tax *RiskTaxonomyEntry) DecodedRule {
	pattern := DecodePattern(r.Pattern)
	decoded := DecodedRule{
		RiskCode:    r.RiskCode,
		RiskLevel:   r.EffectiveSeverity(tax),
		Keywords:    pattern.Keywords,
		Regex:       pattern.Regex,
		Explanation: r.EffectiveExplanation(tax),
		Suggestion:  r.EffectiveSuggestion(),
	}
	if tax != nil {
		decoded.Level1 = tax.Level1
		decoded.Level2 = tax.Level2
		decoded.Level3 = tax.Level3
	}
	return decoded
}

// RuleUpdate holds the fields of a partial rule update. Nil fields are left
// untouched. A blank template clears the override so the taxonomy text applies again.
type RuleUpdate struct {
	RuleName            *string
	RuleType            *types.RuleType
	Pattern             *string
	SeverityOverride    *types.RiskLevel
	ExplanationTemplate *string
	SuggestionTemplate  *string
	IsActive            *bool
}

// IsEmpty reports whether the update changes nothing
func (u *RuleUpdate) IsEmpty() bool {
	return u.RuleName == nil && u.RuleType == nil && u.Pattern == nil &&
		u.SeverityOverride == nil && u.ExplanationTemplate == nil &&
		u.SuggestionTemplate == nil && u.IsActive == nil
}

// Apply writes the non-nil fields of u into r
func (u *RuleUpdate) Apply(r *Rule) {
	if u.RuleName != nil {
		r.RuleName = *u.RuleName
	}
	if u.RuleType != nil {
		r.RuleType = *u.RuleType
	}
	if u.Pattern != nil {
		r.Pattern = *u.Pattern
	}
	if u.SeverityOverride != nil {
		v := *u.SeverityOverride
		r.SeverityOverride = &v
	}
	if u.ExplanationTemplate != nil {
		r.ExplanationTemplate = templateOrNil(*u.ExplanationTemplate)
	}
	if u.SuggestionTemplate != nil {
		r.SuggestionTemplate = templateOrNil(*u.SuggestionTemplate)
	}
	if u.IsActive != nil {
		r.IsActive = *u.IsActive
	}
}

func templateOrNil(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// RuleFilter narrows a rule listing. Zero-valued fields do not filter.
// Severity is matched against the effective severity.
type RuleFilter struct {
	VersionID  int64
	RiskCode   types.RiskCode
	RuleType   types.RuleType
	Severity   types.RiskLevel
	ActiveOnly bool
}

// Match reports whether r passes the filter. tax is the linked taxonomy entry or nil.
func (f *RuleFilter) Match(r *Rule, tax *RiskTaxonomyEntry) bool {
	if f.VersionID != 0 && r.VersionID != f.VersionID {
		return false
	}
	if f.RiskCode != "" && r.RiskCode != f.RiskCode {
		return false
	}
	if f.RuleType != "" && r.RuleType != f.RuleType {
		return false
	}
	if f.ActiveOnly && !r.IsActive {
		return false
	}
	if f.Severity != "" {
		if r.SeverityOverride != nil {
			return *r.SeverityOverride == f.Severity
		}
		return tax != nil && tax.DefaultRiskLevel == f.Severity
	}
	return true
}

// RuleView is a rule joined with its taxonomy classification, as returned by rule listings.
type RuleView struct {
	*Rule
	Level1            string
	Level2            string
	Level3            string
	EffectiveSeverity types.RiskLevel
}

// NewRuleView joins r with tax (which may be nil)
func NewRuleView(r *Rule, tax *RiskTaxonomyEntry) *RuleView {
	view := &RuleView{
		Rule:              r,
		EffectiveSeverity: r.EffectiveSeverity(tax),
	}
	if tax != nil {
		view.Level1 = tax.Level1
		view.Level2 = tax.Level2
		view.Level3 = tax.Level3
	}
	return view
}
