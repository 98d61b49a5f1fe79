package types

// RuleType describes which matcher family a rule pattern carries
type RuleType string

const (
	RuleTypeKeyword RuleType = "keyword"
	RuleTypeRegex   RuleType = "regex"
	RuleTypeNumeric RuleType = "numeric"
	RuleTypeCombo   RuleType = "combo"
)

// AllRuleTypes returns all valid rule types
func AllRuleTypes() []RuleType {
	return []RuleType{
		RuleTypeKeyword,
		RuleTypeRegex,
		RuleTypeNumeric,
		RuleTypeCombo,
	}
}

// IsValid checks if the rule type is valid
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeKeyword,
		RuleTypeRegex,
		RuleTypeNumeric,
		RuleTypeCombo:
		return true
	default:
		return false
	}
}

// String returns the string representation of the rule type
func (t RuleType) String() string {
	return string(t)
}

// CoerceRuleType parses s, falling back to RuleTypeKeyword for unknown values
func CoerceRuleType(s string) (RuleType, bool) {
	return coerce(s, RuleTypeKeyword)
}

// InferRuleType picks keyword, regex or combo from which matcher lists are populated
func InferRuleType(keywordCount, regexCount int) RuleType {
	switch {
	case keywordCount > 0 && regexCount > 0:
		return RuleTypeCombo
	case regexCount > 0:
		return RuleTypeRegex
	default:
		return RuleTypeKeyword
	}
}
