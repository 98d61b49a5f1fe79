package types

// Industry is the business domain a rule set version targets
type Industry string

const (
	IndustryMedical          Industry = "medical"
	IndustryHealthSupplement Industry = "health_supplement"
	IndustryGeneral          Industry = "general"
	IndustryOther            Industry = "other"
)

// AllIndustries returns all valid industries
func AllIndustries() []Industry {
	return []Industry{
		IndustryMedical,
		IndustryHealthSupplement,
		IndustryGeneral,
		IndustryOther,
	}
}

// IsValid checks if the industry is valid
func (i Industry) IsValid() bool {
	switch i {
	case IndustryMedical,
		IndustryHealthSupplement,
		IndustryGeneral,
		IndustryOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the industry
func (i Industry) String() string {
	return string(i)
}

// CoerceIndustry parses s, falling back to IndustryGeneral for unknown values
func CoerceIndustry(s string) (Industry, bool) {
	return coerce(s, IndustryGeneral)
}
