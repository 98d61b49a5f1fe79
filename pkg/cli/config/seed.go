package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/usecase"
)

// SeedFile is the TOML authoring format of taxonomy, versions and rules
//
//	[[taxonomy]]
//	risk_code = "RISK_MEDICAL_EFFICACY"
//	level1 = "의료"
//	risk_level = "high"
//
//	[[version]]
//	name = "v1.0.0"
//	status = "active"
//
//	  [[version.rule]]
//	  risk_code = "RISK_MEDICAL_EFFICACY"
//	  keywords = ["치료", "완치"]
//	  regex = ['\d+% 효과']
type SeedFile struct {
	Taxonomy []SeedTaxonomy `toml:"taxonomy"`
	Versions []SeedVersion  `toml:"version"`
}

type SeedTaxonomy struct {
	RiskCode    string `toml:"risk_code"`
	Level1      string `toml:"level1"`
	Level2      string `toml:"level2"`
	Level3      string `toml:"level3"`
	RiskLevel   string `toml:"risk_level"`
	Description string `toml:"description"`
	IsActive    *bool  `toml:"is_active"`
}

type SeedVersion struct {
	Name      string     `toml:"name"`
	Industry  string     `toml:"industry"`
	Status    string     `toml:"status"`
	Changelog string     `toml:"changelog"`
	Rules     []SeedRule `toml:"rule"`
}

type SeedRule struct {
	RiskCode    string   `toml:"risk_code"`
	RuleName    string   `toml:"rule_name"`
	RuleType    string   `toml:"rule_type"`
	Keywords    []string `toml:"keywords"`
	Regex       []string `toml:"regex"`
	Pattern     string   `toml:"pattern"`
	Severity    string   `toml:"severity"`
	Explanation *string  `toml:"explanation"`
	Suggestion  *string  `toml:"suggestion"`
	IsActive    *bool    `toml:"is_active"`
}

func checkEnum(field, value string, valid bool) error {
	if value == "" || valid {
		return nil
	}
	return goerr.Wrap(ErrInvalidEnum, "unknown value", goerr.V(EnumFieldKey, field), goerr.V(EnumValueKey, value))
}

// Validate checks if the SeedTaxonomy is valid
func (s *SeedTaxonomy) Validate() error {
	code := types.RiskCode(strings.TrimSpace(s.RiskCode))
	if err := code.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidRiskCode, err.Error(), goerr.V(RiskCodeKey, s.RiskCode))
	}
	level := strings.TrimSpace(s.RiskLevel)
	if err := checkEnum("risk_level", level, types.RiskLevel(level).IsValid()); err != nil {
		return goerr.Wrap(err, "invalid taxonomy risk level", goerr.V(RiskCodeKey, s.RiskCode))
	}
	return nil
}

// Validate checks the rule against the risk codes declared in the same file
func (r *SeedRule) Validate(known map[string]bool) error {
	code := strings.TrimSpace(r.RiskCode)
	if err := types.RiskCode(code).Validate(); err != nil {
		return goerr.Wrap(ErrInvalidRiskCode, err.Error(), goerr.V(RiskCodeKey, r.RiskCode))
	}
	if !known[code] {
		return goerr.Wrap(ErrUnknownRiskCode, "declare it in [[taxonomy]]", goerr.V(RiskCodeKey, code))
	}

	ruleType := strings.TrimSpace(r.RuleType)
	if err := checkEnum("rule_type", ruleType, types.RuleType(ruleType).IsValid()); err != nil {
		return err
	}
	severity := strings.TrimSpace(r.Severity)
	if err := checkEnum("severity", severity, types.RiskLevel(severity).IsValid()); err != nil {
		return err
	}

	if len(r.Keywords) == 0 && len(r.Regex) == 0 && strings.TrimSpace(r.Pattern) == "" {
		return goerr.Wrap(ErrEmptyPattern, "rule needs keywords, regex or pattern", goerr.V(RiskCodeKey, code))
	}
	return nil
}

// Validate checks if the SeedVersion is valid
func (v *SeedVersion) Validate(known map[string]bool) error {
	if strings.TrimSpace(v.Name) == "" {
		return goerr.Wrap(ErrMissingName, "version name is required")
	}
	industry := strings.TrimSpace(v.Industry)
	if err := checkEnum("industry", industry, types.Industry(industry).IsValid()); err != nil {
		return goerr.Wrap(err, "invalid version industry", goerr.V(VersionNameKey, v.Name))
	}
	status := strings.TrimSpace(v.Status)
	if err := checkEnum("status", status, types.VersionStatus(status).IsValid()); err != nil {
		return goerr.Wrap(err, "invalid version status", goerr.V(VersionNameKey, v.Name))
	}

	for i := range v.Rules {
		if err := v.Rules[i].Validate(known); err != nil {
			return goerr.Wrap(err, "invalid rule", goerr.V(VersionNameKey, v.Name), goerr.V(RuleIndexKey, i))
		}
	}
	return nil
}

// Validate checks if the SeedFile is valid and referentially consistent
func (s *SeedFile) Validate() error {
	codes := make(map[string]bool)
	for i := range s.Taxonomy {
		t := &s.Taxonomy[i]
		if err := t.Validate(); err != nil {
			return goerr.Wrap(err, "invalid taxonomy entry")
		}
		code := strings.TrimSpace(t.RiskCode)
		if codes[code] {
			return goerr.Wrap(ErrDuplicateRiskCode, "risk code declared twice", goerr.V(RiskCodeKey, code))
		}
		codes[code] = true
	}

	names := make(map[string]bool)
	active := 0
	for i := range s.Versions {
		v := &s.Versions[i]
		if err := v.Validate(codes); err != nil {
			return goerr.Wrap(err, "invalid rule set version")
		}
		name := strings.TrimSpace(v.Name)
		if names[name] {
			return goerr.Wrap(ErrDuplicateVersionName, "version declared twice", goerr.V(VersionNameKey, name))
		}
		names[name] = true
		if types.VersionStatus(strings.TrimSpace(v.Status)) == types.VersionStatusActive {
			active++
		}
	}
	if active > 1 {
		return goerr.Wrap(ErrInvalidSeed, "at most one version may be active", goerr.V("active_versions", active))
	}

	return nil
}

// RuleCount returns the number of rules across every version
func (s *SeedFile) RuleCount() int {
	n := 0
	for _, v := range s.Versions {
		n += len(v.Rules)
	}
	return n
}

// LoadSeed reads, parses and validates a TOML seed file
func LoadSeed(path string) (*SeedFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrSeedNotFound, "seed file does not exist", goerr.V(SeedPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read seed file", goerr.V(SeedPathKey, path))
	}

	var seed SeedFile
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, goerr.Wrap(ErrInvalidSeed, "failed to parse TOML seed", goerr.V(SeedPathKey, path), goerr.V("cause", err.Error()))
	}

	if err := seed.Validate(); err != nil {
		return nil, goerr.Wrap(err, "seed validation failed", goerr.V(SeedPathKey, path))
	}

	return &seed, nil
}

// ToSeed converts the file into the use case input
func (s *SeedFile) ToSeed() *usecase.Seed {
	seed := &usecase.Seed{
		Taxonomy: make([]usecase.TaxonomyInput, len(s.Taxonomy)),
		Versions: make([]usecase.SeedVersion, len(s.Versions)),
	}

	for i, t := range s.Taxonomy {
		seed.Taxonomy[i] = usecase.TaxonomyInput{
			RiskCode:    t.RiskCode,
			Level1:      t.Level1,
			Level2:      t.Level2,
			Level3:      t.Level3,
			RiskLevel:   t.RiskLevel,
			Description: t.Description,
			IsActive:    t.IsActive,
		}
	}

	for i, v := range s.Versions {
		rules := make([]usecase.SeedRule, len(v.Rules))
		for j, r := range v.Rules {
			rules[j] = usecase.SeedRule{
				RiskCode:    r.RiskCode,
				RuleName:    r.RuleName,
				RuleType:    r.RuleType,
				Keywords:    r.Keywords,
				Regex:       r.Regex,
				Pattern:     r.Pattern,
				Severity:    r.Severity,
				Explanation: r.Explanation,
				Suggestion:  r.Suggestion,
				IsActive:    r.IsActive,
			}
		}
		seed.Versions[i] = usecase.SeedVersion{
			VersionInput: usecase.VersionInput{
				Name:      v.Name,
				Industry:  v.Industry,
				Status:    v.Status,
				Changelog: v.Changelog,
			},
			Rules: rules,
		}
	}

	return seed
}
