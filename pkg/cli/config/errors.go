package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrSeedNotFound         = goerr.New("seed file not found")
	ErrInvalidSeed          = goerr.New("invalid seed file")
	ErrInvalidRiskCode      = goerr.New("invalid risk code format")
	ErrDuplicateRiskCode    = goerr.New("duplicate risk code")
	ErrDuplicateVersionName = goerr.New("duplicate version name")
	ErrUnknownRiskCode      = goerr.New("rule references a risk code missing from taxonomy")
	ErrInvalidEnum          = goerr.New("invalid enum value")
	ErrMissingName          = goerr.New("name is required")
	ErrEmptyPattern         = goerr.New("rule has no pattern")
	ErrInvalidBackend       = goerr.New("invalid repository backend")
)

// Context keys for error values
const (
	SeedPathKey    = "seed_path"
	RiskCodeKey    = "risk_code"
	VersionNameKey = "version_name"
	RuleIndexKey   = "rule_index"
	EnumFieldKey   = "enum_field"
	EnumValueKey   = "enum_value"
	BackendKey     = "backend"
)
