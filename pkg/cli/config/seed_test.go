package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/cli/config"
)

const validSeed = `
[[taxonomy]]
risk_code = "RISK_MEDICAL_EFFICACY"
level1 = "의료"
level2 = "효능"
level3 = "질병 치료"
risk_level = "high"
description = "질병 치료 효능 표방"

[[taxonomy]]
risk_code = "RISK_PRICE"
level1 = "가격"

[[version]]
name = "v1.0.0"
industry = "medical"
status = "active"
changelog = "initial rule set"

  [[version.rule]]
  risk_code = "RISK_MEDICAL_EFFICACY"
  keywords = ["치료", "완치"]
  regex = ['\d+% 효과']
  suggestion = "효능 표현을 삭제하세요"

  [[version.rule]]
  risk_code = "RISK_PRICE"
  pattern = "최저가"
  severity = "low"
  is_active = false
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestLoadSeed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "valid seed",
			content: validSeed,
		},
		{
			name: "malformed risk code",
			content: `
[[taxonomy]]
risk_code = "medical"
`,
			wantErr: config.ErrInvalidRiskCode,
		},
		{
			name: "duplicate risk code",
			content: `
[[taxonomy]]
risk_code = "RISK_A"
[[taxonomy]]
risk_code = "RISK_A"
`,
			wantErr: config.ErrDuplicateRiskCode,
		},
		{
			name: "unknown risk level",
			content: `
[[taxonomy]]
risk_code = "RISK_A"
risk_level = "critical"
`,
			wantErr: config.ErrInvalidEnum,
		},
		{
			name: "rule references undeclared risk code",
			content: `
[[taxonomy]]
risk_code = "RISK_A"
[[version]]
name = "v1"
  [[version.rule]]
  risk_code = "RISK_B"
  keywords = ["x"]
`,
			wantErr: config.ErrUnknownRiskCode,
		},
		{
			name: "rule without pattern",
			content: `
[[taxonomy]]
risk_code = "RISK_A"
[[version]]
name = "v1"
  [[version.rule]]
  risk_code = "RISK_A"
`,
			wantErr: config.ErrEmptyPattern,
		},
		{
			name: "unknown rule type",
			content: `
[[taxonomy]]
risk_code = "RISK_A"
[[version]]
name = "v1"
  [[version.rule]]
  risk_code = "RISK_A"
  rule_type = "fuzzy"
  pattern = "x"
`,
			wantErr: config.ErrInvalidEnum,
		},
		{
			name: "version without name",
			content: `
[[version]]
status = "draft"
`,
			wantErr: config.ErrMissingName,
		},
		{
			name: "duplicate version name",
			content: `
[[version]]
name = "v1"
[[version]]
name = "v1"
`,
			wantErr: config.ErrDuplicateVersionName,
		},
		{
			name: "two active versions",
			content: `
[[version]]
name = "v1"
status = "active"
[[version]]
name = "v2"
status = "active"
`,
			wantErr: config.ErrInvalidSeed,
		},
		{
			name:    "broken TOML",
			content: `[[taxonomy]`,
			wantErr: config.ErrInvalidSeed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := config.LoadSeed(writeSeed(t, tt.content))
			if tt.wantErr != nil {
				gt.Value(t, err).NotNil().Required()
				gt.Bool(t, errors.Is(err, tt.wantErr)).True()
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, seed).NotNil()
		})
	}
}

func TestLoadSeed_NotFound(t *testing.T) {
	_, err := config.LoadSeed(filepath.Join(t.TempDir(), "missing.toml"))
	gt.Bool(t, errors.Is(err, config.ErrSeedNotFound)).True()
}

func TestSeedFile_ToSeed(t *testing.T) {
	file, err := config.LoadSeed(writeSeed(t, validSeed))
	gt.NoError(t, err).Required()
	gt.Number(t, file.RuleCount()).Equal(2)

	seed := file.ToSeed()
	gt.Array(t, seed.Taxonomy).Length(2).Required()
	gt.Value(t, seed.Taxonomy[0].RiskLevel).Equal("high")
	gt.Array(t, seed.Versions).Length(1).Required()

	v := seed.Versions[0]
	gt.Value(t, v.Name).Equal("v1.0.0")
	gt.Value(t, v.Status).Equal("active")
	gt.Array(t, v.Rules).Length(2).Required()
	gt.Value(t, v.Rules[0].Keywords).Equal([]string{"치료", "완치"})
	gt.Value(t, v.Rules[0].Regex).Equal([]string{`\d+% 효과`})
	gt.Value(t, *v.Rules[0].Suggestion).Equal("효능 표현을 삭제하세요")
	gt.Value(t, v.Rules[1].Pattern).Equal("최저가")
	gt.Bool(t, *v.Rules[1].IsActive).False()
}
