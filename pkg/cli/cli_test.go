package cli_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/cli"
	"github.com/secmon-lab/adsafe/pkg/cli/config"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
)

const seedContent = `
[[taxonomy]]
risk_code = "RISK_MEDICAL_EFFICACY"
level1 = "의료"
level2 = "효능"
level3 = "질병 치료"
risk_level = "high"

[[taxonomy]]
risk_code = "RISK_PRICE"
level1 = "가격"
risk_level = "low"

[[version]]
name = "v1.0.0"
industry = "medical"
status = "active"

  [[version.rule]]
  risk_code = "RISK_MEDICAL_EFFICACY"
  keywords = ["치료", "완치"]
  regex = ['\d+% 효과']

  [[version.rule]]
  risk_code = "RISK_PRICE"
  pattern = "최저가"
  is_active = false
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	return cli.Run(context.Background(), append([]string{"adsafe", "--log-level", "error"}, args...), "test")
}

func TestValidateSeed(t *testing.T) {
	t.Run("valid seed passes", func(t *testing.T) {
		path := writeFile(t, "seed.toml", seedContent)
		gt.NoError(t, run(t, "validate", "--seed", path))
	})

	t.Run("missing seed file", func(t *testing.T) {
		err := run(t, "validate", "--seed", filepath.Join(t.TempDir(), "none.toml"))
		gt.Error(t, err)
		if !errors.Is(err, config.ErrSeedNotFound) {
			t.Errorf("expected ErrSeedNotFound, got %v", err)
		}
	})

	t.Run("rule referencing unknown risk code", func(t *testing.T) {
		path := writeFile(t, "seed.toml", `
[[version]]
name = "v1"

  [[version.rule]]
  risk_code = "RISK_UNKNOWN"
  pattern = "x"
`)
		err := run(t, "validate", "--seed", path)
		gt.Error(t, err)
		if !errors.Is(err, config.ErrUnknownRiskCode) {
			t.Errorf("expected ErrUnknownRiskCode, got %v", err)
		}
	})

	t.Run("nothing to validate", func(t *testing.T) {
		gt.Error(t, run(t, "validate"))
	})
}

func TestValidateSnapshot(t *testing.T) {
	t.Run("well-formed snapshot", func(t *testing.T) {
		path := writeFile(t, "rules.json", `[{"riskCode":"RISK_A","level1":"A","level2":"","level3":"","riskLevel":"low","keywords":["a"],"regex":[],"explanation":"","suggestion":""}]`)
		gt.NoError(t, run(t, "validate", "--snapshot", path))
	})

	t.Run("malformed snapshot", func(t *testing.T) {
		path := writeFile(t, "rules.json", `{"rules": "nope"}`)
		gt.Error(t, run(t, "validate", "--snapshot", path))
	})
}

func TestSQLiteSeedAndExport(t *testing.T) {
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "adsafe.db")
	seedPath := writeFile(t, "seed.toml", seedContent)
	snapshotPath := filepath.Join(dir, "rules.json")

	repoArgs := []string{"--repository-backend", "sqlite", "--database-dsn", dsn}

	gt.NoError(t, run(t, append([]string{"migrate"}, repoArgs...)...)).Required()
	gt.NoError(t, run(t, append([]string{"seed", "--file", seedPath}, repoArgs...)...)).Required()

	// a second run must not duplicate anything
	gt.NoError(t, run(t, append([]string{"seed", "--file", seedPath}, repoArgs...)...)).Required()

	gt.NoError(t, run(t, append([]string{"export", "--snapshot", snapshotPath}, repoArgs...)...)).Required()

	data, err := os.ReadFile(snapshotPath)
	gt.NoError(t, err).Required()

	var rules []model.DecodedRule
	gt.NoError(t, json.Unmarshal(data, &rules)).Required()
	gt.Array(t, rules).Length(1).Required()
	gt.Value(t, rules[0].RiskCode).Equal("RISK_MEDICAL_EFFICACY")
	gt.Value(t, rules[0].RiskLevel).Equal("high")
	gt.Array(t, rules[0].Keywords).Equal([]string{"치료", "완치"})
	gt.Array(t, rules[0].Regex).Equal([]string{`\d+% 효과`})

	gt.NoError(t, run(t, "validate", "--snapshot", snapshotPath))
}

func TestExportRequiresActiveRules(t *testing.T) {
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "adsafe.db")
	repoArgs := []string{"--repository-backend", "sqlite", "--database-dsn", dsn}

	gt.NoError(t, run(t, append([]string{"migrate"}, repoArgs...)...)).Required()

	snapshotPath := filepath.Join(dir, "rules.json")
	gt.Error(t, run(t, append([]string{"export", "--snapshot", snapshotPath}, repoArgs...)...))

	if _, err := os.Stat(snapshotPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("snapshot must not be written, stat err=%v", err)
	}
}

func TestExportRequiresSnapshotLocation(t *testing.T) {
	gt.Error(t, run(t, "export"))
}

func TestUnsupportedBackend(t *testing.T) {
	err := run(t, "migrate", "--repository-backend", "mysql")
	gt.Error(t, err)
	if !errors.Is(err, config.ErrInvalidBackend) {
		t.Errorf("expected ErrInvalidBackend, got %v", err)
	}
}
