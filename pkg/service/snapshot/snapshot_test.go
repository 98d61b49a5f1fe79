package snapshot_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/service/snapshot"
)

func sampleRules() []model.DecodedRule {
	return []model.DecodedRule{
		{
			RiskCode:    "RISK_MED_CURE",
			Level1:      "医療",
			Level2:      "効能",
			Level3:      "治癒",
			RiskLevel:   types.RiskLevelHigh,
			Keywords:    []string{"治る", "完治"},
			Regex:       []string{"必ず.*治"},
			Explanation: "cure claims",
			Suggestion:  "",
		},
		{
			RiskCode:  "RISK_GEN_BEST",
			Level1:    "一般",
			RiskLevel: types.RiskLevelLow,
			Keywords:  []string{"最高"},
			Regex:     []string{},
		},
	}
}

func TestFormatFromPath(t *testing.T) {
	gt.Value(t, snapshot.FormatFromPath("rules.json")).Equal(snapshot.FormatJSON)
	gt.Value(t, snapshot.FormatFromPath("rules.YAML")).Equal(snapshot.FormatYAML)
	gt.Value(t, snapshot.FormatFromPath("gs://bucket/dir/rules.yml")).Equal(snapshot.FormatYAML)
	gt.Value(t, snapshot.FormatFromPath("rules")).Equal(snapshot.FormatJSON)
}

func TestFileRoundTrip(t *testing.T) {
	for _, name := range []string{"rules.json", "rules.yaml"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "nested", name)

			store, err := snapshot.New(ctx, path)
			gt.NoError(t, err).Required()
			t.Cleanup(func() { _ = store.Close() })

			gt.NoError(t, store.Write(ctx, sampleRules())).Required()

			got, err := store.Read(ctx)
			gt.NoError(t, err).Required()
			gt.Array(t, got).Length(2).Required()
			gt.Value(t, got[0]).Equal(sampleRules()[0])
			gt.Value(t, got[1].RiskCode).Equal(types.RiskCode("RISK_GEN_BEST"))
			gt.Array(t, got[1].Regex).Length(0)
		})
	}
}

func TestReadPreservesFileOrder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rules.json")
	data := `[
		{"riskCode":"RISK_C","level1":"c","riskLevel":"low","keywords":["c"],"regex":[]},
		{"riskCode":"RISK_A","level1":"a","riskLevel":"high","keywords":["a"]},
		{"riskCode":"RISK_B","level1":"b","riskLevel":"medium","regex":["b+"]}
	]`
	gt.NoError(t, os.WriteFile(path, []byte(data), 0o600)).Required()

	store, err := snapshot.New(ctx, path)
	gt.NoError(t, err).Required()

	got, err := store.Read(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, got).Length(3).Required()
	gt.Value(t, got[0].RiskCode).Equal(types.RiskCode("RISK_C"))
	gt.Value(t, got[1].RiskCode).Equal(types.RiskCode("RISK_A"))
	gt.Value(t, got[2].RiskCode).Equal(types.RiskCode("RISK_B"))
	if got[1].Regex == nil || got[2].Keywords == nil {
		t.Error("missing lists must decode as empty, not nil")
	}
	gt.Array(t, got[1].Regex).Length(0)
	gt.Array(t, got[2].Keywords).Length(0)
}

func TestReadMissingFile(t *testing.T) {
	ctx := context.Background()
	store, err := snapshot.New(ctx, filepath.Join(t.TempDir(), "absent.json"))
	gt.NoError(t, err).Required()

	_, err = store.Read(ctx)
	gt.Error(t, err).Is(model.ErrNotFound)
}

func TestReadMalformed(t *testing.T) {
	testCases := map[string]string{
		"not json":    "{{{",
		"object":      `{"riskCode":"RISK_A"}`,
		"null":        "null",
		"yaml scalar": "just text",
	}

	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ext := ".json"
			if name == "yaml scalar" {
				ext = ".yaml"
			}
			path := filepath.Join(t.TempDir(), "rules"+ext)
			gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()

			store, err := snapshot.New(ctx, path)
			gt.NoError(t, err).Required()

			_, err = store.Read(ctx)
			gt.Value(t, err).NotNil()
		})
	}
}

func TestNewRejectsInvalidLocation(t *testing.T) {
	ctx := context.Background()

	_, err := snapshot.New(ctx, "")
	gt.Error(t, err).Is(model.ErrValidation)

	_, err = snapshot.New(ctx, "gs://bucket-only")
	gt.Error(t, err).Is(model.ErrValidation)
}

func TestGCSRoundTrip(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET not set")
	}

	ctx := context.Background()
	location := fmt.Sprintf("gs://%s/test/%d/rules.json", bucket, time.Now().UnixNano())

	store, err := snapshot.New(ctx, location)
	gt.NoError(t, err).Required()
	t.Cleanup(func() { _ = store.Close() })

	gt.NoError(t, store.Write(ctx, sampleRules())).Required()

	got, err := store.Read(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, got).Length(2)
}
