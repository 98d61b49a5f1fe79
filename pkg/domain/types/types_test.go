package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

func TestRiskCode_Validate(t *testing.T) {
	tests := []struct {
		name    string
		code    types.RiskCode
		wantErr bool
	}{
		{"valid simple", "RISK_MEDICAL", false},
		{"valid with digits", "RISK_AD_01", false},
		{"valid nested", "RISK_MEDICAL_EFFICACY_CLAIM", false},
		{"empty", "", true},
		{"prefix only", "RISK_", true},
		{"missing prefix", "MEDICAL_RISK", true},
		{"lowercase", "RISK_medical", true},
		{"hyphen", "RISK_MEDICAL-CLAIM", true},
		{"space", "RISK_MEDICAL CLAIM", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.code.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("RiskCode.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCoerceEnums(t *testing.T) {
	t.Run("industry", func(t *testing.T) {
		v, coerced := types.CoerceIndustry("health_supplement")
		gt.Value(t, v).Equal(types.IndustryHealthSupplement)
		gt.Bool(t, coerced).False()

		v, coerced = types.CoerceIndustry("automotive")
		gt.Value(t, v).Equal(types.IndustryGeneral)
		gt.Bool(t, coerced).True()
	})

	t.Run("version status", func(t *testing.T) {
		v, coerced := types.CoerceVersionStatus(" inactive ")
		gt.Value(t, v).Equal(types.VersionStatusInactive)
		gt.Bool(t, coerced).False()

		v, coerced = types.CoerceVersionStatus("ACTIVE")
		gt.Value(t, v).Equal(types.VersionStatusDraft)
		gt.Bool(t, coerced).True()

		v, coerced = types.CoerceVersionStatus("")
		gt.Value(t, v).Equal(types.VersionStatusDraft)
		gt.Bool(t, coerced).True()
	})

	t.Run("rule type", func(t *testing.T) {
		v, coerced := types.CoerceRuleType("combo")
		gt.Value(t, v).Equal(types.RuleTypeCombo)
		gt.Bool(t, coerced).False()

		v, coerced = types.CoerceRuleType("semantic")
		gt.Value(t, v).Equal(types.RuleTypeKeyword)
		gt.Bool(t, coerced).True()
	})

	t.Run("risk level", func(t *testing.T) {
		v, coerced := types.CoerceRiskLevel("high", types.DefaultRiskLevel)
		gt.Value(t, v).Equal(types.RiskLevelHigh)
		gt.Bool(t, coerced).False()

		v, coerced = types.CoerceRiskLevel("critical", types.DefaultRiskLevel)
		gt.Value(t, v).Equal(types.RiskLevelMedium)
		gt.Bool(t, coerced).True()
	})
}

func TestParseRiskLevel(t *testing.T) {
	for _, level := range types.AllRiskLevels() {
		got, err := types.ParseRiskLevel(level.String())
		gt.NoError(t, err).Required()
		gt.Value(t, got).Equal(level)
	}

	_, err := types.ParseRiskLevel("severe")
	gt.Value(t, err).NotNil()
}

func TestParseVersionStatus(t *testing.T) {
	statuses := types.AllVersionStatuses()
	gt.Array(t, statuses).Length(4)

	for _, s := range statuses {
		got, err := types.ParseVersionStatus(s.String())
		gt.NoError(t, err).Required()
		gt.Value(t, got).Equal(s)
	}

	_, err := types.ParseVersionStatus("archived")
	gt.Value(t, err).NotNil()
}

func TestVersionStatus_Priority(t *testing.T) {
	gt.Value(t, types.VersionStatusActive.Priority()).Equal(0)
	gt.Value(t, types.VersionStatusDraft.Priority()).Equal(1)
	gt.Value(t, types.VersionStatusInactive.Priority()).Equal(2)
	gt.Value(t, types.VersionStatusDeprecated.Priority()).Equal(2)
}

func TestInferRuleType(t *testing.T) {
	gt.Value(t, types.InferRuleType(2, 0)).Equal(types.RuleTypeKeyword)
	gt.Value(t, types.InferRuleType(0, 1)).Equal(types.RuleTypeRegex)
	gt.Value(t, types.InferRuleType(3, 2)).Equal(types.RuleTypeCombo)
	gt.Value(t, types.InferRuleType(0, 0)).Equal(types.RuleTypeKeyword)
}

func TestAllRuleTypesAndIndustries(t *testing.T) {
	for _, rt := range types.AllRuleTypes() {
		gt.Bool(t, rt.IsValid()).True()
	}
	for _, ind := range types.AllIndustries() {
		gt.Bool(t, ind.IsValid()).True()
	}
	gt.Bool(t, types.RuleType("").IsValid()).False()
	gt.Bool(t, types.Industry("").IsValid()).False()
}
