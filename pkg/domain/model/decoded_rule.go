package model

import "github.com/secmon-lab/adsafe/pkg/domain/types"

// DecodedRule is a fully resolved rule as consumed by the inspection engine.
// It is also the record shape of the static snapshot artifact.
type DecodedRule struct {
	RiskCode    types.RiskCode  `json:"riskCode" yaml:"riskCode"`
	Level1      string          `json:"level1" yaml:"level1"`
	Level2      string          `json:"level2" yaml:"level2"`
	Level3      string          `json:"level3" yaml:"level3"`
	RiskLevel   types.RiskLevel `json:"riskLevel" yaml:"riskLevel"`
	Keywords    []string        `json:"keywords" yaml:"keywords"`
	Regex       []string        `json:"regex" yaml:"regex"`
	Explanation string          `json:"explanation" yaml:"explanation"`
	Suggestion  string          `json:"suggestion" yaml:"suggestion"`
}
