package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

// Seed is a batch of authored taxonomy entries, versions and rules
type Seed struct {
	Taxonomy []TaxonomyInput
	Versions []SeedVersion
}

// SeedVersion is a version together with the rules it owns
type SeedVersion struct {
	VersionInput
	Rules []SeedRule
}

// SeedRule authors a rule from matcher lists. Pattern is used verbatim when
// Keywords and Regex are both empty.
type SeedRule struct {
	RiskCode    string
	RuleName    string
	RuleType    string
	Keywords    []string
	Regex       []string
	Pattern     string
	Severity    string
	Explanation *string
	Suggestion  *string
	IsActive    *bool
}

// SeedResult counts what a seed run added
type SeedResult struct {
	TaxonomyCreated int
	TaxonomySkipped int
	VersionsCreated int
	VersionsReused  int
	RulesCreated    int
	RulesSkipped    int
}

// name falls back through level3, level2 and the risk code of the taxonomy entry
func (r SeedRule) name(tax *model.RiskTaxonomyEntry) string {
	if name := strings.TrimSpace(r.RuleName); name != "" {
		return name
	}
	if tax != nil {
		if tax.Level3 != "" {
			return tax.Level3
		}
		if tax.Level2 != "" {
			return tax.Level2
		}
	}
	return strings.TrimSpace(r.RiskCode)
}

func (r SeedRule) pattern() string {
	if len(r.Keywords) == 0 && len(r.Regex) == 0 {
		return r.Pattern
	}
	return model.EncodePattern(r.Keywords, r.Regex)
}

func (r SeedRule) ruleType() string {
	if strings.TrimSpace(r.RuleType) != "" {
		return r.RuleType
	}
	p := model.DecodePattern(r.pattern())
	return types.InferRuleType(len(p.Keywords), len(p.Regex)).String()
}

type SeedUseCase struct {
	repo     interfaces.Repository
	taxonomy *TaxonomyUseCase
	version  *VersionUseCase
	rule     *RuleUseCase
}

func NewSeedUseCase(repo interfaces.Repository, taxonomy *TaxonomyUseCase, version *VersionUseCase, rule *RuleUseCase) *SeedUseCase {
	return &SeedUseCase{
		repo:     repo,
		taxonomy: taxonomy,
		version:  version,
		rule:     rule,
	}
}

// Apply loads seed into the store. Existing taxonomy entries are kept,
// versions are matched by name, and a rule is skipped when its version
// already holds a rule for the same risk code, so re-running is harmless.
func (uc *SeedUseCase) Apply(ctx context.Context, seed *Seed) (*SeedResult, error) {
	logger := logging.From(ctx)
	result := &SeedResult{}

	for _, input := range seed.Taxonomy {
		_, err := uc.taxonomy.Create(ctx, input)
		switch {
		case err == nil:
			result.TaxonomyCreated++
		case errors.Is(err, model.ErrDuplicateKey):
			result.TaxonomySkipped++
		default:
			return result, goerr.Wrap(err, "failed to seed taxonomy entry", goerr.V(model.RiskCodeKey, input.RiskCode))
		}
	}

	taxonomy, err := uc.rule.taxonomyIndex(ctx)
	if err != nil {
		return result, err
	}

	existing, err := uc.version.List(ctx)
	if err != nil {
		return result, err
	}
	byName := make(map[string]*model.RuleSetVersion, len(existing))
	for _, v := range existing {
		byName[v.Name] = v
	}

	for _, sv := range seed.Versions {
		name := strings.TrimSpace(sv.Name)
		version, ok := byName[name]
		if ok {
			result.VersionsReused++
		} else {
			version, err = uc.version.Create(ctx, sv.VersionInput)
			if err != nil {
				return result, goerr.Wrap(err, "failed to seed rule set version", goerr.V("name", name))
			}
			byName[version.Name] = version
			result.VersionsCreated++
		}

		rules, err := uc.repo.Rule().List(ctx, &model.RuleFilter{VersionID: version.ID})
		if err != nil {
			return result, goerr.Wrap(err, "failed to list rules of version", goerr.V(model.VersionIDKey, version.ID))
		}
		seeded := make(map[types.RiskCode]bool, len(rules))
		for _, r := range rules {
			seeded[r.RiskCode] = true
		}

		for _, sr := range sv.Rules {
			code := types.RiskCode(strings.TrimSpace(sr.RiskCode))
			if seeded[code] {
				result.RulesSkipped++
				continue
			}

			_, err := uc.rule.Create(ctx, RuleInput{
				VersionID:   version.ID,
				RiskCode:    sr.RiskCode,
				RuleName:    sr.name(taxonomy[code]),
				RuleType:    sr.ruleType(),
				Pattern:     sr.pattern(),
				Severity:    sr.Severity,
				Explanation: sr.Explanation,
				Suggestion:  sr.Suggestion,
				IsActive:    sr.IsActive,
			})
			if err != nil {
				return result, goerr.Wrap(err, "failed to seed rule",
					goerr.V(model.VersionIDKey, version.ID), goerr.V(model.RiskCodeKey, code))
			}
			seeded[code] = true
			result.RulesCreated++
		}
	}

	logger.Info("seed applied",
		"taxonomy_created", result.TaxonomyCreated,
		"taxonomy_skipped", result.TaxonomySkipped,
		"versions_created", result.VersionsCreated,
		"versions_reused", result.VersionsReused,
		"rules_created", result.RulesCreated,
		"rules_skipped", result.RulesSkipped,
	)
	return result, nil
}
