package firestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ruleDocument struct {
	ID                  int64     `firestore:"id"`
	VersionID           int64     `firestore:"version_id"`
	RiskCode            string    `firestore:"risk_code"`
	RuleName            string    `firestore:"rule_name"`
	RuleType            string    `firestore:"rule_type"`
	Pattern             string    `firestore:"pattern"`
	SeverityOverride    *string   `firestore:"severity_override"`
	ExplanationTemplate *string   `firestore:"explanation_template"`
	SuggestionTemplate  *string   `firestore:"suggestion_template"`
	IsActive            bool      `firestore:"is_active"`
	CreatedAt           time.Time `firestore:"created_at"`
}

func newRuleDocument(r *model.Rule) *ruleDocument {
	doc := &ruleDocument{
		ID:                  r.ID,
		VersionID:           r.VersionID,
		RiskCode:            r.RiskCode.String(),
		RuleName:            r.RuleName,
		RuleType:            r.RuleType.String(),
		Pattern:             r.Pattern,
		ExplanationTemplate: r.ExplanationTemplate,
		SuggestionTemplate:  r.SuggestionTemplate,
		IsActive:            r.IsActive,
		CreatedAt:           r.CreatedAt,
	}
	if r.SeverityOverride != nil {
		s := r.SeverityOverride.String()
		doc.SeverityOverride = &s
	}
	return doc
}

func (d *ruleDocument) toModel() *model.Rule {
	rule := &model.Rule{
		ID:                  d.ID,
		VersionID:           d.VersionID,
		RiskCode:            types.RiskCode(d.RiskCode),
		RuleName:            d.RuleName,
		RuleType:            types.RuleType(d.RuleType),
		Pattern:             d.Pattern,
		ExplanationTemplate: d.ExplanationTemplate,
		SuggestionTemplate:  d.SuggestionTemplate,
		IsActive:            d.IsActive,
		CreatedAt:           d.CreatedAt,
	}
	if d.SeverityOverride != nil {
		level := types.RiskLevel(*d.SeverityOverride)
		rule.SeverityOverride = &level
	}
	return rule
}

type ruleRepository struct {
	client *firestore.Client
	names  collectionNames
}

func (r *ruleRepository) doc(id int64) *firestore.DocumentRef {
	return r.client.Collection(r.names.rules()).Doc(fmt.Sprintf("%d", id))
}

func (r *ruleRepository) Get(ctx context.Context, id int64) (*model.Rule, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "rule not found", goerr.V(model.RuleIDKey, id))
		}
		return nil, model.StoreUnavailable(err, "failed to get rule", goerr.V(model.RuleIDKey, id))
	}

	var doc ruleDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal rule", goerr.V(model.RuleIDKey, id))
	}
	return doc.toModel(), nil
}

func (r *ruleRepository) List(ctx context.Context, filter *model.RuleFilter) ([]*model.Rule, error) {
	if filter == nil {
		filter = &model.RuleFilter{}
	}

	query := r.client.Collection(r.names.rules()).Query
	if filter.VersionID != 0 {
		query = query.Where("version_id", "==", filter.VersionID)
	}
	if filter.RiskCode != "" {
		query = query.Where("risk_code", "==", filter.RiskCode.String())
	}
	if filter.ActiveOnly {
		query = query.Where("is_active", "==", true)
	}

	// Severity depends on the joined taxonomy, so the remaining predicates
	// are evaluated in memory.
	var taxonomy map[types.RiskCode]*model.RiskTaxonomyEntry
	if filter.Severity != "" {
		entries, err := listTaxonomy(r.client.Collection(r.names.taxonomy()).Documents(ctx))
		if err != nil {
			return nil, err
		}
		taxonomy = make(map[types.RiskCode]*model.RiskTaxonomyEntry, len(entries))
		for _, e := range entries {
			taxonomy[e.RiskCode] = e
		}
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	rules := []*model.Rule{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, model.StoreUnavailable(err, "failed to iterate rules")
		}

		var doc ruleDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal rule", goerr.V("docID", snap.Ref.ID))
		}

		rule := doc.toModel()
		if filter.Match(rule, taxonomy[rule.RiskCode]) {
			rules = append(rules, rule)
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ID > rules[j].ID
	})
	return rules, nil
}

func (r *ruleRepository) Create(ctx context.Context, rule *model.Rule) (*model.Rule, error) {
	id, err := nextID(ctx, r.client, r.names, "rule_counter")
	if err != nil {
		return nil, err
	}

	created := rule.Copy()
	created.ID = id
	created.CreatedAt = time.Now().UTC()

	taxRef := r.client.Collection(r.names.taxonomy()).Doc(created.RiskCode.String())
	versionRef := r.client.Collection(r.names.versions()).Doc(fmt.Sprintf("%d", created.VersionID))

	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(taxRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrReferentialConflict, "risk code does not exist in taxonomy",
					goerr.V(model.RiskCodeKey, created.RiskCode))
			}
			return goerr.Wrap(err, "failed to get taxonomy entry")
		}
		if _, err := tx.Get(versionRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrReferentialConflict, "rule set version does not exist",
					goerr.V(model.VersionIDKey, created.VersionID))
			}
			return goerr.Wrap(err, "failed to get rule set version")
		}
		return tx.Create(r.doc(id), newRuleDocument(created))
	})
	if err != nil {
		return nil, txError(err, "failed to create rule", goerr.V(model.RuleIDKey, id))
	}

	return created, nil
}

func (r *ruleRepository) Update(ctx context.Context, id int64, update *model.RuleUpdate) (*model.Rule, error) {
	ref := r.doc(id)

	var updated *model.Rule
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "rule not found", goerr.V(model.RuleIDKey, id))
			}
			return goerr.Wrap(err, "failed to get rule")
		}

		var doc ruleDocument
		if err := snap.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to unmarshal rule")
		}

		updated = doc.toModel()
		update.Apply(updated)
		return tx.Set(ref, newRuleDocument(updated))
	})
	if err != nil {
		return nil, txError(err, "failed to update rule", goerr.V(model.RuleIDKey, id))
	}

	return updated, nil
}

func (r *ruleRepository) Delete(ctx context.Context, id int64) error {
	ref := r.doc(id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "rule not found", goerr.V(model.RuleIDKey, id))
			}
			return goerr.Wrap(err, "failed to get rule")
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return txError(err, "failed to delete rule", goerr.V(model.RuleIDKey, id))
	}

	return nil
}
