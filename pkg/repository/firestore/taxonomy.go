package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type taxonomyDocument struct {
	RiskCode         string    `firestore:"risk_code"`
	Level1           string    `firestore:"level1"`
	Level2           string    `firestore:"level2"`
	Level3           string    `firestore:"level3"`
	DefaultRiskLevel string    `firestore:"default_risk_level"`
	Description      string    `firestore:"description"`
	IsActive         bool      `firestore:"is_active"`
	CreatedAt        time.Time `firestore:"created_at"`
	UpdatedAt        time.Time `firestore:"updated_at"`
}

func newTaxonomyDocument(e *model.RiskTaxonomyEntry) *taxonomyDocument {
	return &taxonomyDocument{
		RiskCode:         e.RiskCode.String(),
		Level1:           e.Level1,
		Level2:           e.Level2,
		Level3:           e.Level3,
		DefaultRiskLevel: e.DefaultRiskLevel.String(),
		Description:      e.Description,
		IsActive:         e.IsActive,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func (d *taxonomyDocument) toModel() *model.RiskTaxonomyEntry {
	return &model.RiskTaxonomyEntry{
		RiskCode:         types.RiskCode(d.RiskCode),
		Level1:           d.Level1,
		Level2:           d.Level2,
		Level3:           d.Level3,
		DefaultRiskLevel: types.RiskLevel(d.DefaultRiskLevel),
		Description:      d.Description,
		IsActive:         d.IsActive,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type taxonomyRepository struct {
	client *firestore.Client
	names  collectionNames
}

func (r *taxonomyRepository) doc(code types.RiskCode) *firestore.DocumentRef {
	return r.client.Collection(r.names.taxonomy()).Doc(code.String())
}

func (r *taxonomyRepository) Get(ctx context.Context, code types.RiskCode) (*model.RiskTaxonomyEntry, error) {
	snap, err := r.doc(code).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "taxonomy entry not found", goerr.V(model.RiskCodeKey, code))
		}
		return nil, model.StoreUnavailable(err, "failed to get taxonomy entry", goerr.V(model.RiskCodeKey, code))
	}

	var doc taxonomyDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal taxonomy entry", goerr.V(model.RiskCodeKey, code))
	}
	return doc.toModel(), nil
}

func (r *taxonomyRepository) List(ctx context.Context) ([]*model.RiskTaxonomyEntry, error) {
	entries, err := listTaxonomy(r.client.Collection(r.names.taxonomy()).Documents(ctx))
	if err != nil {
		return nil, err
	}
	model.SortTaxonomy(entries)
	return entries, nil
}

func listTaxonomy(iter *firestore.DocumentIterator) ([]*model.RiskTaxonomyEntry, error) {
	defer iter.Stop()

	entries := []*model.RiskTaxonomyEntry{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, model.StoreUnavailable(err, "failed to iterate taxonomy")
		}

		var doc taxonomyDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal taxonomy entry", goerr.V("docID", snap.Ref.ID))
		}
		entries = append(entries, doc.toModel())
	}
	return entries, nil
}

func (r *taxonomyRepository) Create(ctx context.Context, entry *model.RiskTaxonomyEntry) (*model.RiskTaxonomyEntry, error) {
	now := time.Now().UTC()
	created := entry.Copy()
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.doc(created.RiskCode).Create(ctx, newTaxonomyDocument(created)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(model.ErrDuplicateKey, "risk code already exists", goerr.V(model.RiskCodeKey, created.RiskCode))
		}
		return nil, model.StoreUnavailable(err, "failed to create taxonomy entry", goerr.V(model.RiskCodeKey, created.RiskCode))
	}

	return created, nil
}

func (r *taxonomyRepository) Update(ctx context.Context, code types.RiskCode, update *model.TaxonomyUpdate) (*model.RiskTaxonomyEntry, error) {
	ref := r.doc(code)

	var updated *model.RiskTaxonomyEntry
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "taxonomy entry not found", goerr.V(model.RiskCodeKey, code))
			}
			return goerr.Wrap(err, "failed to get taxonomy entry")
		}

		var doc taxonomyDocument
		if err := snap.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to unmarshal taxonomy entry")
		}

		updated = doc.toModel()
		update.Apply(updated)
		updated.UpdatedAt = time.Now().UTC()

		return tx.Set(ref, newTaxonomyDocument(updated))
	})
	if err != nil {
		return nil, txError(err, "failed to update taxonomy entry", goerr.V(model.RiskCodeKey, code))
	}

	return updated, nil
}

func (r *taxonomyRepository) Delete(ctx context.Context, code types.RiskCode) error {
	ref := r.doc(code)
	referencing := r.client.Collection(r.names.rules()).Where("risk_code", "==", code.String())

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "taxonomy entry not found", goerr.V(model.RiskCodeKey, code))
			}
			return goerr.Wrap(err, "failed to get taxonomy entry")
		}

		rules, err := tx.Documents(referencing).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to count referencing rules")
		}
		if len(rules) > 0 {
			return goerr.Wrap(model.ErrReferentialConflict, "taxonomy entry is referenced by rules",
				goerr.V(model.RiskCodeKey, code), goerr.V(model.RuleCountKey, len(rules)))
		}

		return tx.Delete(ref)
	})
	if err != nil {
		return txError(err, "failed to delete taxonomy entry", goerr.V(model.RiskCodeKey, code))
	}

	return nil
}
