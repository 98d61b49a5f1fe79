package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type versionDocument struct {
	ID          int64      `firestore:"id"`
	Name        string     `firestore:"name"`
	Industry    string     `firestore:"industry"`
	Status      string     `firestore:"status"`
	Changelog   string     `firestore:"changelog"`
	CreatedAt   time.Time  `firestore:"created_at"`
	ActivatedAt *time.Time `firestore:"activated_at"`
}

func newVersionDocument(v *model.RuleSetVersion) *versionDocument {
	return &versionDocument{
		ID:          v.ID,
		Name:        v.Name,
		Industry:    v.Industry.String(),
		Status:      v.Status.String(),
		Changelog:   v.Changelog,
		CreatedAt:   v.CreatedAt,
		ActivatedAt: v.ActivatedAt,
	}
}

func (d *versionDocument) toModel() *model.RuleSetVersion {
	return &model.RuleSetVersion{
		ID:          d.ID,
		Name:        d.Name,
		Industry:    types.Industry(d.Industry),
		Status:      types.VersionStatus(d.Status),
		Changelog:   d.Changelog,
		CreatedAt:   d.CreatedAt,
		ActivatedAt: d.ActivatedAt,
	}
}

type versionRepository struct {
	client *firestore.Client
	names  collectionNames
}

func (r *versionRepository) doc(id int64) *firestore.DocumentRef {
	return r.client.Collection(r.names.versions()).Doc(fmt.Sprintf("%d", id))
}

func (r *versionRepository) activeQuery() firestore.Query {
	return r.client.Collection(r.names.versions()).Where("status", "==", types.VersionStatusActive.String())
}

// demoteActive queues updates that move every currently active version to
// inactive. The snapshots must have been read in the same transaction.
func demoteActive(tx *firestore.Transaction, active []*firestore.DocumentSnapshot) error {
	for _, snap := range active {
		if err := tx.Update(snap.Ref, []firestore.Update{
			{Path: "status", Value: types.VersionStatusInactive.String()},
			{Path: "activated_at", Value: nil},
		}); err != nil {
			return goerr.Wrap(err, "failed to demote active version", goerr.V("docID", snap.Ref.ID))
		}
	}
	return nil
}

func (r *versionRepository) Create(ctx context.Context, version *model.RuleSetVersion) (*model.RuleSetVersion, error) {
	id, err := nextID(ctx, r.client, r.names, "rule_set_version_counter")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created := version.Copy()
	created.ID = id
	created.CreatedAt = now
	created.ActivatedAt = nil
	if created.IsActive() {
		created.MarkActive(now)
	}

	ref := r.doc(id)
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if created.IsActive() {
			active, err := tx.Documents(r.activeQuery()).GetAll()
			if err != nil {
				return goerr.Wrap(err, "failed to query active versions")
			}
			if err := demoteActive(tx, active); err != nil {
				return err
			}
		}
		return tx.Create(ref, newVersionDocument(created))
	})
	if err != nil {
		return nil, txError(err, "failed to create rule set version", goerr.V(model.VersionIDKey, id))
	}

	return created, nil
}

func (r *versionRepository) Get(ctx context.Context, id int64) (*model.RuleSetVersion, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "rule set version not found", goerr.V(model.VersionIDKey, id))
		}
		return nil, model.StoreUnavailable(err, "failed to get rule set version", goerr.V(model.VersionIDKey, id))
	}

	var doc versionDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal rule set version", goerr.V(model.VersionIDKey, id))
	}
	return doc.toModel(), nil
}

func (r *versionRepository) GetActive(ctx context.Context) (*model.RuleSetVersion, error) {
	versions, err := r.collect(r.activeQuery().Limit(1).Documents(ctx))
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return versions[0], nil
}

func (r *versionRepository) List(ctx context.Context) ([]*model.RuleSetVersion, error) {
	versions, err := r.collect(r.client.Collection(r.names.versions()).Documents(ctx))
	if err != nil {
		return nil, err
	}
	model.SortVersions(versions)
	return versions, nil
}

func (r *versionRepository) collect(iter *firestore.DocumentIterator) ([]*model.RuleSetVersion, error) {
	defer iter.Stop()

	versions := []*model.RuleSetVersion{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, model.StoreUnavailable(err, "failed to iterate rule set versions")
		}

		var doc versionDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal rule set version", goerr.V("docID", snap.Ref.ID))
		}
		versions = append(versions, doc.toModel())
	}
	return versions, nil
}

// getInTx reads and decodes a version inside a transaction
func (r *versionRepository) getInTx(tx *firestore.Transaction, id int64) (*model.RuleSetVersion, error) {
	snap, err := tx.Get(r.doc(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "rule set version not found", goerr.V(model.VersionIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get rule set version")
	}

	var doc versionDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal rule set version")
	}
	return doc.toModel(), nil
}

func (r *versionRepository) Activate(ctx context.Context, id int64, at time.Time) (*model.RuleSetVersion, error) {
	var activated *model.RuleSetVersion
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		target, err := r.getInTx(tx, id)
		if err != nil {
			return err
		}
		if err := target.CheckActivate(); err != nil {
			return err
		}

		active, err := tx.Documents(r.activeQuery()).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to query active versions")
		}
		if err := demoteActive(tx, active); err != nil {
			return err
		}

		target.MarkActive(at.UTC())
		activated = target
		return tx.Set(r.doc(id), newVersionDocument(target))
	})
	if err != nil {
		return nil, txError(err, "failed to activate rule set version", goerr.V(model.VersionIDKey, id))
	}

	return activated, nil
}

func (r *versionRepository) Deactivate(ctx context.Context, id int64) (*model.RuleSetVersion, error) {
	var deactivated *model.RuleSetVersion
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		target, err := r.getInTx(tx, id)
		if err != nil {
			return err
		}
		if err := target.CheckDeactivate(); err != nil {
			return err
		}

		target.MarkInactive()
		deactivated = target
		return tx.Set(r.doc(id), newVersionDocument(target))
	})
	if err != nil {
		return nil, txError(err, "failed to deactivate rule set version", goerr.V(model.VersionIDKey, id))
	}

	return deactivated, nil
}

func (r *versionRepository) Delete(ctx context.Context, id int64) (int, error) {
	owned := r.client.Collection(r.names.rules()).Where("version_id", "==", id)

	var removed int
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		target, err := r.getInTx(tx, id)
		if err != nil {
			return err
		}
		if err := target.CheckDelete(); err != nil {
			return err
		}

		rules, err := tx.Documents(owned).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to query rules of version")
		}
		for _, snap := range rules {
			if err := tx.Delete(snap.Ref); err != nil {
				return goerr.Wrap(err, "failed to delete rule", goerr.V("docID", snap.Ref.ID))
			}
		}

		removed = len(rules)
		return tx.Delete(r.doc(id))
	})
	if err != nil {
		return 0, txError(err, "failed to delete rule set version", goerr.V(model.VersionIDKey, id))
	}

	return removed, nil
}
