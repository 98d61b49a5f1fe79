package rdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

const versionColumns = `id, name, industry, status, changelog, created_at, activated_at`

type versionRow struct {
	ID          int64        `db:"id"`
	Name        string       `db:"name"`
	Industry    string       `db:"industry"`
	Status      string       `db:"status"`
	Changelog   string       `db:"changelog"`
	CreatedAt   time.Time    `db:"created_at"`
	ActivatedAt sql.NullTime `db:"activated_at"`
}

func (r *versionRow) toModel() *model.RuleSetVersion {
	v := &model.RuleSetVersion{
		ID:        r.ID,
		Name:      r.Name,
		Industry:  types.Industry(r.Industry),
		Status:    types.VersionStatus(r.Status),
		Changelog: r.Changelog,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.ActivatedAt.Valid {
		at := r.ActivatedAt.Time.UTC()
		v.ActivatedAt = &at
	}
	return v
}

// afterDemote runs inside the activation transaction once the previous
// active version has been demoted. Tests use it to inject failures.
var afterDemote func() error

type versionRepository struct {
	db *DB
}

func (r *versionRepository) get(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.RuleSetVersion, error) {
	var row versionRow
	query := r.db.rebind(`SELECT ` + versionColumns + ` FROM rule_set_versions WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrNotFound, "rule set version not found", goerr.V(model.VersionIDKey, id))
		}
		return nil, model.StoreUnavailable(err, "failed to get rule set version", goerr.V(model.VersionIDKey, id))
	}
	return row.toModel(), nil
}

func (r *versionRepository) demoteActive(ctx context.Context, tx *sqlx.Tx) error {
	query := r.db.rebind(`UPDATE rule_set_versions SET status = ?, activated_at = NULL WHERE status = ?`)
	if _, err := tx.ExecContext(ctx, query, types.VersionStatusInactive.String(), types.VersionStatusActive.String()); err != nil {
		return goerr.Wrap(err, "failed to demote active version")
	}
	return nil
}

func (r *versionRepository) Create(ctx context.Context, version *model.RuleSetVersion) (*model.RuleSetVersion, error) {
	now := time.Now().UTC()
	created := version.Copy()
	created.CreatedAt = now
	created.ActivatedAt = nil
	if created.IsActive() {
		created.MarkActive(now)
	}

	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		if created.IsActive() {
			if err := r.demoteActive(ctx, tx); err != nil {
				return err
			}
		}

		var activatedAt sql.NullTime
		if created.ActivatedAt != nil {
			activatedAt = sql.NullTime{Time: *created.ActivatedAt, Valid: true}
		}

		query := r.db.rebind(`INSERT INTO rule_set_versions (name, industry, status, changelog, created_at, activated_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
		if err := tx.QueryRowxContext(ctx, query,
			created.Name, created.Industry.String(), created.Status.String(), created.Changelog,
			created.CreatedAt, activatedAt).Scan(&created.ID); err != nil {
			return goerr.Wrap(err, "failed to insert rule set version")
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to create rule set version")
	}
	return created, nil
}

func (r *versionRepository) Get(ctx context.Context, id int64) (*model.RuleSetVersion, error) {
	return r.get(ctx, r.db.db, id)
}

func (r *versionRepository) GetActive(ctx context.Context) (*model.RuleSetVersion, error) {
	var row versionRow
	query := r.db.rebind(`SELECT ` + versionColumns + ` FROM rule_set_versions WHERE status = ? LIMIT 1`)
	if err := r.db.db.GetContext(ctx, &row, query, types.VersionStatusActive.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, model.StoreUnavailable(err, "failed to get active rule set version")
	}
	return row.toModel(), nil
}

func (r *versionRepository) List(ctx context.Context) ([]*model.RuleSetVersion, error) {
	var rows []versionRow
	query := r.db.rebind(`SELECT ` + versionColumns + ` FROM rule_set_versions
		ORDER BY CASE status WHEN ? THEN 0 WHEN ? THEN 1 ELSE 2 END, created_at DESC, id DESC`)
	if err := r.db.db.SelectContext(ctx, &rows, query,
		types.VersionStatusActive.String(), types.VersionStatusDraft.String()); err != nil {
		return nil, model.StoreUnavailable(err, "failed to list rule set versions")
	}

	versions := make([]*model.RuleSetVersion, 0, len(rows))
	for i := range rows {
		versions = append(versions, rows[i].toModel())
	}
	// SQLite compares timestamps as text; settle ties the same way on every engine.
	model.SortVersions(versions)
	return versions, nil
}

func (r *versionRepository) Activate(ctx context.Context, id int64, at time.Time) (*model.RuleSetVersion, error) {
	var activated *model.RuleSetVersion
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		target, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := target.CheckActivate(); err != nil {
			return err
		}

		if err := r.demoteActive(ctx, tx); err != nil {
			return err
		}
		if afterDemote != nil {
			if err := afterDemote(); err != nil {
				return err
			}
		}

		target.MarkActive(at.UTC())
		query := r.db.rebind(`UPDATE rule_set_versions SET status = ?, activated_at = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, query, target.Status.String(), *target.ActivatedAt, id); err != nil {
			return goerr.Wrap(err, "failed to activate rule set version")
		}

		activated = target
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to activate rule set version", goerr.V(model.VersionIDKey, id))
	}
	return activated, nil
}

func (r *versionRepository) Deactivate(ctx context.Context, id int64) (*model.RuleSetVersion, error) {
	var deactivated *model.RuleSetVersion
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		target, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := target.CheckDeactivate(); err != nil {
			return err
		}

		target.MarkInactive()
		query := r.db.rebind(`UPDATE rule_set_versions SET status = ?, activated_at = NULL WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, query, target.Status.String(), id); err != nil {
			return goerr.Wrap(err, "failed to deactivate rule set version")
		}

		deactivated = target
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to deactivate rule set version", goerr.V(model.VersionIDKey, id))
	}
	return deactivated, nil
}

func (r *versionRepository) Delete(ctx context.Context, id int64) (int, error) {
	var removed int64
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		target, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := target.CheckDelete(); err != nil {
			return err
		}

		// Rules are removed explicitly so the count can be reported.
		res, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM rules WHERE version_id = ?`), id)
		if err != nil {
			return goerr.Wrap(err, "failed to delete rules of version")
		}
		if removed, err = res.RowsAffected(); err != nil {
			return goerr.Wrap(err, "failed to count deleted rules")
		}

		if _, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM rule_set_versions WHERE id = ?`), id); err != nil {
			return goerr.Wrap(err, "failed to delete rule set version")
		}
		return nil
	})
	if err != nil {
		return 0, storeError(err, "failed to delete rule set version", goerr.V(model.VersionIDKey, id))
	}
	return int(removed), nil
}
