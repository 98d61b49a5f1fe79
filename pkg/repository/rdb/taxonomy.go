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

const taxonomyColumns = `risk_code, level1, level2, level3, default_risk_level, description, is_active, created_at, updated_at`

type taxonomyRow struct {
	RiskCode         string    `db:"risk_code"`
	Level1           string    `db:"level1"`
	Level2           string    `db:"level2"`
	Level3           string    `db:"level3"`
	DefaultRiskLevel string    `db:"default_risk_level"`
	Description      string    `db:"description"`
	IsActive         bool      `db:"is_active"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r *taxonomyRow) toModel() *model.RiskTaxonomyEntry {
	return &model.RiskTaxonomyEntry{
		RiskCode:         types.RiskCode(r.RiskCode),
		Level1:           r.Level1,
		Level2:           r.Level2,
		Level3:           r.Level3,
		DefaultRiskLevel: types.RiskLevel(r.DefaultRiskLevel),
		Description:      r.Description,
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

type taxonomyRepository struct {
	db *DB
}

func (r *taxonomyRepository) get(ctx context.Context, q sqlx.QueryerContext, code types.RiskCode) (*model.RiskTaxonomyEntry, error) {
	var row taxonomyRow
	query := r.db.rebind(`SELECT ` + taxonomyColumns + ` FROM risk_taxonomy WHERE risk_code = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, code.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrNotFound, "taxonomy entry not found", goerr.V(model.RiskCodeKey, code))
		}
		return nil, model.StoreUnavailable(err, "failed to get taxonomy entry", goerr.V(model.RiskCodeKey, code))
	}
	return row.toModel(), nil
}

func (r *taxonomyRepository) Get(ctx context.Context, code types.RiskCode) (*model.RiskTaxonomyEntry, error) {
	return r.get(ctx, r.db.db, code)
}

func (r *taxonomyRepository) List(ctx context.Context) ([]*model.RiskTaxonomyEntry, error) {
	var rows []taxonomyRow
	query := `SELECT ` + taxonomyColumns + ` FROM risk_taxonomy ORDER BY level1, level2, level3, risk_code`
	if err := r.db.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, model.StoreUnavailable(err, "failed to list taxonomy")
	}

	entries := make([]*model.RiskTaxonomyEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toModel())
	}
	// Collation differs between engines; keep the ordering byte-wise.
	model.SortTaxonomy(entries)
	return entries, nil
}

func (r *taxonomyRepository) Create(ctx context.Context, entry *model.RiskTaxonomyEntry) (*model.RiskTaxonomyEntry, error) {
	now := time.Now().UTC()
	created := entry.Copy()
	created.CreatedAt = now
	created.UpdatedAt = now

	query := r.db.rebind(`INSERT INTO risk_taxonomy (` + taxonomyColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.db.ExecContext(ctx, query,
		created.RiskCode.String(), created.Level1, created.Level2, created.Level3,
		created.DefaultRiskLevel.String(), created.Description, created.IsActive,
		created.CreatedAt, created.UpdatedAt)
	if err != nil {
		if errors.Is(constraintKind(err), model.ErrDuplicateKey) {
			return nil, goerr.Wrap(model.ErrDuplicateKey, "risk code already exists", goerr.V(model.RiskCodeKey, created.RiskCode))
		}
		return nil, model.StoreUnavailable(err, "failed to create taxonomy entry", goerr.V(model.RiskCodeKey, created.RiskCode))
	}

	return created, nil
}

func (r *taxonomyRepository) Update(ctx context.Context, code types.RiskCode, update *model.TaxonomyUpdate) (*model.RiskTaxonomyEntry, error) {
	var updated *model.RiskTaxonomyEntry
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := r.get(ctx, tx, code)
		if err != nil {
			return err
		}

		update.Apply(existing)
		existing.UpdatedAt = time.Now().UTC()

		query := r.db.rebind(`UPDATE risk_taxonomy
			SET level1 = ?, level2 = ?, level3 = ?, default_risk_level = ?, description = ?, is_active = ?, updated_at = ?
			WHERE risk_code = ?`)
		if _, err := tx.ExecContext(ctx, query,
			existing.Level1, existing.Level2, existing.Level3, existing.DefaultRiskLevel.String(),
			existing.Description, existing.IsActive, existing.UpdatedAt, code.String()); err != nil {
			return goerr.Wrap(err, "failed to update taxonomy entry")
		}

		updated = existing
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to update taxonomy entry", goerr.V(model.RiskCodeKey, code))
	}
	return updated, nil
}

func (r *taxonomyRepository) Delete(ctx context.Context, code types.RiskCode) error {
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.get(ctx, tx, code); err != nil {
			return err
		}

		var count int
		if err := tx.GetContext(ctx, &count, r.db.rebind(`SELECT COUNT(*) FROM rules WHERE risk_code = ?`), code.String()); err != nil {
			return goerr.Wrap(err, "failed to count referencing rules")
		}
		if count > 0 {
			return goerr.Wrap(model.ErrReferentialConflict, "taxonomy entry is referenced by rules",
				goerr.V(model.RiskCodeKey, code), goerr.V(model.RuleCountKey, count))
		}

		if _, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM risk_taxonomy WHERE risk_code = ?`), code.String()); err != nil {
			return goerr.Wrap(err, "failed to delete taxonomy entry")
		}
		return nil
	})
	if err != nil {
		return storeError(err, "failed to delete taxonomy entry", goerr.V(model.RiskCodeKey, code))
	}
	return nil
}
