package rdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

const ruleColumns = `r.id, r.version_id, r.risk_code, r.rule_name, r.rule_type, r.pattern,
	r.severity_override, r.explanation_template, r.suggestion_template, r.is_active, r.created_at`

type ruleRow struct {
	ID                  int64          `db:"id"`
	VersionID           int64          `db:"version_id"`
	RiskCode            string         `db:"risk_code"`
	RuleName            string         `db:"rule_name"`
	RuleType            string         `db:"rule_type"`
	Pattern             string         `db:"pattern"`
	SeverityOverride    sql.NullString `db:"severity_override"`
	ExplanationTemplate sql.NullString `db:"explanation_template"`
	SuggestionTemplate  sql.NullString `db:"suggestion_template"`
	IsActive            bool           `db:"is_active"`
	CreatedAt           time.Time      `db:"created_at"`
}

func (r *ruleRow) toModel() *model.Rule {
	rule := &model.Rule{
		ID:        r.ID,
		VersionID: r.VersionID,
		RiskCode:  types.RiskCode(r.RiskCode),
		RuleName:  r.RuleName,
		RuleType:  types.RuleType(r.RuleType),
		Pattern:   r.Pattern,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.SeverityOverride.Valid {
		level := types.RiskLevel(r.SeverityOverride.String)
		rule.SeverityOverride = &level
	}
	if r.ExplanationTemplate.Valid {
		v := r.ExplanationTemplate.String
		rule.ExplanationTemplate = &v
	}
	if r.SuggestionTemplate.Valid {
		v := r.SuggestionTemplate.String
		rule.SuggestionTemplate = &v
	}
	return rule
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullLevel(l *types.RiskLevel) sql.NullString {
	if l == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: l.String(), Valid: true}
}

type ruleRepository struct {
	db *DB
}

func (r *ruleRepository) get(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Rule, error) {
	var row ruleRow
	query := r.db.rebind(`SELECT ` + ruleColumns + ` FROM rules r WHERE r.id = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrNotFound, "rule not found", goerr.V(model.RuleIDKey, id))
		}
		return nil, model.StoreUnavailable(err, "failed to get rule", goerr.V(model.RuleIDKey, id))
	}
	return row.toModel(), nil
}

func (r *ruleRepository) Get(ctx context.Context, id int64) (*model.Rule, error) {
	return r.get(ctx, r.db.db, id)
}

func (r *ruleRepository) List(ctx context.Context, filter *model.RuleFilter) ([]*model.Rule, error) {
	if filter == nil {
		filter = &model.RuleFilter{}
	}

	var (
		where []string
		args  []any
	)
	if filter.VersionID != 0 {
		where = append(where, "r.version_id = ?")
		args = append(args, filter.VersionID)
	}
	if filter.RiskCode != "" {
		where = append(where, "r.risk_code = ?")
		args = append(args, filter.RiskCode.String())
	}
	if filter.RuleType != "" {
		where = append(where, "r.rule_type = ?")
		args = append(args, filter.RuleType.String())
	}
	if filter.Severity != "" {
		where = append(where, "COALESCE(r.severity_override, t.default_risk_level) = ?")
		args = append(args, filter.Severity.String())
	}
	if filter.ActiveOnly {
		where = append(where, "r.is_active = ?")
		args = append(args, true)
	}

	query := `SELECT ` + ruleColumns + ` FROM rules r LEFT JOIN risk_taxonomy t ON t.risk_code = r.risk_code`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY r.id DESC`

	var rows []ruleRow
	if err := r.db.db.SelectContext(ctx, &rows, r.db.rebind(query), args...); err != nil {
		return nil, model.StoreUnavailable(err, "failed to list rules")
	}

	rules := make([]*model.Rule, 0, len(rows))
	for i := range rows {
		rules = append(rules, rows[i].toModel())
	}
	return rules, nil
}

func (r *ruleRepository) Create(ctx context.Context, rule *model.Rule) (*model.Rule, error) {
	created := rule.Copy()
	created.CreatedAt = time.Now().UTC()

	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, r.db.rebind(`SELECT COUNT(*) FROM risk_taxonomy WHERE risk_code = ?`),
			created.RiskCode.String()); err != nil {
			return goerr.Wrap(err, "failed to check taxonomy entry")
		}
		if exists == 0 {
			return goerr.Wrap(model.ErrReferentialConflict, "risk code does not exist in taxonomy",
				goerr.V(model.RiskCodeKey, created.RiskCode))
		}

		if err := tx.GetContext(ctx, &exists, r.db.rebind(`SELECT COUNT(*) FROM rule_set_versions WHERE id = ?`),
			created.VersionID); err != nil {
			return goerr.Wrap(err, "failed to check rule set version")
		}
		if exists == 0 {
			return goerr.Wrap(model.ErrReferentialConflict, "rule set version does not exist",
				goerr.V(model.VersionIDKey, created.VersionID))
		}

		query := r.db.rebind(`INSERT INTO rules (version_id, risk_code, rule_name, rule_type, pattern,
			severity_override, explanation_template, suggestion_template, is_active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		if err := tx.QueryRowxContext(ctx, query,
			created.VersionID, created.RiskCode.String(), created.RuleName, created.RuleType.String(), created.Pattern,
			nullLevel(created.SeverityOverride), nullString(created.ExplanationTemplate), nullString(created.SuggestionTemplate),
			created.IsActive, created.CreatedAt).Scan(&created.ID); err != nil {
			if kind := constraintKind(err); kind != nil {
				return goerr.Wrap(kind, "rule violates a constraint")
			}
			return goerr.Wrap(err, "failed to insert rule")
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to create rule")
	}
	return created, nil
}

func (r *ruleRepository) Update(ctx context.Context, id int64, update *model.RuleUpdate) (*model.Rule, error) {
	var updated *model.Rule
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		update.Apply(existing)

		query := r.db.rebind(`UPDATE rules SET rule_name = ?, rule_type = ?, pattern = ?,
			severity_override = ?, explanation_template = ?, suggestion_template = ?, is_active = ?
			WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, query,
			existing.RuleName, existing.RuleType.String(), existing.Pattern,
			nullLevel(existing.SeverityOverride), nullString(existing.ExplanationTemplate),
			nullString(existing.SuggestionTemplate), existing.IsActive, id); err != nil {
			return goerr.Wrap(err, "failed to update rule")
		}

		updated = existing
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to update rule", goerr.V(model.RuleIDKey, id))
	}
	return updated, nil
}

func (r *ruleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.db.ExecContext(ctx, r.db.rebind(`DELETE FROM rules WHERE id = ?`), id)
	if err != nil {
		return model.StoreUnavailable(err, "failed to delete rule", goerr.V(model.RuleIDKey, id))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return model.StoreUnavailable(err, "failed to count deleted rules", goerr.V(model.RuleIDKey, id))
	}
	if n == 0 {
		return goerr.Wrap(model.ErrNotFound, "rule not found", goerr.V(model.RuleIDKey, id))
	}
	return nil
}
