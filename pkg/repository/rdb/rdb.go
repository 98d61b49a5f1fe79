package rdb

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects the SQL engine behind a DB
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) IsValid() bool {
	return d == DialectPostgres || d == DialectSQLite
}

func (d Dialect) String() string {
	return string(d)
}

func init() {
	// Queries are written with "?" placeholders and rebound per driver.
	sqlx.BindDriver(DialectSQLite.String(), sqlx.QUESTION)
}

// DB is a relational Repository backed by PostgreSQL or SQLite
type DB struct {
	db       *sqlx.DB
	dialect  Dialect
	taxonomy *taxonomyRepository
	version  *versionRepository
	rule     *ruleRepository
}

var _ interfaces.Repository = &DB{}

// New connects to the database. The schema must have been created with Migrate.
func New(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	if !dialect.IsValid() {
		return nil, goerr.Wrap(model.ErrValidation, "unsupported SQL dialect", goerr.V("dialect", dialect))
	}

	db, err := sqlx.ConnectContext(ctx, dialect.String(), normalizeDSN(dialect, dsn))
	if err != nil {
		return nil, model.StoreUnavailable(err, "failed to connect to database", goerr.V("dialect", dialect))
	}
	if dialect == DialectSQLite {
		// SQLite allows a single writer; serialize access through one connection.
		db.SetMaxOpenConns(1)
	}

	d := &DB{db: db, dialect: dialect}
	d.taxonomy = &taxonomyRepository{db: d}
	d.version = &versionRepository{db: d}
	d.rule = &ruleRepository{db: d}
	return d, nil
}

// normalizeDSN enables foreign keys for SQLite connections
func normalizeDSN(dialect Dialect, dsn string) string {
	if dialect != DialectSQLite || strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (d *DB) Taxonomy() interfaces.TaxonomyRepository {
	return d.taxonomy
}

func (d *DB) Version() interfaces.RuleSetVersionRepository {
	return d.version
}

func (d *DB) Rule() interfaces.RuleRepository {
	return d.rule
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) rebind(query string) string {
	return d.db.Rebind(query)
}

// withTx runs fn in a transaction, committing on success and rolling back on any error
func (d *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.StoreUnavailable(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.From(ctx).Warn("failed to rollback transaction", "error", rbErr)
		}
		return storeError(err, "transaction failed")
	}

	if err := tx.Commit(); err != nil {
		return model.StoreUnavailable(err, "failed to commit transaction")
	}
	return nil
}

var domainKinds = []error{
	model.ErrNotFound,
	model.ErrDuplicateKey,
	model.ErrReferentialConflict,
	model.ErrInvalidTransition,
	model.ErrValidation,
	model.ErrStoreUnavailable,
}

// storeError passes classified errors through and marks everything else as a store failure
func storeError(err error, msg string, opts ...goerr.Option) error {
	for _, kind := range domainKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return model.StoreUnavailable(err, msg, opts...)
}

// constraintKind classifies a driver error raised by a constraint violation
func constraintKind(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return model.ErrDuplicateKey
		case "23503":
			return model.ErrReferentialConflict
		}
		return nil
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return model.ErrDuplicateKey
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return model.ErrReferentialConflict
		}
	}
	return nil
}
