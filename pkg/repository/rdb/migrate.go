package rdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies every pending schema migration for the dialect. It uses a
// dedicated connection that is closed before returning.
func Migrate(ctx context.Context, dialect Dialect, dsn string) error {
	if !dialect.IsValid() {
		return goerr.Wrap(model.ErrValidation, "unsupported SQL dialect", goerr.V("dialect", dialect))
	}

	db, err := sql.Open(dialect.String(), normalizeDSN(dialect, dsn))
	if err != nil {
		return model.StoreUnavailable(err, "failed to open database for migration", goerr.V("dialect", dialect))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return model.StoreUnavailable(err, "failed to connect to database for migration", goerr.V("dialect", dialect))
	}

	var driver database.Driver
	switch dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		_ = db.Close()
		return goerr.Wrap(err, "failed to create migration driver", goerr.V("dialect", dialect))
	}

	src, err := iofs.New(migrations, "migrations/"+dialect.String())
	if err != nil {
		_ = driver.Close()
		return goerr.Wrap(err, "failed to load embedded migrations", goerr.V("dialect", dialect))
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect.String(), driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return goerr.Wrap(err, "failed to create migrate instance", goerr.V("dialect", dialect))
	}
	// Close releases both the source and the database connection
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logging.From(ctx).Warn("failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logging.From(ctx).Info("database schema is up to date", "dialect", dialect)
			return nil
		}
		return goerr.Wrap(err, "failed to apply migrations", goerr.V("dialect", dialect))
	}

	version, _, err := m.Version()
	if err != nil {
		return goerr.Wrap(err, "failed to read schema version", goerr.V("dialect", dialect))
	}
	logging.From(ctx).Info("database migration applied", "dialect", dialect, "version", version)
	return nil
}
