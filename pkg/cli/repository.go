package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/cli/config"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/repository/rdb"
	"github.com/secmon-lab/adsafe/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func autoMigrateFlag(dst *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "auto-migrate",
		Category:    "Repository",
		Usage:       "Apply SQL schema migrations before starting (postgres and sqlite backends)",
		Sources:     cli.EnvVars("ADSAFE_AUTO_MIGRATE"),
		Destination: dst,
	}
}

// openRepository configures the backend, migrating SQL schemas first when asked
func openRepository(ctx context.Context, cfg *config.Repository, autoMigrate bool) (interfaces.Repository, func(), error) {
	if dialect, ok := cfg.Dialect(); ok && autoMigrate {
		if err := rdb.Migrate(ctx, dialect, cfg.DSN()); err != nil {
			return nil, nil, goerr.Wrap(err, "failed to migrate database")
		}
	}

	repo, err := cfg.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}

	return repo, func() { safe.Close(ctx, repo, "resource", "repository") }, nil
}
