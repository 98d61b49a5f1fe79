package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/cli/config"
	"github.com/secmon-lab/adsafe/pkg/repository/firestore"
	"github.com/secmon-lab/adsafe/pkg/repository/rdb"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"github.com/secmon-lab/adsafe/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := repoCfg.Flags()
	flags = append(flags, &cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "Preview Firestore index changes without applying",
		Destination: &dryRun,
	})

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create SQL schema or Firestore indexes for the configured backend",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			if dialect, ok := repoCfg.Dialect(); ok {
				if repoCfg.DSN() == "" {
					return goerr.New("database-dsn is required when using a SQL backend")
				}
				logger.Info("Applying SQL migrations", "dialect", dialect)
				return rdb.Migrate(ctx, dialect, repoCfg.DSN())
			}

			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), repoCfg.CollectionPrefix(), dryRun)
			case config.BackendMemory:
				logger.Info("Memory backend needs no migration")
				return nil
			default:
				return goerr.Wrap(config.ErrInvalidBackend, "cannot migrate backend", goerr.V(config.BackendKey, repoCfg.Backend()))
			}
		},
	}
}

func migrateFirestore(ctx context.Context, projectID, databaseID, prefix string, dryRun bool) error {
	logger := logging.From(ctx)

	if projectID == "" {
		return goerr.New("firestore-project-id is required when using firestore backend")
	}

	logger.Info("Migrate configuration",
		"projectID", projectID,
		"databaseID", databaseID,
		"prefix", prefix,
		"dryRun", dryRun)

	indexConfig := firestore.IndexConfig(prefix)

	client, err := fireconf.NewClient(ctx, projectID, databaseID)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer safe.Close(ctx, client, "resource", "fireconf")

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying index migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}
