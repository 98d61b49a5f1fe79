package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/cli/config"
	"github.com/secmon-lab/adsafe/pkg/usecase"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdSeed() *cli.Command {
	var seedPath string
	var autoMigrate bool
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Path to the TOML seed file",
			Required:    true,
			Sources:     cli.EnvVars("ADSAFE_SEED_FILE"),
			Destination: &seedPath,
		},
		autoMigrateFlag(&autoMigrate),
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "seed",
		Usage: "Load taxonomy entries, rule set versions and rules from a seed file",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			seed, err := config.LoadSeed(seedPath)
			if err != nil {
				return err
			}
			logger.Info("Seed file loaded",
				"path", seedPath,
				"taxonomy", len(seed.Taxonomy),
				"versions", len(seed.Versions),
				"rules", seed.RuleCount(),
			)

			repo, closeRepo, err := openRepository(ctx, &repoCfg, autoMigrate)
			if err != nil {
				return err
			}
			defer closeRepo()

			uc := usecase.New(repo)
			result, err := uc.Seed.Apply(ctx, seed.ToSeed())
			if err != nil {
				return goerr.Wrap(err, "failed to apply seed", goerr.V(config.SeedPathKey, seedPath))
			}

			logger.Info("Seed applied",
				"taxonomy_created", result.TaxonomyCreated,
				"taxonomy_skipped", result.TaxonomySkipped,
				"versions_created", result.VersionsCreated,
				"versions_reused", result.VersionsReused,
				"rules_created", result.RulesCreated,
				"rules_skipped", result.RulesSkipped,
			)
			return nil
		},
	}
}
