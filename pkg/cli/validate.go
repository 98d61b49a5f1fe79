package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/cli/config"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"github.com/secmon-lab/adsafe/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var seedPath string
	var snapshotCfg config.Snapshot

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "seed",
			Usage:       "Path to a TOML seed file to validate",
			Sources:     cli.EnvVars("ADSAFE_SEED_FILE"),
			Destination: &seedPath,
		},
	}
	flags = append(flags, snapshotCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a seed file and/or a snapshot artifact without touching the store",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			if seedPath == "" && !snapshotCfg.IsConfigured() {
				return goerr.New("nothing to validate: specify --seed and/or --snapshot")
			}

			if seedPath != "" {
				seed, err := config.LoadSeed(seedPath)
				if err != nil {
					return goerr.Wrap(err, "seed validation failed")
				}
				logger.Info("Seed validation passed",
					"path", seedPath,
					"taxonomy", len(seed.Taxonomy),
					"versions", len(seed.Versions),
					"rules", seed.RuleCount(),
				)
			}

			if snapshotCfg.IsConfigured() {
				store, err := snapshotCfg.Configure(ctx)
				if err != nil {
					return err
				}
				defer safe.Close(ctx, store, "resource", "snapshot")

				rules, err := store.Read(ctx)
				if err != nil {
					return goerr.Wrap(err, "snapshot validation failed", goerr.V("location", store.Location()))
				}
				logger.Info("Snapshot validation passed", "location", store.Location(), "rules", len(rules))
			}

			return nil
		},
	}
}
