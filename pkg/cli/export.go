package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/cli/config"
	"github.com/secmon-lab/adsafe/pkg/usecase"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"github.com/secmon-lab/adsafe/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdExport() *cli.Command {
	var repoCfg config.Repository
	var snapshotCfg config.Snapshot

	flags := repoCfg.Flags()
	flags = append(flags, snapshotCfg.Flags()...)

	return &cli.Command{
		Name:  "export",
		Usage: "Write the active rule set resolved from the store to the snapshot location",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			if !snapshotCfg.IsConfigured() {
				return goerr.New("snapshot location is required for export")
			}

			repo, closeRepo, err := openRepository(ctx, &repoCfg, false)
			if err != nil {
				return err
			}
			defer closeRepo()

			store, err := snapshotCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, store, "resource", "snapshot")

			uc := usecase.New(repo, usecase.WithStoreTimeout(repoCfg.StoreTimeout()))
			rules, err := uc.Resolver.ResolveLive(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to resolve active rule set")
			}

			// Never replace a snapshot with an empty rule set
			if len(rules) == 0 {
				return goerr.New("no active rules to export")
			}

			if err := store.Write(ctx, rules); err != nil {
				return goerr.Wrap(err, "failed to write snapshot", goerr.V("location", store.Location()))
			}

			logger.Info("Snapshot exported", "location", store.Location(), "rules", len(rules))
			return nil
		},
	}
}
