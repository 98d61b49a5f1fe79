package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/cli/config"
	httpctrl "github.com/secmon-lab/adsafe/pkg/controller/http"
	"github.com/secmon-lab/adsafe/pkg/usecase"
	"github.com/secmon-lab/adsafe/pkg/utils/async"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"github.com/secmon-lab/adsafe/pkg/utils/metrics"
	"github.com/secmon-lab/adsafe/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var warmUp bool
	var autoMigrate bool
	var repoCfg config.Repository
	var snapshotCfg config.Snapshot

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("ADSAFE_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "warm-up",
			Usage:       "Resolve the rule set in the background right after startup",
			Value:       true,
			Sources:     cli.EnvVars("ADSAFE_WARM_UP"),
			Destination: &warmUp,
		},
		autoMigrateFlag(&autoMigrate),
	}

	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, snapshotCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)
			logger.Info("Serve configuration", "repository", repoCfg, "snapshot", snapshotCfg.Location())

			repo, closeRepo, err := openRepository(ctx, &repoCfg, autoMigrate)
			if err != nil {
				return err
			}
			defer closeRepo()

			collector := metrics.New()
			ucOpts := []usecase.Option{
				usecase.WithMetrics(collector),
				usecase.WithStoreTimeout(repoCfg.StoreTimeout()),
			}

			store, err := snapshotCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if store != nil {
				defer safe.Close(ctx, store, "resource", "snapshot")
				ucOpts = append(ucOpts, usecase.WithSnapshot(store))
				logger.Info("Snapshot fallback enabled", "location", store.Location())
			} else {
				logger.Info("Snapshot not configured, resolution failures yield an empty rule set")
			}

			uc := usecase.New(repo, ucOpts...)

			if warmUp {
				async.Dispatch(ctx, "warm-up", func(ctx context.Context) error {
					res := uc.Resolver.Resolve(ctx)
					logging.From(ctx).Info("Rule set warmed up", "source", res.Source, "rules", len(res.Rules))
					return nil
				})
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithMetrics(collector)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}
