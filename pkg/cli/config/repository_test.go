package config_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/cli/config"
	"github.com/secmon-lab/adsafe/pkg/repository/memory"
	"github.com/secmon-lab/adsafe/pkg/repository/rdb"
	"github.com/urfave/cli/v3"
)

func parseRepository(t *testing.T, args ...string) *config.Repository {
	t.Helper()
	var cfg config.Repository
	cmd := &cli.Command{
		Name:   "test",
		Flags:  cfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error { return nil },
	}
	gt.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...))).Required()
	return &cfg
}

func TestRepository_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory is the default", func(t *testing.T) {
		cfg := parseRepository(t)
		gt.Value(t, cfg.Backend()).Equal(config.BackendMemory)

		repo, err := cfg.Configure(ctx)
		gt.NoError(t, err).Required()
		defer repo.Close()

		_, ok := repo.(*memory.Memory)
		gt.Bool(t, ok).True()
	})

	t.Run("sqlite opens a database file", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "adsafe.db")
		cfg := parseRepository(t, "--repository-backend", "sqlite", "--database-dsn", dsn)

		dialect, ok := cfg.Dialect()
		gt.Bool(t, ok).True()
		gt.Value(t, dialect).Equal(rdb.DialectSQLite)

		repo, err := cfg.Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("sql backend requires dsn", func(t *testing.T) {
		cfg := parseRepository(t, "--repository-backend", "postgres")
		_, err := cfg.Configure(ctx)
		gt.Value(t, err).NotNil()
	})

	t.Run("firestore requires project id", func(t *testing.T) {
		cfg := parseRepository(t, "--repository-backend", "firestore")
		_, err := cfg.Configure(ctx)
		gt.Value(t, err).NotNil()
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := parseRepository(t, "--repository-backend", "mysql")
		_, err := cfg.Configure(ctx)
		gt.Bool(t, errors.Is(err, config.ErrInvalidBackend)).True()
	})
}
