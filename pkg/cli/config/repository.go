package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/repository/firestore"
	"github.com/secmon-lab/adsafe/pkg/repository/memory"
	"github.com/secmon-lab/adsafe/pkg/repository/rdb"
	"github.com/secmon-lab/adsafe/pkg/usecase"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository backends
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend          string
	projectID        string
	databaseID       string
	collectionPrefix string
	dsn              string `masq:"secret"`
	storeTimeout     time.Duration
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Category:    "Repository",
			Usage:       "Repository backend type (memory, firestore, postgres, sqlite)",
			Value:       BackendMemory,
			Sources:     cli.EnvVars("ADSAFE_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Category:    "Repository",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Sources:     cli.EnvVars("ADSAFE_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Category:    "Repository",
			Usage:       "Firestore Database ID",
			Sources:     cli.EnvVars("ADSAFE_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Category:    "Repository",
			Usage:       "Prefix prepended to every Firestore collection name",
			Sources:     cli.EnvVars("ADSAFE_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.StringFlag{
			Name:        "database-dsn",
			Category:    "Repository",
			Usage:       "Database DSN for postgres (postgres://...) or sqlite (file path) backends",
			Sources:     cli.EnvVars("ADSAFE_DATABASE_DSN"),
			Destination: &r.dsn,
		},
		&cli.DurationFlag{
			Name:        "store-timeout",
			Category:    "Repository",
			Usage:       "Deadline of each live rule resolution against the store (0 disables)",
			Value:       usecase.DefaultStoreTimeout,
			Sources:     cli.EnvVars("ADSAFE_STORE_TIMEOUT"),
			Destination: &r.storeTimeout,
		},
	}
}

// LogValue implements slog.LogValuer; the DSN is never logged
func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("firestore_project_id", r.projectID),
		slog.String("firestore_database_id", r.databaseID),
		slog.Bool("dsn_set", r.dsn != ""),
		slog.Duration("store_timeout", r.storeTimeout),
	)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// CollectionPrefix returns the Firestore collection name prefix
func (r *Repository) CollectionPrefix() string {
	return r.collectionPrefix
}

// DSN returns the SQL database DSN
func (r *Repository) DSN() string {
	return r.dsn
}

// StoreTimeout returns the deadline applied to live rule resolution
func (r *Repository) StoreTimeout() time.Duration {
	return r.storeTimeout
}

// Dialect maps a SQL backend to its rdb dialect
func (r *Repository) Dialect() (rdb.Dialect, bool) {
	switch r.backend {
	case BackendPostgres:
		return rdb.DialectPostgres, true
	case BackendSQLite:
		return rdb.DialectSQLite, true
	default:
		return "", false
	}
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.New("firestore-project-id is required when using firestore backend")
		}
		var opts []firestore.Option
		if r.collectionPrefix != "" {
			opts = append(opts, firestore.WithCollectionPrefix(r.collectionPrefix))
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case BackendPostgres, BackendSQLite:
		if r.dsn == "" {
			return nil, goerr.New("database-dsn is required when using a SQL backend", goerr.V(BackendKey, r.backend))
		}
		dialect, _ := r.Dialect()
		db, err := rdb.New(ctx, dialect, r.dsn)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize SQL repository", goerr.V(BackendKey, r.backend))
		}
		logging.Default().Info("Using SQL repository", "dialect", dialect)
		return db, nil

	case BackendMemory:
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unsupported repository backend", goerr.V(BackendKey, r.backend))
	}
}
