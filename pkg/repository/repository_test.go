package repository_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/repository/firestore"
	"github.com/secmon-lab/adsafe/pkg/repository/memory"
	"github.com/secmon-lab/adsafe/pkg/repository/rdb"
)

type backend struct {
	name    string
	newRepo func(t *testing.T) interfaces.Repository
}

var backends = []backend{
	{name: "Memory", newRepo: newMemoryRepository},
	{name: "SQLite", newRepo: newSQLiteRepository},
	{name: "Postgres", newRepo: newPostgresRepository},
	{name: "Firestore", newRepo: newFirestoreRepository},
}

func newMemoryRepository(t *testing.T) interfaces.Repository {
	t.Helper()
	return memory.New()
}

func newSQLiteRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "adsafe.db")
	gt.NoError(t, rdb.Migrate(ctx, rdb.DialectSQLite, dsn)).Required()

	repo, err := rdb.New(ctx, rdb.DialectSQLite, dsn)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close sqlite repository: %v", err)
		}
	})
	return repo
}

func newPostgresRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())

	admin, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	gt.NoError(t, err).Required()
	_, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		if _, err := admin.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Errorf("failed to drop schema: %v", err)
		}
		_ = admin.Close()
	})

	scoped := withSearchPath(dsn, schema)
	gt.NoError(t, rdb.Migrate(ctx, rdb.DialectPostgres, scoped)).Required()

	repo, err := rdb.New(ctx, rdb.DialectPostgres, scoped)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close postgres repository: %v", err)
		}
	})
	return repo
}

func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("test_%d", time.Now().UnixNano())
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	if err != nil {
		t.Fatalf("failed to create firestore repository: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close firestore repository: %v", err)
		}
	})
	return repo
}

// Fixtures shared by the contract suites

func ptr[T any](v T) *T {
	return &v
}

func mustCreateTaxonomy(t *testing.T, repo interfaces.Repository, code string, level types.RiskLevel) *model.RiskTaxonomyEntry {
	t.Helper()
	entry, err := repo.Taxonomy().Create(context.Background(), &model.RiskTaxonomyEntry{
		RiskCode:         types.RiskCode(code),
		Level1:           "医療",
		Level2:           "効能",
		Level3:           code,
		DefaultRiskLevel: level,
		Description:      "description of " + code,
		IsActive:         true,
	})
	gt.NoError(t, err).Required()
	return entry
}

func mustCreateVersion(t *testing.T, repo interfaces.Repository, name string, status types.VersionStatus) *model.RuleSetVersion {
	t.Helper()
	v, err := repo.Version().Create(context.Background(), &model.RuleSetVersion{
		Name:     name,
		Industry: types.IndustryGeneral,
		Status:   status,
	})
	gt.NoError(t, err).Required()
	return v
}

func mustCreateRule(t *testing.T, repo interfaces.Repository, versionID int64, code string, pattern string) *model.Rule {
	t.Helper()
	r, err := repo.Rule().Create(context.Background(), &model.Rule{
		VersionID: versionID,
		RiskCode:  types.RiskCode(code),
		RuleName:  code,
		RuleType:  types.RuleTypeKeyword,
		Pattern:   pattern,
		IsActive:  true,
	})
	gt.NoError(t, err).Required()
	return r
}

func countActive(t *testing.T, repo interfaces.Repository) int {
	t.Helper()
	versions, err := repo.Version().List(context.Background())
	gt.NoError(t, err).Required()

	n := 0
	for _, v := range versions {
		if v.IsActive() {
			n++
		}
	}
	return n
}
