// Package dbtest provides throwaway Postgres schemas for integration tests.
package dbtest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/common/db"
)

// EnvDSN names the variable holding the test database URL.
const EnvDSN = "TEST_DATABASE_URL"

// NewPool connects to TEST_DATABASE_URL inside a fresh schema, applies the
// given migrations and drops the schema when the test ends. The test is
// skipped when the variable is unset or the database cannot be reached.
func NewPool(t *testing.T, migrations fs.FS) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set, skipping integration test", EnvDSN)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	if err := admin.Ping(ctx); err != nil {
		admin.Close()
		t.Skipf("database unavailable: %v", err)
	}

	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	if migrations != nil {
		if err := db.Migrate(ctx, pool, migrations, zap.NewNop()); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return pool
}
