// Package testutil holds helpers shared by DB-backed tests. They skip when
// MAROON_TEST_DSN is unset so unit tests run without Postgres.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"maroonline/migrations"
)

const dsnEnv = "MAROON_TEST_DSN"

var migrateOnce sync.Once
var migrateErr error

// NewPool returns a migrated pool with all tables truncated.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skip(dsnEnv + " not set; skipping DB-backed test")
	}

	migrateOnce.Do(func() { migrateErr = migrate(dsn) })
	if migrateErr != nil {
		t.Fatalf("apply migrations: %v", migrateErr)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, "TRUNCATE TABLE matches, trips, ai_usage, profiles"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}

func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	_, err = provider.Up(context.Background())
	return err
}
