package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/embedlab/internal/config"
	"github.com/xxxsen/embedlab/internal/db"
)

// OpenTestDB connects to the postgres named by TEST_DB_HOST and applies
// migrations. Tests are skipped when the variable is unset.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     envOr("TEST_DB_USER", "embedlab"),
		Password: envOr("TEST_DB_PASSWORD", "embedlab_pass"),
		DBName:   envOr("TEST_DB_NAME", "embedlab_test"),
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(ctx, conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
