package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yourusername/clever-forecast/internal/config"
)

// TestConfigEnv names the variable pointing at the integration test config
const TestConfigEnv = "CLEVER_FORECAST_TEST_CONFIG"

// SetupTestDB creates a test database connection or skips the test when no
// integration database is configured
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	path := os.Getenv(TestConfigEnv)
	if path == "" {
		t.Skipf("integration test: set %s to a config with database settings", TestConfigEnv)
	}

	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}

	if err := verifySchema(ctx, db, nil); err != nil {
		db.Close()
		t.Fatalf("test database is not migrated: %v", err)
	}

	return db
}

// TeardownTestDB removes rows written by a test and closes the pool
func TeardownTestDB(t *testing.T, db *DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, table := range requiredTables {
		if _, err := db.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Logf("warning: failed to clean %s: %v", table, err)
		}
	}
	db.Close()
}
