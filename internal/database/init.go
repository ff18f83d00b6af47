package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-forecast/internal/config"
)

// requiredTables lists the tables the forecast service reads and writes
var requiredTables = []string{"model_artifacts", "predictions"}

// Initialize creates a database connection pool and verifies the schema is migrated
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	// Create connection pool
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := verifySchema(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// verifySchema checks the forecast tables exist and warns when migrations look unapplied
func verifySchema(ctx context.Context, q Querier, log *logrus.Logger) error {
	for _, table := range requiredTables {
		var exists bool
		err := q.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf(
				"table %s not found. Please run database migrations: "+
					"migrate -path migrations -database \"your_dsn\" up", table,
			)
		}
	}

	// Verify migrations are applied by checking schema_migrations table
	var migrationCount int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&migrationCount); err != nil {
		// Table might not exist when the schema was created by hand
		return nil
	}

	if migrationCount == 0 && log != nil {
		log.Warn("No migrations have been applied. Please run database migrations.")
	}

	return nil
}
