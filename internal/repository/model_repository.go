package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/clever-forecast/internal/database"
	"github.com/yourusername/clever-forecast/internal/models"
)

const modelColumns = `id, sport, market, temporal_state, family, version, schema_version, path, accuracy, metrics, trained_at, active, created_at, updated_at`

// PostgresModelRepository implements ModelCatalogRepository for PostgreSQL
type PostgresModelRepository struct {
	db database.Querier
}

// NewPostgresModelRepository creates a new model catalog repository
func NewPostgresModelRepository(db database.Querier) *PostgresModelRepository {
	return &PostgresModelRepository{db: db}
}

func scanModel(row pgx.Row) (*models.ModelRecord, error) {
	record := &models.ModelRecord{}
	err := row.Scan(
		&record.ID, &record.Sport, &record.Market, &record.State, &record.Family, &record.Version,
		&record.SchemaVersion, &record.Path, &record.Accuracy, &record.Metrics, &record.TrainedAt,
		&record.Active, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Create inserts a new catalog record
func (m *PostgresModelRepository) Create(ctx context.Context, record *models.ModelRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.State == "" {
		record.State = models.StatePreGame
	}

	query := `
		INSERT INTO model_artifacts (id, sport, market, temporal_state, family, version, schema_version, path, accuracy, metrics, trained_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := m.db.Exec(ctx, query,
		record.ID, record.Sport, record.Market, record.State, record.Family, record.Version,
		record.SchemaVersion, record.Path, record.Accuracy, record.Metrics, record.TrainedAt, record.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create model record: %w", err)
	}

	return nil
}

// GetByID retrieves a catalog record by ID
func (m *PostgresModelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ModelRecord, error) {
	query := `SELECT ` + modelColumns + ` FROM model_artifacts WHERE id = $1`

	record, err := scanModel(m.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model record: %w", err)
	}

	return record, nil
}

// GetActive retrieves the active record for one (sport, market, state, family) slot
func (m *PostgresModelRepository) GetActive(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState, family models.ModelFamily) (*models.ModelRecord, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM model_artifacts
		WHERE sport = $1 AND market = $2 AND temporal_state = $3 AND family = $4 AND active = true
	`

	record, err := scanModel(m.db.QueryRow(ctx, query, sport, market, state, family))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active model: %w", err)
	}

	return record, nil
}

// ListActive retrieves all active records for a slot ordered by family
func (m *PostgresModelRepository) ListActive(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]*models.ModelRecord, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM model_artifacts
		WHERE sport = $1 AND market = $2 AND temporal_state = $3 AND active = true
		ORDER BY family ASC
	`

	rows, err := m.db.Query(ctx, query, sport, market, state)
	if err != nil {
		return nil, fmt.Errorf("failed to query active models: %w", err)
	}
	defer rows.Close()

	var records []*models.ModelRecord
	for rows.Next() {
		record, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// SetActive activates a record and deactivates the other versions in its slot
func (m *PostgresModelRepository) SetActive(ctx context.Context, id uuid.UUID) error {
	record, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE model_artifacts SET active = false, updated_at = NOW()
		WHERE sport = $1 AND market = $2 AND temporal_state = $3 AND family = $4 AND id != $5`,
		record.Sport, record.Market, record.State, record.Family, id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate other versions: %w", err)
	}

	tag, err := tx.Exec(ctx, "UPDATE model_artifacts SET active = true, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to activate model: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
