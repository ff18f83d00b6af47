package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/clever-forecast/internal/database"
	"github.com/yourusername/clever-forecast/internal/models"
)

// PostgresPredictionRepository stores prediction results as JSONB alongside
// indexed summary columns
type PostgresPredictionRepository struct {
	db database.Querier
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db database.Querier) *PostgresPredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// Insert persists a prediction result. Re-inserting a request ID is a no-op.
func (p *PostgresPredictionRepository) Insert(ctx context.Context, result *models.PredictionResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode prediction: %w", err)
	}

	codes := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		codes = append(codes, string(w.Code))
	}

	query := `
		INSERT INTO predictions (request_id, sport, market, temporal_state, home_team, away_team,
			ensemble_probability, combined_confidence, warnings, result, predicted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (request_id) DO NOTHING
	`

	_, err = p.db.Exec(ctx, query,
		result.RequestID, result.Sport, result.Market, result.State, result.HomeTeam, result.AwayTeam,
		result.EnsembleProbability, result.CombinedConfidence, codes, body, result.PredictedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	return nil
}

// GetByRequestID retrieves a stored prediction
func (p *PostgresPredictionRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.PredictionResult, error) {
	var body []byte
	err := p.db.QueryRow(ctx, "SELECT result FROM predictions WHERE request_id = $1", requestID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return decodePrediction(body)
}

// GetRecent retrieves predictions for a sport and market made after since, newest first
func (p *PostgresPredictionRepository) GetRecent(ctx context.Context, sport models.Sport, market models.Market, since time.Time, limit int) ([]*models.PredictionResult, error) {
	query := `
		SELECT result FROM predictions
		WHERE sport = $1 AND market = $2 AND predicted_at >= $3
		ORDER BY predicted_at DESC
		LIMIT $4
	`

	rows, err := p.db.Query(ctx, query, sport, market, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var results []*models.PredictionResult
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		result, err := decodePrediction(body)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

func decodePrediction(body []byte) (*models.PredictionResult, error) {
	result := &models.PredictionResult{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}
	return result, nil
}
