package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/clever-forecast/internal/models"
)

// ModelCatalogRepository defines the interface for model artifact catalog access
type ModelCatalogRepository interface {
	Create(ctx context.Context, record *models.ModelRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ModelRecord, error)
	GetActive(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState, family models.ModelFamily) (*models.ModelRecord, error)
	ListActive(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]*models.ModelRecord, error)
	SetActive(ctx context.Context, id uuid.UUID) error
}

// PredictionRepository defines the interface for prediction result persistence
type PredictionRepository interface {
	Insert(ctx context.Context, result *models.PredictionResult) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.PredictionResult, error)
	GetRecent(ctx context.Context, sport models.Sport, market models.Market, since time.Time, limit int) ([]*models.PredictionResult, error)
}
