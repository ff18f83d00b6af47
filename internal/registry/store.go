package registry

import (
	"context"

	"github.com/yourusername/clever-forecast/internal/models"
)

// Store reads artifact documents from backing storage. Implementations
// return an error wrapping models.ErrModelNotFound for absent artifacts.
type Store interface {
	Load(ctx context.Context, key Key) (*Document, error)
	Families(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]models.ModelFamily, error)
}
