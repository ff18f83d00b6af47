package repository

import (
	"fmt"

	"github.com/yourusername/clever-forecast/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Models      ModelCatalogRepository
	Predictions PredictionRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db database.Querier) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Models:      NewPostgresModelRepository(db),
		Predictions: NewPostgresPredictionRepository(db),
	}, nil
}
