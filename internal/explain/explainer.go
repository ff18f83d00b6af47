// Package explain requests per-feature importance reports for predictions
// from an external explainability service.
package explain

import (
	"context"
	"errors"

	"github.com/yourusername/clever-forecast/internal/models"
)

var (
	// ErrUnavailable indicates explainability is disabled or unreachable
	ErrUnavailable = errors.New("explainability service unavailable")

	// ErrInvalidResponse indicates a malformed explainability response
	ErrInvalidResponse = errors.New("invalid response from explainability service")

	// ErrCircuitOpen indicates the client stopped calling a failing service
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Request identifies the model input to explain
type Request struct {
	ArtifactID  string             `json:"artifact_id"`
	Sport       models.Sport       `json:"sport"`
	Market      models.Market      `json:"market"`
	Family      models.ModelFamily `json:"family"`
	Features    []string           `json:"features"`
	Values      []float64          `json:"values"`
	Probability float64            `json:"probability"`
}

// Explainer produces an importance report ordered by absolute importance
type Explainer interface {
	Explain(ctx context.Context, req Request) ([]models.FeatureImportance, error)
}

// NoopExplainer is used when explainability is disabled
type NoopExplainer struct{}

// Explain always reports the service as unavailable
func (NoopExplainer) Explain(context.Context, Request) ([]models.FeatureImportance, error) {
	return nil, ErrUnavailable
}
