// Package blend fuses classifier and simulation probabilities with a
// sport-specific score-impact weight.
package blend

import (
	"errors"
	"fmt"

	"github.com/yourusername/clever-forecast/internal/models"
)

var (
	// ErrInvalidWeight indicates a blend weight outside [0,1]
	ErrInvalidWeight = errors.New("blend weight outside [0,1]")

	// ErrInvalidProbability indicates a blend input outside [0,1]
	ErrInvalidProbability = errors.New("blend input outside [0,1]")
)

// Blend returns weight*classifier + (1-weight)*simulation
func Blend(classifier, simulation, weight float64) (*models.BlendedPrediction, error) {
	if !models.ValidProbability(weight) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeight, weight)
	}
	if !models.ValidProbability(classifier) {
		return nil, fmt.Errorf("%w: classifier=%v", ErrInvalidProbability, classifier)
	}
	if !models.ValidProbability(simulation) {
		return nil, fmt.Errorf("%w: simulation=%v", ErrInvalidProbability, simulation)
	}

	return &models.BlendedPrediction{
		ClassifierProbability: classifier,
		SimulationProbability: simulation,
		Weight:                weight,
		Probability:           models.ClampProbability(weight*classifier + (1-weight)*simulation),
	}, nil
}
