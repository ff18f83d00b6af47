package ensemble

import (
	"fmt"
	"math"

	"github.com/yourusername/clever-forecast/internal/models"
)

// DefaultMinAgreement flags ensembles whose weighted spread exceeds 0.2
const DefaultMinAgreement = 0.6

// Input is one base model's probability for the outcome being combined.
// A zero Weight means no calibration is available.
type Input struct {
	Family      models.ModelFamily
	Version     string
	Probability float64
	Weight      float64
}

// Result is the combined ensemble prediction
type Result struct {
	Probability   float64
	Agreement     float64
	Policy        string
	Contributions []models.ContributingModel
	Disagreement  bool
}

// Combiner pools base-model probabilities under a policy
type Combiner struct {
	policy       Policy
	minAgreement float64
}

// Option configures a Combiner
type Option func(*Combiner)

// WithPolicy sets the combination policy
func WithPolicy(p Policy) Option {
	return func(c *Combiner) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithMinAgreement sets the agreement below which a disagreement is flagged
func WithMinAgreement(threshold float64) Option {
	return func(c *Combiner) {
		c.minAgreement = threshold
	}
}

// NewCombiner creates a combiner using the weighted mean policy by default
func NewCombiner(opts ...Option) *Combiner {
	c := &Combiner{
		policy:       WeightedMean{},
		minAgreement: DefaultMinAgreement,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the active policy name
func (c *Combiner) Policy() string {
	return c.policy.Name()
}

// Combine pools inputs into one probability and an agreement score.
// Agreement is 1 - weighted standard deviation / 0.5, the largest spread
// two probabilities can have.
func (c *Combiner) Combine(inputs []Input) (*Result, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	for _, in := range inputs {
		if !models.ValidProbability(in.Probability) {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidProbability, in.Family, in.Probability)
		}
		if in.Weight < 0 || math.IsNaN(in.Weight) || math.IsInf(in.Weight, 0) {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidWeight, in.Family, in.Weight)
		}
	}

	weights := normalizeWeights(inputs)
	probabilities := make([]float64, len(inputs))
	contributions := make([]models.ContributingModel, len(inputs))
	for i, in := range inputs {
		probabilities[i] = in.Probability
		contributions[i] = models.ContributingModel{
			Family:         in.Family,
			Version:        in.Version,
			RawProbability: in.Probability,
			Weight:         weights[i],
		}
	}

	result := &Result{
		Policy:        c.policy.Name(),
		Contributions: contributions,
	}
	if len(inputs) == 1 || identical(probabilities) {
		result.Probability = probabilities[0]
		result.Agreement = 1
		return result, nil
	}

	result.Probability = models.ClampProbability(c.policy.Combine(probabilities, weights))
	result.Agreement = agreement(probabilities, weights)
	result.Disagreement = result.Agreement < c.minAgreement
	return result, nil
}

// normalizeWeights fills missing weights with the mean of the supplied ones
// (uniform when none are supplied) and scales them to sum to 1.
func normalizeWeights(inputs []Input) []float64 {
	supplied, count := 0.0, 0
	for _, in := range inputs {
		if in.Weight > 0 {
			supplied += in.Weight
			count++
		}
	}
	fill := 1.0
	if count > 0 {
		fill = supplied / float64(count)
	}

	weights := make([]float64, len(inputs))
	total := 0.0
	for i, in := range inputs {
		weights[i] = in.Weight
		if weights[i] == 0 {
			weights[i] = fill
		}
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

func identical(probabilities []float64) bool {
	for _, p := range probabilities[1:] {
		if p != probabilities[0] {
			return false
		}
	}
	return true
}

func agreement(probabilities, weights []float64) float64 {
	mean := 0.0
	for i, p := range probabilities {
		mean += weights[i] * p
	}
	variance := 0.0
	for i, p := range probabilities {
		d := p - mean
		variance += weights[i] * d * d
	}
	return models.ClampProbability(1 - math.Sqrt(variance)/0.5)
}
