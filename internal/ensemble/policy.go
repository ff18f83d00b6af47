// Package ensemble combines base-model probabilities into one posterior
// probability with an agreement score.
package ensemble

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoInputs indicates the combiner received no model outputs
	ErrNoInputs = errors.New("no model outputs to combine")

	// ErrInvalidProbability indicates an input probability outside [0,1]
	ErrInvalidProbability = errors.New("probability outside [0,1]")

	// ErrInvalidWeight indicates a negative or non-finite prior weight
	ErrInvalidWeight = errors.New("invalid prior weight")

	// ErrUnknownPolicy indicates an unregistered combination policy name
	ErrUnknownPolicy = errors.New("unknown combination policy")
)

const (
	PolicyWeightedMean      = "weighted_mean"
	PolicyWeightedGeometric = "weighted_geometric"
)

// Policy pools probabilities under weights that sum to 1
type Policy interface {
	Name() string
	Combine(probabilities, weights []float64) float64
}

// WeightedMean is the linear opinion pool: sum(w_i * p_i)
type WeightedMean struct{}

// Name returns the policy name
func (WeightedMean) Name() string { return PolicyWeightedMean }

// Combine returns the weighted arithmetic mean
func (WeightedMean) Combine(probabilities, weights []float64) float64 {
	sum := 0.0
	for i, p := range probabilities {
		sum += weights[i] * p
	}
	return sum
}

// geometricEpsilon keeps log-odds finite for certain inputs
const geometricEpsilon = 1e-6

// WeightedGeometric is the logarithmic opinion pool: the weighted mean of
// log-odds mapped back through the logistic function.
type WeightedGeometric struct{}

// Name returns the policy name
func (WeightedGeometric) Name() string { return PolicyWeightedGeometric }

// Combine returns the normalized weighted geometric pool
func (WeightedGeometric) Combine(probabilities, weights []float64) float64 {
	logit := 0.0
	for i, p := range probabilities {
		p = math.Min(math.Max(p, geometricEpsilon), 1-geometricEpsilon)
		logit += weights[i] * math.Log(p/(1-p))
	}
	return 1.0 / (1.0 + math.Exp(-logit))
}

// PolicyByName returns the policy registered under name; empty selects the default
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", PolicyWeightedMean:
		return WeightedMean{}, nil
	case PolicyWeightedGeometric:
		return WeightedGeometric{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
