package blend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlend(t *testing.T) {
	tests := []struct {
		name       string
		classifier float64
		simulation float64
		weight     float64
		want       float64
	}{
		{name: "score impact example", classifier: 0.58, simulation: 0.52, weight: 0.3, want: 0.538},
		{name: "classifier only", classifier: 0.58, simulation: 0.52, weight: 1, want: 0.58},
		{name: "simulation only", classifier: 0.58, simulation: 0.52, weight: 0, want: 0.52},
		{name: "certain inputs", classifier: 1, simulation: 1, weight: 0.45, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Blend(tt.classifier, tt.simulation, tt.weight)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, result.Probability, 1e-12)
			assert.Equal(t, tt.weight, result.Weight)
			assert.Equal(t, tt.classifier, result.ClassifierProbability)
			assert.Equal(t, tt.simulation, result.SimulationProbability)
		})
	}
}

func TestBlendValidation(t *testing.T) {
	_, err := Blend(0.5, 0.5, 1.1)
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = Blend(0.5, 0.5, -0.1)
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = Blend(1.2, 0.5, 0.5)
	assert.ErrorIs(t, err, ErrInvalidProbability)

	_, err = Blend(0.5, -0.01, 0.5)
	assert.ErrorIs(t, err, ErrInvalidProbability)
}

func TestBlendMonotone(t *testing.T) {
	for _, weight := range []float64{0, 0.25, 0.5, 0.75, 1} {
		for _, fixed := range []float64{0, 0.3, 0.7, 1} {
			prevC, prevS := -1.0, -1.0
			for i := 0; i <= 20; i++ {
				p := float64(i) / 20

				byClassifier, err := Blend(p, fixed, weight)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, byClassifier.Probability, prevC)
				prevC = byClassifier.Probability

				bySimulation, err := Blend(fixed, p, weight)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, bySimulation.Probability, prevS)
				prevS = bySimulation.Probability
			}
		}
	}
}
