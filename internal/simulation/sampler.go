package simulation

import (
	"math"
	"math/rand"

	"github.com/yourusername/clever-forecast/internal/models"
)

// knuthLimit is the rate above which Poisson draws use a normal approximation
const knuthLimit = 30.0

// sampler draws one simulated final score
type sampler interface {
	sample(rng *rand.Rand) (home, away float64)
}

func newSampler(p Params) sampler {
	if p.Distribution == models.DistributionNormal {
		return normalSampler{home: p.Home, away: p.Away}
	}
	return poissonSampler{home: p.Home.Mean, away: p.Away.Mean}
}

type poissonSampler struct {
	home, away float64
}

func (s poissonSampler) sample(rng *rand.Rand) (float64, float64) {
	return poisson(rng, s.home), poisson(rng, s.away)
}

func poisson(rng *rand.Rand, lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}
	if lambda >= knuthLimit {
		return math.Max(0, math.Round(lambda+math.Sqrt(lambda)*rng.NormFloat64()))
	}
	limit := math.Exp(-lambda)
	k := 0.0
	p := rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}

// normalSampler draws integer scores from rounded normals floored at zero
type normalSampler struct {
	home, away models.TeamRate
}

func (s normalSampler) sample(rng *rand.Rand) (float64, float64) {
	return normal(rng, s.home), normal(rng, s.away)
}

func normal(rng *rand.Rand, rate models.TeamRate) float64 {
	return math.Max(0, math.Round(rate.Mean+rate.StdDev*rng.NormFloat64()))
}
