package registry

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/yourusername/clever-forecast/internal/models"
)

// Input is a projected feature vector ready for inference.
// Threshold is the margin or total the primary outcome must exceed.
type Input struct {
	Features  []float64
	Market    models.Market
	Threshold float64
}

// Estimator produces the probability of a market's primary outcome
// (home win, over, home cover). Implementations must be stateless.
type Estimator interface {
	Predict(in Input) (float64, error)
}

// Factory builds an estimator from family-specific parameters
type Factory func(params json.RawMessage, featureCount int) (Estimator, error)

// DefaultFactories returns the built-in family adapters
func DefaultFactories() map[models.ModelFamily]Factory {
	return map[models.ModelFamily]Factory{
		models.FamilyLogistic:      newLogistic,
		models.FamilyGradientBoost: newGradientBoost,
		models.FamilyLinearMargin:  newLinearMargin,
		models.FamilyPoissonGoals:  newPoissonGoals,
	}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func normalCDF(z float64) float64 {
	return 0.5 * math.Erfc(-z/math.Sqrt2)
}

func dot(coefficients, features []float64) float64 {
	sum := 0.0
	for i, w := range coefficients {
		sum += w * features[i]
	}
	return sum
}

func checkWidth(in Input, want int) error {
	if len(in.Features) != want {
		return fmt.Errorf("expected %d features, got %d", want, len(in.Features))
	}
	return nil
}

type linearParams struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (p linearParams) validate(featureCount int) error {
	if len(p.Coefficients) != featureCount {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrInvalidArtifact, len(p.Coefficients), featureCount)
	}
	return nil
}

// logistic is a binary classifier: p = sigmoid(b + w.x)
type logistic struct {
	linearParams
}

func newLogistic(params json.RawMessage, featureCount int) (Estimator, error) {
	var p linearParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("%w: logistic params: %v", ErrInvalidArtifact, err)
	}
	if err := p.validate(featureCount); err != nil {
		return nil, err
	}
	return &logistic{linearParams: p}, nil
}

func (l *logistic) Predict(in Input) (float64, error) {
	if err := checkWidth(in, len(l.Coefficients)); err != nil {
		return 0, err
	}
	return sigmoid(l.Intercept + dot(l.Coefficients, in.Features)), nil
}

type stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// gradientBoost is an additive ensemble of depth-one trees over log-odds
type gradientBoost struct {
	BaseScore    float64 `json:"base_score"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []stump `json:"trees"`
	featureCount int
}

func newGradientBoost(params json.RawMessage, featureCount int) (Estimator, error) {
	gb := &gradientBoost{LearningRate: 1.0}
	if err := json.Unmarshal(params, gb); err != nil {
		return nil, fmt.Errorf("%w: gradient_boost params: %v", ErrInvalidArtifact, err)
	}
	if len(gb.Trees) == 0 {
		return nil, fmt.Errorf("%w: gradient_boost has no trees", ErrInvalidArtifact)
	}
	for i, tree := range gb.Trees {
		if tree.Feature < 0 || tree.Feature >= featureCount {
			return nil, fmt.Errorf("%w: tree %d splits on feature %d of %d", ErrInvalidArtifact, i, tree.Feature, featureCount)
		}
	}
	gb.featureCount = featureCount
	return gb, nil
}

func (g *gradientBoost) Predict(in Input) (float64, error) {
	if err := checkWidth(in, g.featureCount); err != nil {
		return 0, err
	}
	score := g.BaseScore
	for _, tree := range g.Trees {
		if in.Features[tree.Feature] <= tree.Threshold {
			score += g.LearningRate * tree.Left
		} else {
			score += g.LearningRate * tree.Right
		}
	}
	return sigmoid(score), nil
}

// linearMargin regresses the margin (or total) and converts it into a
// probability with a normal residual: P = Phi((yhat - threshold) / sigma).
type linearMargin struct {
	linearParams
	ResidualStd float64 `json:"residual_std"`
}

func newLinearMargin(params json.RawMessage, featureCount int) (Estimator, error) {
	lm := &linearMargin{}
	if err := json.Unmarshal(params, lm); err != nil {
		return nil, fmt.Errorf("%w: linear_margin params: %v", ErrInvalidArtifact, err)
	}
	if err := lm.validate(featureCount); err != nil {
		return nil, err
	}
	if lm.ResidualStd <= 0 {
		return nil, fmt.Errorf("%w: linear_margin residual_std must be positive", ErrInvalidArtifact)
	}
	return lm, nil
}

func (l *linearMargin) Predict(in Input) (float64, error) {
	if err := checkWidth(in, len(l.Coefficients)); err != nil {
		return 0, err
	}
	predicted := l.Intercept + dot(l.Coefficients, in.Features)
	return normalCDF((predicted - in.Threshold) / l.ResidualStd), nil
}

const defaultMaxGoals = 15

// poissonGoals models each side's goals as an independent Poisson variable
// with a log-linear rate and enumerates the joint score grid exactly.
type poissonGoals struct {
	Home     linearParams `json:"home"`
	Away     linearParams `json:"away"`
	MaxGoals int          `json:"max_goals"`
}

func newPoissonGoals(params json.RawMessage, featureCount int) (Estimator, error) {
	pg := &poissonGoals{}
	if err := json.Unmarshal(params, pg); err != nil {
		return nil, fmt.Errorf("%w: poisson_goals params: %v", ErrInvalidArtifact, err)
	}
	if err := pg.Home.validate(featureCount); err != nil {
		return nil, err
	}
	if err := pg.Away.validate(featureCount); err != nil {
		return nil, err
	}
	if pg.MaxGoals <= 0 {
		pg.MaxGoals = defaultMaxGoals
	}
	return pg, nil
}

func (p *poissonGoals) Predict(in Input) (float64, error) {
	if err := checkWidth(in, len(p.Home.Coefficients)); err != nil {
		return 0, err
	}
	homeRate := math.Exp(p.Home.Intercept + dot(p.Home.Coefficients, in.Features))
	awayRate := math.Exp(p.Away.Intercept + dot(p.Away.Coefficients, in.Features))

	homePMF := poissonPMF(homeRate, p.MaxGoals)
	awayPMF := poissonPMF(awayRate, p.MaxGoals)

	var above, tied, mass float64
	for h, ph := range homePMF {
		for a, pa := range awayPMF {
			joint := ph * pa
			mass += joint

			value := float64(h - a)
			if in.Market == models.MarketOverUnder {
				value = float64(h + a)
			}
			switch {
			case value > in.Threshold:
				above += joint
			case value == in.Threshold:
				tied += joint
			}
		}
	}
	if mass == 0 {
		return 0, fmt.Errorf("%w: empty score grid", ErrInvalidOutput)
	}
	// A total landing on the line is not over, as in the simulator tally.
	if in.Market == models.MarketOverUnder {
		return above / mass, nil
	}
	// Draws and spread pushes count half to each side.
	return (above + 0.5*tied) / mass, nil
}

func poissonPMF(lambda float64, maxGoals int) []float64 {
	pmf := make([]float64, maxGoals+1)
	pmf[0] = math.Exp(-lambda)
	for k := 1; k <= maxGoals; k++ {
		pmf[k] = pmf[k-1] * lambda / float64(k)
	}
	return pmf
}
