// Package strategy resolves sport-specific prediction behaviour keyed by
// sport, market and temporal state.
package strategy

import (
	"errors"
	"fmt"

	"github.com/yourusername/clever-forecast/internal/models"
)

var (
	// ErrNoStrategy indicates no strategy is registered for a key
	ErrNoStrategy = errors.New("no strategy registered")

	// ErrInvalidStrategy indicates a strategy failed validation on registration
	ErrInvalidStrategy = errors.New("invalid strategy")
)

// Strategy is the sport-specific configuration used to assemble a prediction.
// An empty Market matches every market of the sport and state.
type Strategy struct {
	Name         string                   `json:"name"`
	Sport        models.Sport             `json:"sport"`
	Market       models.Market            `json:"market,omitempty"`
	State        models.TemporalState     `json:"temporal_state"`
	Families     []models.ModelFamily     `json:"families,omitempty"`
	Distribution models.ScoreDistribution `json:"distribution"`
	// ScoreImpact is the classifier weight in the winner blend; low-scoring
	// sports trust the score simulation more and carry a lower value.
	ScoreImpact     float64         `json:"score_impact"`
	DefaultHomeRate models.TeamRate `json:"default_home_rate"`
	DefaultAwayRate models.TeamRate `json:"default_away_rate"`
	// SplitDraws counts simulated draws half to each side of the winner market.
	SplitDraws bool `json:"split_draws"`
}

// Validate checks the strategy is usable
func (s Strategy) Validate() error {
	if s.Sport == "" {
		return fmt.Errorf("%w: sport is required", ErrInvalidStrategy)
	}
	if s.Market != "" && !s.Market.Valid() {
		return fmt.Errorf("%w: unknown market %q", ErrInvalidStrategy, s.Market)
	}
	if !s.State.Valid() {
		return fmt.Errorf("%w: unknown temporal state %q", ErrInvalidStrategy, s.State)
	}
	if s.ScoreImpact < 0 || s.ScoreImpact > 1 {
		return fmt.Errorf("%w: score impact %v outside [0,1]", ErrInvalidStrategy, s.ScoreImpact)
	}
	switch s.Distribution {
	case models.DistributionPoisson, models.DistributionNormal:
	default:
		return fmt.Errorf("%w: unknown distribution %q", ErrInvalidStrategy, s.Distribution)
	}
	if s.DefaultHomeRate.Mean < 0 || s.DefaultAwayRate.Mean < 0 {
		return fmt.Errorf("%w: scoring rates must be non-negative", ErrInvalidStrategy)
	}
	return nil
}

// Rates returns the home and away scoring rates, preferring request values
func (s Strategy) Rates(home, away *models.TeamRate) (models.TeamRate, models.TeamRate) {
	h, a := s.DefaultHomeRate, s.DefaultAwayRate
	if home != nil {
		h = *home
		if h.StdDev == 0 {
			h.StdDev = s.DefaultHomeRate.StdDev
		}
	}
	if away != nil {
		a = *away
		if a.StdDev == 0 {
			a.StdDev = s.DefaultAwayRate.StdDev
		}
	}
	return h, a
}
