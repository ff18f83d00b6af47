package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome keys used in PredictionResult.Probabilities
const (
	OutcomeHome  = "home"
	OutcomeAway  = "away"
	OutcomeOver  = "over"
	OutcomeUnder = "under"
)

// ContributingModel is one base model's share of an ensemble prediction
type ContributingModel struct {
	Family         ModelFamily `json:"family"`
	Version        string      `json:"version,omitempty"`
	RawProbability float64     `json:"raw_probability" validate:"gte=0,lte=1"`
	Weight         float64     `json:"weight" validate:"gte=0,lte=1"`
}

// BlendedPrediction fuses classifier and simulation probabilities.
// Final = Weight*Classifier + (1-Weight)*Simulation.
type BlendedPrediction struct {
	ClassifierProbability float64 `json:"classifier_probability"`
	SimulationProbability float64 `json:"simulation_probability"`
	Weight                float64 `json:"weight"`
	Probability           float64 `json:"probability"`
}

// SimulationSummary reports the Monte Carlo cross-check for a prediction
type SimulationSummary struct {
	Distribution       ScoreDistribution `json:"distribution"`
	TrialCount         int               `json:"trial_count"`
	RequestedTrials    int               `json:"requested_trials"`
	Seed               int64             `json:"seed"`
	MeanScore          float64           `json:"mean_score"`
	MeanHome           float64           `json:"mean_home"`
	MeanAway           float64           `json:"mean_away"`
	Variance           float64           `json:"variance"`
	StdError           float64           `json:"std_error"`
	OverProbability    *float64          `json:"over_probability,omitempty"`
	HomeWinProbability float64           `json:"home_win_probability"`
	DrawProbability    float64           `json:"draw_probability"`
	TimedOut           bool              `json:"timed_out,omitempty"`
}

// PredictionResult is the unified response for one GameRequest
type PredictionResult struct {
	RequestID           uuid.UUID           `json:"request_id"`
	Sport               Sport               `json:"sport"`
	Market              Market              `json:"market"`
	State               TemporalState       `json:"temporal_state"`
	HomeTeam            string              `json:"home_team"`
	AwayTeam            string              `json:"away_team"`
	BettingLine         decimal.NullDecimal `json:"betting_line"`
	Probabilities       map[string]float64  `json:"probabilities"`
	EnsembleProbability float64             `json:"ensemble_probability"`
	CombinedConfidence  float64             `json:"combined_confidence"`
	Policy              string              `json:"policy"`
	ContributingModels  []ContributingModel `json:"contributing_models"`
	Blend               *BlendedPrediction  `json:"blend,omitempty"`
	Simulation          *SimulationSummary  `json:"simulation,omitempty"`
	Warnings            []Warning           `json:"warnings"`
	Explainability      []FeatureImportance `json:"explainability,omitempty"`
	PredictedAt         time.Time           `json:"predicted_at"`
}

// HasWarning reports whether a warning with the given code is attached
func (p *PredictionResult) HasWarning(code WarningCode) bool {
	for _, w := range p.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
