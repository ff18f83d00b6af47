package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeatureVector is the upstream feature pipeline output for one game
type FeatureVector struct {
	SchemaVersion string    `json:"schema_version" validate:"required"`
	Names         []string  `json:"names" validate:"required,min=1,dive,required"`
	Values        []float64 `json:"values" validate:"required,min=1"`
}

// Lookup returns a name to position index for the vector
func (f FeatureVector) Lookup() map[string]int {
	index := make(map[string]int, len(f.Names))
	for i, name := range f.Names {
		index[name] = i
	}
	return index
}

// TeamRate holds calibrated scoring-rate parameters for one side
type TeamRate struct {
	Mean   float64 `json:"mean" validate:"gte=0"`
	StdDev float64 `json:"std_dev,omitempty" validate:"gte=0"`
}

// GameRequest is a single forecast request for one game and market
type GameRequest struct {
	RequestID   uuid.UUID           `json:"request_id,omitempty"`
	Sport       Sport               `json:"sport" validate:"required"`
	HomeTeam    string              `json:"home_team" validate:"required"`
	AwayTeam    string              `json:"away_team" validate:"required,nefield=HomeTeam"`
	AsOf        time.Time           `json:"as_of" validate:"required"`
	Market      Market              `json:"market" validate:"required,oneof=WINNER OVER_UNDER SPREAD"`
	State       TemporalState       `json:"temporal_state,omitempty" validate:"omitempty,oneof=pre_game live"`
	Features    FeatureVector       `json:"features"`
	BettingLine decimal.NullDecimal `json:"betting_line"`
	HomeRate    *TeamRate           `json:"home_rate,omitempty"`
	AwayRate    *TeamRate           `json:"away_rate,omitempty"`
	// BaselineVariance is the historical variance of total score for the matchup.
	BaselineVariance float64 `json:"baseline_variance,omitempty" validate:"gte=0"`
	Seed             *int64  `json:"seed,omitempty"`
	Explain          bool    `json:"explain,omitempty"`
}

// TemporalStateOrDefault returns the request state, defaulting to pre-game
func (r *GameRequest) TemporalStateOrDefault() TemporalState {
	if r.State == "" {
		return StatePreGame
	}
	return r.State
}

// Line returns the betting line as a float and whether one was supplied
func (r *GameRequest) Line() (float64, bool) {
	if !r.BettingLine.Valid {
		return 0, false
	}
	return r.BettingLine.Decimal.InexactFloat64(), true
}

// Threshold returns the value the predicted margin or total must exceed
// for the market's primary outcome (home win, over, home cover).
func (r *GameRequest) Threshold() float64 {
	line, ok := r.Line()
	if !ok {
		return 0
	}
	switch r.Market {
	case MarketOverUnder:
		return line
	case MarketSpread:
		// Line is the home handicap: home covers when margin + line > 0.
		return -line
	default:
		return 0
	}
}
