package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/clever-forecast/internal/models"
)

func TestValidateRequestAcceptsValid(t *testing.T) {
	v := NewRequestValidator()
	assert.Empty(t, v.ValidateRequest(hockeyRequest(models.MarketWinner)))
	assert.Empty(t, v.ValidateRequest(hockeyRequest(models.MarketOverUnder)))
}

func TestValidateRequestCollectsViolations(t *testing.T) {
	req := hockeyRequest(models.MarketSpread)
	req.BettingLine.Valid = false
	req.HomeRate = &models.TeamRate{Mean: math.Inf(1)}
	req.Features.Names = []string{"elo_diff", "elo_diff", "rest_days"}

	violations := NewRequestValidator().ValidateRequest(req)

	assert.Contains(t, violations, "betting_line is required for SPREAD")
	assert.Contains(t, violations, "features has 3 names for 2 values")
	assert.Contains(t, violations, `feature "elo_diff" is listed twice`)
	assert.Contains(t, violations, "home_rate mean must be finite")
}

func TestValidateWrapsInvalidRequest(t *testing.T) {
	req := hockeyRequest(models.MarketWinner)
	req.HomeTeam = ""

	err := NewRequestValidator().Validate(req)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
	assert.ErrorContains(t, err, "GameRequest.HomeTeam failed required")
}

func TestValidateRequestRateViolationOrder(t *testing.T) {
	req := hockeyRequest(models.MarketWinner)
	req.HomeRate = &models.TeamRate{Mean: math.Inf(1)}
	req.AwayRate = &models.TeamRate{Mean: math.Inf(1)}

	v := NewRequestValidator()
	for i := 0; i < 20; i++ {
		assert.Equal(t, []string{
			"home_rate mean must be finite",
			"away_rate mean must be finite",
		}, v.ValidateRequest(req))
	}
}
