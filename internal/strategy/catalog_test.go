package strategy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/clever-forecast/internal/models"
)

func TestDefaultCatalogResolve(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name         string
		sport        models.Sport
		market       models.Market
		state        models.TemporalState
		distribution models.ScoreDistribution
		impact       float64
		splitDraws   bool
	}{
		{"hockey pre-game", models.SportHockey, models.MarketWinner, models.StatePreGame, models.DistributionPoisson, 0.35, true},
		{"hockey live", models.SportHockey, models.MarketWinner, models.StateLive, models.DistributionPoisson, 0.25, true},
		{"football over under", models.SportFootball, models.MarketOverUnder, models.StatePreGame, models.DistributionPoisson, 0.30, true},
		{"basketball spread", models.SportBasketball, models.MarketSpread, models.StatePreGame, models.DistributionNormal, 0.70, true},
		{"american football live", models.SportAmericanFootball, models.MarketWinner, models.StateLive, models.DistributionNormal, 0.55, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := catalog.Resolve(tt.sport, tt.market, tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.distribution, s.Distribution)
			assert.Equal(t, tt.impact, s.ScoreImpact)
			assert.Equal(t, tt.market, s.Market)
			assert.Equal(t, tt.splitDraws, s.SplitDraws)
		})
	}
}

func TestResolveUnknownSport(t *testing.T) {
	_, err := DefaultCatalog().Resolve("cricket", models.MarketWinner, models.StatePreGame)
	assert.ErrorIs(t, err, ErrNoStrategy)
}

func TestRegisterNewSport(t *testing.T) {
	catalog := DefaultCatalog()
	err := catalog.Register(Strategy{
		Sport:           "rugby",
		State:           models.StatePreGame,
		Distribution:    models.DistributionNormal,
		ScoreImpact:     0.5,
		DefaultHomeRate: models.TeamRate{Mean: 24, StdDev: 9},
		DefaultAwayRate: models.TeamRate{Mean: 21, StdDev: 9},
	})
	require.NoError(t, err)

	s, err := catalog.Resolve("rugby", models.MarketSpread, models.StatePreGame)
	require.NoError(t, err)
	assert.Equal(t, "rugby_any_pre_game", s.Name)
}

func TestExactMarketBeatsWildcard(t *testing.T) {
	catalog := DefaultCatalog()
	require.NoError(t, catalog.Register(Strategy{
		Sport:        models.SportHockey,
		Market:       models.MarketOverUnder,
		State:        models.StatePreGame,
		Families:     []models.ModelFamily{models.FamilyPoissonGoals},
		Distribution: models.DistributionPoisson,
		ScoreImpact:  0.2,
	}))

	ou, err := catalog.Resolve(models.SportHockey, models.MarketOverUnder, models.StatePreGame)
	require.NoError(t, err)
	assert.Equal(t, 0.2, ou.ScoreImpact)
	assert.Equal(t, []models.ModelFamily{models.FamilyPoissonGoals}, ou.Families)

	winner, err := catalog.Resolve(models.SportHockey, models.MarketWinner, models.StatePreGame)
	require.NoError(t, err)
	assert.Equal(t, 0.35, winner.ScoreImpact)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
	}{
		{"missing sport", Strategy{State: models.StatePreGame, Distribution: models.DistributionPoisson}},
		{"bad state", Strategy{Sport: models.SportHockey, State: "halftime", Distribution: models.DistributionPoisson}},
		{"impact above one", Strategy{Sport: models.SportHockey, State: models.StateLive, Distribution: models.DistributionPoisson, ScoreImpact: 1.5}},
		{"unknown distribution", Strategy{Sport: models.SportHockey, State: models.StateLive, Distribution: "gamma"}},
		{"unknown market", Strategy{Sport: models.SportHockey, Market: "PROPS", State: models.StateLive, Distribution: models.DistributionPoisson}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, NewCatalog().Register(tt.strategy), ErrInvalidStrategy)
		})
	}
}

func TestSetScoreImpact(t *testing.T) {
	catalog := DefaultCatalog()

	updated, err := catalog.SetScoreImpact(models.SportBasketball, models.StateLive, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	s, err := catalog.Resolve(models.SportBasketball, models.MarketWinner, models.StateLive)
	require.NoError(t, err)
	assert.Equal(t, 0.8, s.ScoreImpact)

	_, err = catalog.SetScoreImpact(models.SportBasketball, models.StateLive, -0.1)
	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestRatesPreferRequestValues(t *testing.T) {
	s, err := DefaultCatalog().Resolve(models.SportBasketball, models.MarketWinner, models.StatePreGame)
	require.NoError(t, err)

	home, away := s.Rates(&models.TeamRate{Mean: 120}, nil)
	assert.Equal(t, models.TeamRate{Mean: 120, StdDev: 12}, home)
	assert.Equal(t, models.TeamRate{Mean: 111, StdDev: 12}, away)
}

func TestCatalogConcurrentAccess(t *testing.T) {
	catalog := DefaultCatalog()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = catalog.Resolve(models.SportHockey, models.MarketWinner, models.StatePreGame)
		}()
		go func(i int) {
			defer wg.Done()
			_, _ = catalog.SetScoreImpact(models.SportHockey, models.StatePreGame, float64(i%10)/10)
		}(i)
	}
	wg.Wait()
	assert.Len(t, catalog.All(), 10)
}
