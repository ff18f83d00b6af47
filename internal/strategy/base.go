package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yourusername/clever-forecast/internal/models"
)

type catalogKey struct {
	sport  models.Sport
	market models.Market
	state  models.TemporalState
}

// Catalog holds registered strategies. It is safe for concurrent use.
type Catalog struct {
	mu         sync.RWMutex
	strategies map[catalogKey]Strategy
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{strategies: make(map[catalogKey]Strategy)}
}

// Register adds or replaces a strategy
func (c *Catalog) Register(s Strategy) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Name == "" {
		s.Name = defaultName(s)
	}
	s.Families = append([]models.ModelFamily(nil), s.Families...)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies[catalogKey{s.Sport, s.Market, s.State}] = s
	return nil
}

// Resolve returns the strategy for a key, falling back from an exact market
// match to the sport-wide strategy for the temporal state.
func (c *Catalog) Resolve(sport models.Sport, market models.Market, state models.TemporalState) (Strategy, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if s, ok := c.strategies[catalogKey{sport, market, state}]; ok {
		s.Families = append([]models.ModelFamily(nil), s.Families...)
		return s, nil
	}
	if s, ok := c.strategies[catalogKey{sport, "", state}]; ok {
		s.Market = market
		s.Families = append([]models.ModelFamily(nil), s.Families...)
		return s, nil
	}
	return Strategy{}, fmt.Errorf("%w: sport=%s market=%s state=%s", ErrNoStrategy, sport, market, state)
}

// SetScoreImpact overrides the blend weight of every strategy for a sport and
// state, returning the number of strategies updated.
func (c *Catalog) SetScoreImpact(sport models.Sport, state models.TemporalState, weight float64) (int, error) {
	if weight < 0 || weight > 1 {
		return 0, fmt.Errorf("%w: score impact %v outside [0,1]", ErrInvalidStrategy, weight)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	updated := 0
	for key, s := range c.strategies {
		if key.sport == sport && key.state == state {
			s.ScoreImpact = weight
			c.strategies[key] = s
			updated++
		}
	}
	return updated, nil
}

// All returns every registered strategy in a stable order
func (c *Catalog) All() []Strategy {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make([]Strategy, 0, len(c.strategies))
	for _, s := range c.strategies {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Sport != all[j].Sport {
			return all[i].Sport < all[j].Sport
		}
		if all[i].State != all[j].State {
			return all[i].State < all[j].State
		}
		return all[i].Market < all[j].Market
	})
	return all
}

func defaultName(s Strategy) string {
	market := "any"
	if s.Market != "" {
		market = string(s.Market)
	}
	return fmt.Sprintf("%s_%s_%s", s.Sport, market, s.State)
}

// DefaultCatalog returns a catalog with the built-in sport strategies
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, s := range builtins() {
		if err := c.Register(s); err != nil {
			panic(err)
		}
	}
	return c
}

func builtins() []Strategy {
	poisson := func(sport models.Sport, state models.TemporalState, impact, home, away float64, splitDraws bool) Strategy {
		return Strategy{
			Sport:           sport,
			State:           state,
			Distribution:    models.DistributionPoisson,
			ScoreImpact:     impact,
			DefaultHomeRate: models.TeamRate{Mean: home},
			DefaultAwayRate: models.TeamRate{Mean: away},
			SplitDraws:      splitDraws,
		}
	}
	normal := func(sport models.Sport, state models.TemporalState, impact float64, home, away models.TeamRate) Strategy {
		return Strategy{
			Sport:           sport,
			State:           state,
			Distribution:    models.DistributionNormal,
			ScoreImpact:     impact,
			DefaultHomeRate: home,
			DefaultAwayRate: away,
			// Both normal-scored sports settle ties in overtime.
			SplitDraws:      true,
		}
	}

	return []Strategy{
		poisson(models.SportFootball, models.StatePreGame, 0.30, 1.5, 1.2, true),
		poisson(models.SportFootball, models.StateLive, 0.25, 1.5, 1.2, true),
		// Regulation ties go to overtime, so draws are split evenly.
		poisson(models.SportHockey, models.StatePreGame, 0.35, 3.1, 2.9, true),
		poisson(models.SportHockey, models.StateLive, 0.25, 3.1, 2.9, true),
		poisson(models.SportBaseball, models.StatePreGame, 0.45, 4.6, 4.4, true),
		poisson(models.SportBaseball, models.StateLive, 0.40, 4.6, 4.4, true),
		normal(models.SportBasketball, models.StatePreGame, 0.70,
			models.TeamRate{Mean: 114, StdDev: 12}, models.TeamRate{Mean: 111, StdDev: 12}),
		normal(models.SportBasketball, models.StateLive, 0.65,
			models.TeamRate{Mean: 114, StdDev: 12}, models.TeamRate{Mean: 111, StdDev: 12}),
		normal(models.SportAmericanFootball, models.StatePreGame, 0.60,
			models.TeamRate{Mean: 23.5, StdDev: 10}, models.TeamRate{Mean: 21, StdDev: 10}),
		normal(models.SportAmericanFootball, models.StateLive, 0.55,
			models.TeamRate{Mean: 23.5, StdDev: 10}, models.TeamRate{Mean: 21, StdDev: 10}),
	}
}
