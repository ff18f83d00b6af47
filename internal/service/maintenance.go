package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-forecast/internal/models"
	"github.com/yourusername/clever-forecast/internal/registry"
	"github.com/yourusername/clever-forecast/internal/strategy"
)

// ErrRegistryCold indicates no artifact has been loaded yet
var ErrRegistryCold = errors.New("model registry has no loaded artifacts")

// Warm loads every artifact reachable from the strategy catalog and returns
// how many are cached. Missing artifacts are skipped; other failures are joined.
func (s *PredictionService) Warm(ctx context.Context) (int, error) {
	var errs []error
	for _, strat := range s.strategies.All() {
		markets := []models.Market{strat.Market}
		if strat.Market == "" {
			markets = models.KnownMarkets
		}

		for _, market := range markets {
			families := strat.Families
			if len(families) == 0 {
				var err error
				families, err = s.registry.Families(ctx, strat.Sport, market, strat.State)
				if err != nil {
					errs = append(errs, err)
					continue
				}
			}

			for _, family := range families {
				key := registry.Key{Sport: strat.Sport, Market: market, State: strat.State, Family: family}
				if _, err := s.registry.Get(ctx, key); err != nil {
					if !errors.Is(err, models.ErrModelNotFound) {
						errs = append(errs, fmt.Errorf("warm %s: %w", key, err))
					}
				}
			}
		}
	}

	loaded := s.registry.Len()
	s.logger.WithFields(logrus.Fields{
		"component": "prediction",
		"loaded":    loaded,
		"failures":  len(errs),
	}).Info("Model registry warmed")
	return loaded, errors.Join(errs...)
}

// Reload drops every cached artifact and warms the registry again,
// returning how many artifacts were evicted.
func (s *PredictionService) Reload(ctx context.Context) (int, error) {
	evicted := s.registry.ReloadAll()
	_, err := s.Warm(ctx)
	return evicted, err
}

// CheckRegistry reports an error until at least one artifact is cached
func (s *PredictionService) CheckRegistry(context.Context) error {
	if s.registry.Len() == 0 {
		return ErrRegistryCold
	}
	return nil
}

// ConfigureScoreImpact applies blend weight overrides keyed by sport then
// temporal state
func (s *PredictionService) ConfigureScoreImpact(overrides map[string]map[string]float64) error {
	for sport, states := range overrides {
		for state, weight := range states {
			sp, st := models.Sport(sport), models.TemporalState(state)
			previous := 0.0
			if current, err := s.strategies.Resolve(sp, models.MarketWinner, st); err == nil {
				previous = current.ScoreImpact
			}

			updated, err := s.strategies.SetScoreImpact(sp, st, weight)
			if err != nil {
				return err
			}
			if updated == 0 {
				return fmt.Errorf("%w: %s/%s", strategy.ErrNoStrategy, sport, state)
			}
			s.audit.LogScoreImpactChange(sport, state, previous, weight, updated)
		}
	}
	return nil
}

// Families lists the model families that would serve a sport, market and state
func (s *PredictionService) Families(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]models.ModelFamily, error) {
	strat, err := s.strategies.Resolve(sport, market, state)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrModelNotFound, err)
	}
	if len(strat.Families) > 0 {
		return append([]models.ModelFamily(nil), strat.Families...), nil
	}
	return s.registry.Families(ctx, sport, market, state)
}

// Strategies returns every registered strategy
func (s *PredictionService) Strategies() []strategy.Strategy {
	return s.strategies.All()
}
