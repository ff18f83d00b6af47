package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-forecast/internal/config"
	"github.com/yourusername/clever-forecast/internal/database"
	"github.com/yourusername/clever-forecast/internal/ensemble"
	"github.com/yourusername/clever-forecast/internal/explain"
	"github.com/yourusername/clever-forecast/internal/registry"
	"github.com/yourusername/clever-forecast/internal/repository"
	"github.com/yourusername/clever-forecast/internal/service"
	"github.com/yourusername/clever-forecast/internal/simulation"
	"github.com/yourusername/clever-forecast/internal/strategy"
)

// app holds the wired prediction stack shared by every command
type app struct {
	db        *database.DB
	repos     *repository.Repositories
	registry  *registry.Registry
	predictor *service.PredictionService
	http      *explain.RateLimitedHTTPClient
}

func buildApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{}

	if cfg.Database.Enabled {
		db, err := database.Initialize(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db
		repos, err := repository.NewRepositories(db)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to create repositories: %w", err)
		}
		a.repos = repos
	}

	files := registry.NewFileStore(cfg.Registry.ArtifactRoot)
	var store registry.Store = files
	if cfg.Registry.Backend == "catalog" {
		if a.repos == nil {
			a.close()
			return nil, fmt.Errorf("catalog registry backend requires the database")
		}
		store = registry.NewCatalogStore(a.repos.Models, files)
	}
	a.registry = registry.New(store,
		registry.WithLogger(log),
		registry.WithLoadTimeout(cfg.RegistryLoadTimeout()),
	)

	policy, err := ensemble.PolicyByName(cfg.Ensemble.Policy)
	if err != nil {
		a.close()
		return nil, err
	}
	combiner := ensemble.NewCombiner(
		ensemble.WithPolicy(policy),
		ensemble.WithMinAgreement(cfg.Ensemble.MinAgreement),
	)
	simulator := simulation.NewSimulator(
		simulation.WithTrials(cfg.Simulation.Trials),
		simulation.WithBatchSize(cfg.Simulation.BatchSize),
		simulation.WithWorkers(cfg.Simulation.Workers),
		simulation.WithLogger(log),
	)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithCombiner(combiner),
		service.WithSimulator(simulator),
		service.WithSimulationTimeout(cfg.SimulationTimeout()),
		service.WithDivergenceRatio(cfg.Simulation.DivergenceRatio),
	}
	if cfg.Explainability.Enabled {
		opts = append(opts, service.WithExplainer(a.explainer(cfg, log), cfg.ExplainTimeout()))
	}
	if a.repos != nil && cfg.Database.StorePredictions {
		opts = append(opts, service.WithPredictionRepository(a.repos.Predictions))
	}

	a.predictor = service.NewPredictionService(a.registry, strategy.DefaultCatalog(), opts...)
	if err := a.predictor.ConfigureScoreImpact(cfg.Blend.ScoreImpact); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to apply score impact overrides: %w", err)
	}
	return a, nil
}

func (a *app) explainer(cfg *config.Config, log *logrus.Logger) explain.Explainer {
	clientCfg := explain.DefaultHTTPClientConfig()
	if cfg.Explainability.MaxRetries > 0 {
		clientCfg.MaxRetries = cfg.Explainability.MaxRetries
	}
	if cfg.Explainability.RateLimit > 0 {
		clientCfg.RateLimit = cfg.Explainability.RateLimit
	}
	if timeout := cfg.ExplainTimeout(); timeout > 0 {
		clientCfg.Timeout = timeout
	}
	if cooldown := cfg.BreakerCooldown(); cooldown > 0 {
		clientCfg.CooldownPeriod = cooldown
	}
	a.http = explain.NewRateLimitedHTTPClient(clientCfg, log)

	var e explain.Explainer = explain.NewHTTPExplainer(a.http, cfg.Explainability.URL, cfg.Explainability.APIKey)
	if ttl := cfg.ExplainCacheTTL(); ttl > 0 {
		e = explain.NewCachedExplainer(e, explain.NewReportCache(ttl, cfg.Explainability.CacheMaxSize))
	}
	return e
}

func (a *app) close() {
	if a.http != nil {
		_ = a.http.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
