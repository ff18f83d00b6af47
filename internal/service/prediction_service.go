// Package service assembles ensemble predictions from the model registry,
// combiner, score simulator and winner blender.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/clever-forecast/internal/blend"
	"github.com/yourusername/clever-forecast/internal/ensemble"
	"github.com/yourusername/clever-forecast/internal/explain"
	"github.com/yourusername/clever-forecast/internal/logger"
	"github.com/yourusername/clever-forecast/internal/metrics"
	"github.com/yourusername/clever-forecast/internal/models"
	"github.com/yourusername/clever-forecast/internal/registry"
	"github.com/yourusername/clever-forecast/internal/repository"
	"github.com/yourusername/clever-forecast/internal/simulation"
	"github.com/yourusername/clever-forecast/internal/strategy"
	"github.com/yourusername/clever-forecast/internal/tracing"
)

const (
	DefaultSimulationTimeout = 250 * time.Millisecond
	DefaultExplainTimeout    = 500 * time.Millisecond
	DefaultBatchConcurrency  = 8

	persistTimeout = 2 * time.Second
)

// PredictionService orchestrates a single prediction end to end
type PredictionService struct {
	registry        *registry.Registry
	strategies      *strategy.Catalog
	combiner        *ensemble.Combiner
	simulator       *simulation.Simulator
	validator       *RequestValidator
	explainer       explain.Explainer
	predictionRepo  repository.PredictionRepository
	simTimeout      time.Duration
	explainTimeout  time.Duration
	divergenceRatio float64
	batchLimit      int
	logger          *logrus.Logger
	predictionLog   *logger.PredictionLogger
	audit           *logger.AuditLogger
	now             func() time.Time
}

// Option configures a PredictionService
type Option func(*PredictionService)

// WithCombiner replaces the default ensemble combiner
func WithCombiner(c *ensemble.Combiner) Option {
	return func(s *PredictionService) { s.combiner = c }
}

// WithSimulator replaces the default score simulator
func WithSimulator(sim *simulation.Simulator) Option {
	return func(s *PredictionService) { s.simulator = sim }
}

// WithSimulationTimeout bounds each simulation run
func WithSimulationTimeout(d time.Duration) Option {
	return func(s *PredictionService) { s.simTimeout = d }
}

// WithDivergenceRatio sets the variance ratio above which a divergence warning is raised
func WithDivergenceRatio(ratio float64) Option {
	return func(s *PredictionService) { s.divergenceRatio = ratio }
}

// WithExplainer enables explainability reports bounded by timeout
func WithExplainer(e explain.Explainer, timeout time.Duration) Option {
	return func(s *PredictionService) {
		s.explainer = e
		if timeout > 0 {
			s.explainTimeout = timeout
		}
	}
}

// WithPredictionRepository stores every successful prediction
func WithPredictionRepository(repo repository.PredictionRepository) Option {
	return func(s *PredictionService) { s.predictionRepo = repo }
}

// WithBatchConcurrency bounds how many batch requests run at once
func WithBatchConcurrency(n int) Option {
	return func(s *PredictionService) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithLogger sets the service logger
func WithLogger(log *logrus.Logger) Option {
	return func(s *PredictionService) { s.logger = log }
}

// NewPredictionService creates a prediction service over reg and strategies
func NewPredictionService(reg *registry.Registry, strategies *strategy.Catalog, opts ...Option) *PredictionService {
	s := &PredictionService{
		registry:        reg,
		strategies:      strategies,
		combiner:        ensemble.NewCombiner(),
		simulator:       simulation.NewSimulator(),
		validator:       NewRequestValidator(),
		explainer:       explain.NoopExplainer{},
		simTimeout:      DefaultSimulationTimeout,
		explainTimeout:  DefaultExplainTimeout,
		divergenceRatio: simulation.DefaultDivergenceRate,
		batchLimit:      DefaultBatchConcurrency,
		logger:          logrus.StandardLogger(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.predictionLog = logger.NewPredictionLogger(s.logger)
	s.audit = logger.NewAuditLogger(s.logger)
	return s
}

// Predict produces a prediction for one game and market. Any fatal error
// returns a nil result; non-fatal conditions are attached as warnings.
func (s *PredictionService) Predict(ctx context.Context, req *models.GameRequest) (*models.PredictionResult, error) {
	start := time.Now()
	if req == nil {
		return nil, &models.PredictionError{Op: "predict", Err: fmt.Errorf("%w: empty request", models.ErrInvalidRequest)}
	}

	r := *req
	if r.RequestID == uuid.Nil {
		r.RequestID = uuid.New()
	}
	state := r.TemporalStateOrDefault()

	ctx, span := tracing.StartSpan(ctx, "service.Predict",
		attribute.String("request_id", r.RequestID.String()),
		attribute.String("sport", string(r.Sport)),
		attribute.String("market", string(r.Market)),
		attribute.String("temporal_state", string(state)),
	)
	defer span.End()

	result, err := s.predict(ctx, &r, state)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordPrediction(string(r.Sport), string(r.Market), errorStatus(err), elapsed.Seconds())
		tracing.AddError(ctx, err)
		s.predictionLog.LogPredictionFailed(r.RequestID.String(), string(r.Sport), string(r.Market), err)
		return nil, err
	}

	metrics.RecordPrediction(string(r.Sport), string(r.Market), "success", elapsed.Seconds())
	metrics.RecordAgreement(string(r.Sport), string(r.Market), result.CombinedConfidence)
	for _, w := range result.Warnings {
		metrics.RecordWarning(string(w.Code))
		s.predictionLog.LogPredictionWarning(r.RequestID.String(), string(w.Code), w.Message)
	}
	tracing.AddAttributes(ctx,
		attribute.Float64("probability", result.EnsembleProbability),
		attribute.Int("warnings", len(result.Warnings)),
	)
	s.predictionLog.LogPredictionCompleted(r.RequestID.String(), string(r.Sport), string(r.Market), string(state),
		len(result.ContributingModels), result.EnsembleProbability, result.CombinedConfidence,
		len(result.Warnings), float64(elapsed.Microseconds())/1000.0)

	s.persist(ctx, result)
	return result, nil
}

func (s *PredictionService) predict(ctx context.Context, req *models.GameRequest, state models.TemporalState) (*models.PredictionResult, error) {
	fail := func(family models.ModelFamily, err error) error {
		return &models.PredictionError{
			Op:     "predict",
			Sport:  req.Sport,
			Market: req.Market,
			State:  state,
			Family: family,
			Err:    err,
		}
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fail("", err)
	}

	strat, err := s.strategies.Resolve(req.Sport, req.Market, state)
	if err != nil {
		return nil, fail("", fmt.Errorf("%w: %w", models.ErrModelNotFound, err))
	}

	artifacts, err := s.loadArtifacts(ctx, req, state, strat)
	if err != nil {
		var family models.ModelFamily
		var loadErr *artifactError
		if errors.As(err, &loadErr) {
			family, err = loadErr.family, loadErr.err
		}
		return nil, fail(family, err)
	}

	// Every schema is checked before any estimator runs.
	features := make([][]float64, len(artifacts))
	for i, artifact := range artifacts {
		values, err := artifact.ValidateFeatures(req.Features)
		if err != nil {
			return nil, fail(artifact.Family(), err)
		}
		features[i] = values
	}

	threshold := req.Threshold()
	inputs := make([]ensemble.Input, len(artifacts))
	for i, artifact := range artifacts {
		p, err := artifact.Predict(features[i], req.Market, threshold)
		if err != nil {
			return nil, fail(artifact.Family(), err)
		}
		inputs[i] = ensemble.Input{
			Family:      artifact.Family(),
			Version:     artifact.Version(),
			Probability: p,
			Weight:      artifact.PriorWeight(),
		}
	}

	combined, err := s.combiner.Combine(inputs)
	if err != nil {
		return nil, fail("", err)
	}

	var explained <-chan explainOutcome
	if req.Explain {
		top := topContributor(combined.Contributions)
		explained = s.startExplain(ctx, req, artifacts[top], features[top], inputs[top].Probability)
	}

	result := &models.PredictionResult{
		RequestID:           req.RequestID,
		Sport:               req.Sport,
		Market:              req.Market,
		State:               state,
		HomeTeam:            req.HomeTeam,
		AwayTeam:            req.AwayTeam,
		BettingLine:         req.BettingLine,
		EnsembleProbability: combined.Probability,
		CombinedConfidence:  combined.Agreement,
		Policy:              combined.Policy,
		ContributingModels:  combined.Contributions,
		Warnings:            []models.Warning{},
		PredictedAt:         s.now().UTC(),
	}
	if combined.Disagreement {
		result.Warnings = append(result.Warnings, models.NewWarning(models.WarningEnsembleDisagreement,
			"base models disagree: agreement %.3f", combined.Agreement))
	}

	final := combined.Probability
	if req.Market.Simulated() {
		sim, err := s.simulate(ctx, req, strat)
		if err != nil {
			return nil, fail("", fmt.Errorf("%w: %w", models.ErrInvalidRequest, err))
		}
		blended, err := blend.Blend(combined.Probability, simulationProbability(req.Market, strat, sim), strat.ScoreImpact)
		if err != nil {
			return nil, fail("", err)
		}
		final = blended.Probability
		result.Blend = blended
		result.Simulation = sim.Summary()

		s.predictionLog.LogSimulation(req.RequestID.String(), sim.RequestedTrials, sim.Trials,
			sim.Variance(), sim.TimedOut, float64(sim.Duration.Microseconds())/1000.0)
		if sim.TimedOut {
			result.Warnings = append(result.Warnings, models.NewWarning(models.WarningSimulationTimeout,
				"simulation completed %d of %d trials before the deadline", sim.Trials, sim.RequestedTrials))
		}
		if sim.Diverged(s.divergenceRatio) {
			result.Warnings = append(result.Warnings, models.NewWarning(models.WarningSimulationDivergence,
				"simulated total variance %.2f exceeds %.1fx baseline %.2f", sim.Variance(), s.divergenceRatio, sim.BaselineVariance))
		}
	}

	result.Probabilities = outcomeProbabilities(req.Market, final)

	if explained != nil {
		outcome := <-explained
		if outcome.err != nil {
			result.Warnings = append(result.Warnings, models.NewWarning(models.WarningExplainabilityUnavailable,
				"explainability report unavailable: %v", outcome.err))
		} else {
			result.Explainability = outcome.report
		}
	}

	return result, nil
}

// artifactError carries the family whose artifact failed to load
type artifactError struct {
	family models.ModelFamily
	err    error
}

func (e *artifactError) Error() string { return fmt.Sprintf("%s: %v", e.family, e.err) }
func (e *artifactError) Unwrap() error { return e.err }

// loadArtifacts fetches every configured family concurrently. A missing
// artifact for any family fails the whole request.
func (s *PredictionService) loadArtifacts(ctx context.Context, req *models.GameRequest, state models.TemporalState, strat strategy.Strategy) ([]*registry.ModelArtifact, error) {
	families := strat.Families
	if len(families) == 0 {
		var err error
		families, err = s.registry.Families(ctx, req.Sport, req.Market, state)
		if err != nil {
			return nil, err
		}
		if len(families) == 0 {
			return nil, fmt.Errorf("%w: no model families for %s/%s/%s", models.ErrModelNotFound, req.Sport, req.Market, state)
		}
	}

	artifacts := make([]*registry.ModelArtifact, len(families))
	g, gctx := errgroup.WithContext(ctx)
	for i, family := range families {
		g.Go(func() error {
			key := registry.Key{Sport: req.Sport, Market: req.Market, State: state, Family: family}
			artifact, err := s.registry.Get(gctx, key)
			if err != nil {
				return &artifactError{family: family, err: err}
			}
			artifacts[i] = artifact
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (s *PredictionService) simulate(ctx context.Context, req *models.GameRequest, strat strategy.Strategy) (*simulation.Result, error) {
	home, away := strat.Rates(req.HomeRate, req.AwayRate)
	params := simulation.Params{
		Distribution:     strat.Distribution,
		Home:             home,
		Away:             away,
		Seed:             req.Seed,
		BaselineVariance: req.BaselineVariance,
	}
	if req.Market == models.MarketOverUnder {
		line, _ := req.Line()
		params.Line = &line
	}

	if s.simTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.simTimeout)
		defer cancel()
	}
	return s.simulator.Run(ctx, params)
}

// simulationProbability reads the market's primary outcome from a run
func simulationProbability(market models.Market, strat strategy.Strategy, sim *simulation.Result) float64 {
	if market == models.MarketOverUnder {
		return sim.OverProbability()
	}
	p := sim.HomeWinProbability()
	if strat.SplitDraws {
		p += sim.DrawProbability() / 2
	}
	return models.ClampProbability(p)
}

// outcomeProbabilities expands the primary probability into complementary outcomes
func outcomeProbabilities(market models.Market, p float64) map[string]float64 {
	p = models.ClampProbability(p)
	if market == models.MarketOverUnder {
		return map[string]float64{models.OutcomeOver: p, models.OutcomeUnder: 1 - p}
	}
	return map[string]float64{models.OutcomeHome: p, models.OutcomeAway: 1 - p}
}

// topContributor returns the index of the highest-weighted model, first wins on ties
func topContributor(contributions []models.ContributingModel) int {
	top := 0
	for i, c := range contributions {
		if c.Weight > contributions[top].Weight {
			top = i
		}
	}
	return top
}

type explainOutcome struct {
	report []models.FeatureImportance
	err    error
}

// startExplain requests an importance report in the background. The channel
// always receives exactly one outcome, no later than the explain timeout.
func (s *PredictionService) startExplain(ctx context.Context, req *models.GameRequest, artifact *registry.ModelArtifact, values []float64, probability float64) <-chan explainOutcome {
	out := make(chan explainOutcome, 1)
	explainReq := explain.Request{
		ArtifactID:  artifact.ID(),
		Sport:       req.Sport,
		Market:      req.Market,
		Family:      artifact.Family(),
		Features:    artifact.FeatureOrder(),
		Values:      values,
		Probability: probability,
	}

	go func() {
		ctx, cancel := context.WithTimeout(ctx, s.explainTimeout)
		defer cancel()

		report, err := s.explainer.Explain(ctx, explainReq)
		out <- explainOutcome{report: report, err: err}
	}()
	return out
}

// persist stores the result when a repository is configured. Failures are logged only.
func (s *PredictionService) persist(ctx context.Context, result *models.PredictionResult) {
	if s.predictionRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := s.predictionRepo.Insert(ctx, result); err != nil {
		s.logger.WithError(err).WithField("request_id", result.RequestID).Warn("Failed to store prediction")
	}
}

// errorStatus maps an error to the metrics status label
func errorStatus(err error) string {
	switch {
	case errors.Is(err, models.ErrModelNotFound):
		return "model_not_found"
	case errors.Is(err, models.ErrFeatureSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, models.ErrInvalidRequest):
		return "invalid_request"
	default:
		return "error"
	}
}
