package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/clever-forecast/internal/metrics"
	"github.com/yourusername/clever-forecast/internal/models"
	"github.com/yourusername/clever-forecast/internal/tracing"
)

const (
	DefaultTrials         = 10000
	DefaultBatchSize      = 1000
	DefaultDivergenceRate = 1.5
)

// Params describes one simulation run
type Params struct {
	Distribution models.ScoreDistribution
	Home         models.TeamRate
	Away         models.TeamRate
	Line         *float64
	// Trials overrides the simulator default when positive.
	Trials int
	Seed   *int64
	// BaselineVariance is the historical variance of totals; zero derives it
	// from the scoring-rate parameters.
	BaselineVariance float64
}

func (p Params) validate() error {
	switch p.Distribution {
	case models.DistributionPoisson, models.DistributionNormal:
	default:
		return fmt.Errorf("%w: unknown distribution %q", ErrInvalidParams, p.Distribution)
	}
	for _, v := range []float64{p.Home.Mean, p.Away.Mean, p.Home.StdDev, p.Away.StdDev, p.BaselineVariance} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: scoring parameters must be finite and non-negative", ErrInvalidParams)
		}
	}
	if p.Trials < 0 {
		return fmt.Errorf("%w: negative trial count", ErrInvalidParams)
	}
	if p.Line != nil && (math.IsNaN(*p.Line) || math.IsInf(*p.Line, 0)) {
		return fmt.Errorf("%w: line must be finite", ErrInvalidParams)
	}
	return nil
}

// impliedVariance is the variance of totals the rate parameters imply
func (p Params) impliedVariance() float64 {
	if p.Distribution == models.DistributionNormal {
		return p.Home.StdDev*p.Home.StdDev + p.Away.StdDev*p.Away.StdDev
	}
	return p.Home.Mean + p.Away.Mean
}

// Result is the merged outcome of a simulation run
type Result struct {
	Tally
	Distribution     models.ScoreDistribution
	RequestedTrials  int
	Seed             int64
	Line             *float64
	BaselineVariance float64
	TimedOut         bool
	Duration         time.Duration
}

// Diverged reports whether the simulated variance of totals exceeds ratio
// times the baseline variance.
func (r *Result) Diverged(ratio float64) bool {
	if r.BaselineVariance <= 0 {
		return false
	}
	return r.Variance() > ratio*r.BaselineVariance
}

// Summary converts the result into its response form
func (r *Result) Summary() *models.SimulationSummary {
	summary := &models.SimulationSummary{
		Distribution:       r.Distribution,
		TrialCount:         r.Trials,
		RequestedTrials:    r.RequestedTrials,
		Seed:               r.Seed,
		MeanScore:          r.MeanTotal(),
		MeanHome:           r.MeanHome(),
		MeanAway:           r.MeanAway(),
		Variance:           r.Variance(),
		HomeWinProbability: r.HomeWinProbability(),
		DrawProbability:    r.DrawProbability(),
		TimedOut:           r.TimedOut,
	}
	primary := summary.HomeWinProbability
	if r.Line != nil {
		over := r.OverProbability()
		summary.OverProbability = &over
		primary = over
	}
	summary.StdError = r.StdError(primary)
	return summary
}

// Simulator runs score simulations on a bounded worker pool
type Simulator struct {
	trials    int
	batchSize int
	workers   int
	logger    *logrus.Logger
}

// Option configures a Simulator
type Option func(*Simulator)

// WithTrials sets the default trial count
func WithTrials(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.trials = n
		}
	}
}

// WithBatchSize sets the number of trials per batch
func WithBatchSize(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithWorkers bounds the number of batches run concurrently
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the simulator logger
func WithLogger(log *logrus.Logger) Option {
	return func(s *Simulator) {
		s.logger = log
	}
}

// NewSimulator creates a simulator
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		trials:    DefaultTrials,
		batchSize: DefaultBatchSize,
		workers:   runtime.GOMAXPROCS(0),
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run simulates the requested number of trials. Trials are partitioned into
// fixed batches seeded from (seed, batch index) and merged in batch order,
// so a seeded run is reproducible regardless of worker count. When ctx is
// done no further batches are scheduled; the first batch always completes.
func (s *Simulator) Run(ctx context.Context, p Params) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	requested := p.Trials
	if requested == 0 {
		requested = s.trials
	}

	var seed int64
	if p.Seed != nil {
		seed = *p.Seed
	} else {
		fresh, err := NewSeed()
		if err != nil {
			return nil, err
		}
		seed = fresh
	}

	ctx, span := tracing.StartSpan(ctx, "simulation.Run",
		attribute.String("distribution", string(p.Distribution)),
		attribute.Int("trials", requested),
	)
	defer span.End()

	start := time.Now()
	draw := newSampler(p)
	batches := (requested + s.batchSize - 1) / s.batchSize
	tallies := make([]Tally, batches)

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i := 0; i < batches; i++ {
		if i > 0 && ctx.Err() != nil {
			break
		}
		size := s.batchSize
		if remaining := requested - i*s.batchSize; remaining < size {
			size = remaining
		}
		g.Go(func() error {
			if i > 0 && ctx.Err() != nil {
				return nil
			}
			tallies[i] = runBatch(draw, batchSeed(seed, i), size, p.Line)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{
		Distribution:     p.Distribution,
		RequestedTrials:  requested,
		Seed:             seed,
		Line:             p.Line,
		BaselineVariance: p.BaselineVariance,
	}
	if result.BaselineVariance == 0 {
		result.BaselineVariance = p.impliedVariance()
	}
	for _, t := range tallies {
		result.Merge(t)
	}
	result.TimedOut = result.Trials < requested
	result.Duration = time.Since(start)

	metrics.RecordSimulation(result.Duration.Seconds(), result.TimedOut)
	tracing.AddAttributes(ctx,
		attribute.Int("completed_trials", result.Trials),
		attribute.Bool("timed_out", result.TimedOut),
	)
	s.logger.WithFields(logrus.Fields{
		"requested_trials": requested,
		"completed_trials": result.Trials,
		"batches":          batches,
		"timed_out":        result.TimedOut,
		"duration_ms":      result.Duration.Milliseconds(),
	}).Debug("Simulation run finished")

	return result, nil
}

func runBatch(draw sampler, seed int64, n int, line *float64) Tally {
	rng := rand.New(rand.NewSource(seed))
	var t Tally
	for j := 0; j < n; j++ {
		home, away := draw.sample(rng)
		t.Add(home, away, line)
	}
	return t
}
