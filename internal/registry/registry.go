package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-forecast/internal/logger"
	"github.com/yourusername/clever-forecast/internal/metrics"
	"github.com/yourusername/clever-forecast/internal/models"
)

// entry is a per-key slot loaded exactly once; ready closes when the load ends
type entry struct {
	ready    chan struct{}
	done     atomic.Bool
	artifact *ModelArtifact
	err      error
}

// Registry lazily loads artifacts from a Store and caches them by key.
// Concurrent callers for the same key share a single load.
type Registry struct {
	store     Store
	factories map[models.ModelFamily]Factory
	entries     sync.Map // Key -> *entry
	loadTimeout time.Duration
	logger      *logger.RegistryLogger
}

// Option configures a Registry
type Option func(*Registry)

// WithFactory registers or replaces the estimator adapter for a family
func WithFactory(family models.ModelFamily, factory Factory) Option {
	return func(r *Registry) {
		r.factories[family] = factory
	}
}

// WithLogger sets the registry logger
func WithLogger(log *logrus.Logger) Option {
	return func(r *Registry) {
		r.logger = logger.NewRegistryLogger(log)
	}
}

// WithLoadTimeout bounds a single artifact load. Zero means no bound.
func WithLoadTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.loadTimeout = d
	}
}

// New creates a registry over store with the built-in family adapters
func New(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:     store,
		factories: DefaultFactories(),
		logger:    logger.NewRegistryLogger(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the artifact for key, loading it on first use. A failed load
// is not cached; the next caller retries. The shared load does not inherit
// the caller's cancellation, so a caller that gives up leaves the load
// running for the remaining waiters.
func (r *Registry) Get(ctx context.Context, key Key) (*ModelArtifact, error) {
	fresh := &entry{ready: make(chan struct{})}
	value, loaded := r.entries.LoadOrStore(key, fresh)
	e := value.(*entry)
	if !loaded {
		go r.fill(context.WithoutCancel(ctx), key, e)
	}

	select {
	case <-e.ready:
		return e.artifact, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) fill(ctx context.Context, key Key, e *entry) {
	if r.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.loadTimeout)
		defer cancel()
	}

	e.artifact, e.err = r.load(ctx, key)
	if e.err != nil {
		r.entries.CompareAndDelete(key, e)
	}
	e.done.Store(true)
	close(e.ready)
	metrics.UpdateCachedArtifacts(float64(r.Len()))
}

func (r *Registry) load(ctx context.Context, key Key) (*ModelArtifact, error) {
	start := time.Now()

	factory, ok := r.factories[key.Family]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownFamily, key.Family)
		r.recordLoad(key, start, nil, err)
		return nil, err
	}

	doc, err := r.store.Load(ctx, key)
	if err != nil {
		r.recordLoad(key, start, nil, err)
		return nil, err
	}

	artifact, err := newArtifact(key, doc, factory)
	r.recordLoad(key, start, artifact, err)
	return artifact, err
}

func (r *Registry) recordLoad(key Key, start time.Time, artifact *ModelArtifact, err error) {
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordArtifactLoad(string(key.Family), "error", elapsed.Seconds())
		r.logger.LogArtifactLoadFailed(key.String(), err)
		return
	}
	metrics.RecordArtifactLoad(string(key.Family), "success", elapsed.Seconds())
	r.logger.LogArtifactLoaded(key.String(), artifact.Version(), artifact.SchemaVersion(),
		len(artifact.featureOrder), artifact.PriorWeight(), float64(elapsed.Microseconds())/1000.0)
}

// Families lists the model families available for a sport, market and state
func (r *Registry) Families(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]models.ModelFamily, error) {
	families, err := r.store.Families(ctx, sport, market, state)
	if err != nil {
		return nil, err
	}
	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })
	return families, nil
}

// Reload drops the cached artifact for key; the next Get reloads it
func (r *Registry) Reload(key Key) {
	evicted := 0
	if _, ok := r.entries.LoadAndDelete(key); ok {
		evicted = 1
	}
	r.logger.LogReload(key.String(), evicted)
	metrics.UpdateCachedArtifacts(float64(r.Len()))
}

// ReloadAll drops every cached artifact and returns how many were evicted
func (r *Registry) ReloadAll() int {
	evicted := 0
	r.entries.Range(func(key, _ interface{}) bool {
		r.entries.Delete(key)
		evicted++
		return true
	})
	r.logger.LogReload("all", evicted)
	metrics.UpdateCachedArtifacts(0)
	return evicted
}

// Len returns the number of loaded artifacts
func (r *Registry) Len() int {
	count := 0
	r.entries.Range(func(_, value interface{}) bool {
		e := value.(*entry)
		if e.done.Load() && e.err == nil {
			count++
		}
		return true
	})
	return count
}
