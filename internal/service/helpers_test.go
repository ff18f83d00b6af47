package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-forecast/internal/models"
	"github.com/yourusername/clever-forecast/internal/registry"
	"github.com/yourusername/clever-forecast/internal/strategy"
)

const (
	familyConstA models.ModelFamily = "const_a"
	familyConstB models.ModelFamily = "const_b"
	familyConstC models.ModelFamily = "const_c"
	familyCount  models.ModelFamily = "counting"
)

// memoryStore serves artifact documents from a map
type memoryStore struct {
	mu   sync.Mutex
	docs map[registry.Key]*registry.Document
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[registry.Key]*registry.Document)}
}

func (m *memoryStore) put(key registry.Key, doc *registry.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = doc
}

func (m *memoryStore) Load(_ context.Context, key registry.Key) (*registry.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrModelNotFound, key)
	}
	copied := *doc
	return &copied, nil
}

func (m *memoryStore) Families(_ context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]models.ModelFamily, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var families []models.ModelFamily
	for key := range m.docs {
		if key.Sport == sport && key.Market == market && key.State == state {
			families = append(families, key.Family)
		}
	}
	return families, nil
}

// constEstimator always returns the probability in its params
type constEstimator struct {
	p     float64
	calls *atomic.Int32
}

func (c constEstimator) Predict(registry.Input) (float64, error) {
	if c.calls != nil {
		c.calls.Add(1)
	}
	return c.p, nil
}

func constFactory(calls *atomic.Int32) registry.Factory {
	return func(params json.RawMessage, _ int) (registry.Estimator, error) {
		var body struct {
			P float64 `json:"p"`
		}
		if err := json.Unmarshal(params, &body); err != nil {
			return nil, err
		}
		return constEstimator{p: body.P, calls: calls}, nil
	}
}

func key(sport models.Sport, market models.Market, family models.ModelFamily) registry.Key {
	return registry.Key{Sport: sport, Market: market, State: models.StatePreGame, Family: family}
}

func constDoc(schema string, p float64, accuracy *float64) *registry.Document {
	doc := &registry.Document{
		Version:       "1.0.0",
		SchemaVersion: schema,
		FeatureOrder:  []string{"elo_diff"},
		Params:        json.RawMessage(fmt.Sprintf(`{"p": %v}`, p)),
	}
	if accuracy != nil {
		doc.Calibration = &registry.Calibration{Accuracy: accuracy}
	}
	return doc
}

func logisticDoc() *registry.Document {
	acc := 0.66
	return &registry.Document{
		Version:       "2024.1",
		SchemaVersion: "v3",
		FeatureOrder:  []string{"elo_diff", "rest_days"},
		Params:        json.RawMessage(`{"intercept": 0.2, "coefficients": [0.004, 0.05]}`),
		Calibration:   &registry.Calibration{Accuracy: &acc},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fixture struct {
	store      *memoryStore
	registry   *registry.Registry
	strategies *strategy.Catalog
	calls      *atomic.Int32
}

func newFixture() *fixture {
	calls := &atomic.Int32{}
	store := newMemoryStore()
	reg := registry.New(store,
		registry.WithLogger(quietLogger()),
		registry.WithFactory(familyConstA, constFactory(nil)),
		registry.WithFactory(familyConstB, constFactory(nil)),
		registry.WithFactory(familyConstC, constFactory(nil)),
		registry.WithFactory(familyCount, constFactory(calls)),
	)

	acc := 0.6
	store.put(key(models.SportHockey, models.MarketWinner, models.FamilyLogistic), logisticDoc())
	store.put(key(models.SportHockey, models.MarketWinner, familyConstA), constDoc("v3", 0.58, &acc))
	store.put(key(models.SportHockey, models.MarketOverUnder, familyConstA), constDoc("v3", 0.47, nil))

	return &fixture{store: store, registry: reg, strategies: strategy.DefaultCatalog(), calls: calls}
}

func (f *fixture) service(opts ...Option) *PredictionService {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewPredictionService(f.registry, f.strategies, opts...)
}

func seed(v int64) *int64 { return &v }

func hockeyRequest(market models.Market) *models.GameRequest {
	req := &models.GameRequest{
		Sport:    models.SportHockey,
		HomeTeam: "EDM",
		AwayTeam: "CGY",
		AsOf:     time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC),
		Market:   market,
		Features: models.FeatureVector{
			SchemaVersion: "v3",
			Names:         []string{"rest_days", "elo_diff"},
			Values:        []float64{2, 50},
		},
		Seed: seed(42),
	}
	if market.RequiresLine() {
		req.BettingLine = decimal.NewNullDecimal(decimal.RequireFromString("5.5"))
	}
	return req
}
