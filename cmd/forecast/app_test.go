package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/clever-forecast/internal/api"
	"github.com/yourusername/clever-forecast/internal/config"
	"github.com/yourusername/clever-forecast/internal/models"
)

const gameRequest = `{
	"sport": "hockey",
	"home_team": "EDM",
	"away_team": "CGY",
	"as_of": "2024-03-02T18:00:00Z",
	"market": "WINNER",
	"features": {"schema_version": "v3", "names": ["rest_days", "elo_diff"], "values": [2, 50]},
	"seed": 11
}`

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// artifactTree lays out hockey winner artifacts in the file store format
func artifactTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "hockey", "winner", "pre_game")

	writeFile(t, filepath.Join(dir, "logistic.json"), `{
		"version": "2024.1",
		"schema_version": "v3",
		"feature_order": ["elo_diff", "rest_days"],
		"params": {"intercept": 0.1, "coefficients": [0.004, 0.05]}
	}`)
	writeFile(t, filepath.Join(dir, "logistic.calibration.yaml"), "accuracy: 0.64\nsample_size: 1200\n")

	writeFile(t, filepath.Join(dir, "poisson_goals.json"), `{
		"version": "2024.2",
		"schema_version": "v3",
		"feature_order": ["elo_diff", "rest_days"],
		"params": {
			"home": {"intercept": 1.1, "coefficients": [0.001, 0.0]},
			"away": {"intercept": 1.05, "coefficients": [-0.001, 0.0]},
			"max_goals": 12
		}
	}`)
	return root
}

func testConfig(root string) *config.Config {
	return &config.Config{
		App:        config.AppConfig{Name: "clever-forecast", Environment: "development", LogLevel: "info"},
		Registry:   config.RegistryConfig{Backend: "file", ArtifactRoot: root},
		Ensemble:   config.EnsembleConfig{Policy: "weighted_mean", MinAgreement: 0.6},
		Simulation: config.SimulationConfig{Trials: 5000, BatchSize: 500, Workers: 2, TimeoutMs: 2000, DivergenceRatio: 1.5},
		Blend: config.BlendConfig{ScoreImpact: map[string]map[string]float64{
			"hockey": {"pre_game": 0.4},
		}},
		Server: config.ServerConfig{HTTPPort: 8080, MaxBatchSize: 10},
	}
}

func TestBuildAppServesPredictions(t *testing.T) {
	cfg := testConfig(artifactTree(t))
	a, err := buildApp(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer a.close()

	h := api.NewServer(a.predictor, api.WithLogger(quietLogger())).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/predictions", strings.NewReader(gameRequest)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.PredictionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.ContributingModels, 2)
	require.NotNil(t, result.Blend)
	assert.Equal(t, 0.4, result.Blend.Weight)
	assert.Equal(t, 5000, result.Simulation.RequestedTrials)
	assert.InDelta(t, 1.0, result.Probabilities[models.OutcomeHome]+result.Probabilities[models.OutcomeAway], 1e-12)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/models/hockey/WINNER", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed api.ModelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, []models.ModelFamily{models.FamilyLogistic, models.FamilyPoissonGoals}, listed.Families)

	loaded, err := a.predictor.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
}

func TestBuildAppRejectsCatalogWithoutDatabase(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Registry.Backend = "catalog"

	_, err := buildApp(context.Background(), cfg, quietLogger())
	assert.ErrorContains(t, err, "requires the database")
}

func TestBuildAppRejectsUnknownScoreImpactSport(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Blend.ScoreImpact = map[string]map[string]float64{"curling": {"pre_game": 0.5}}

	_, err := buildApp(context.Background(), cfg, quietLogger())
	assert.ErrorContains(t, err, "score impact")
}

func TestReadRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.json")
	writeFile(t, path, gameRequest)

	req, err := readRequest(path)
	require.NoError(t, err)
	assert.Equal(t, models.SportHockey, req.Sport)
	assert.Equal(t, []float64{2, 50}, req.Features.Values)

	_, err = readRequest(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	writeFile(t, path, `{"sport":`)
	_, err = readRequest(path)
	assert.ErrorContains(t, err, "failed to parse request")
}
