package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/clever-forecast/internal/models"
	"github.com/yourusername/clever-forecast/internal/registry"
)

type MockModelCatalog struct {
	mock.Mock
}

func (m *MockModelCatalog) Create(ctx context.Context, record *models.ModelRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockModelCatalog) GetByID(ctx context.Context, id uuid.UUID) (*models.ModelRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModelRecord), args.Error(1)
}

func (m *MockModelCatalog) GetActive(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState, family models.ModelFamily) (*models.ModelRecord, error) {
	args := m.Called(ctx, sport, market, state, family)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModelRecord), args.Error(1)
}

func (m *MockModelCatalog) ListActive(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]*models.ModelRecord, error) {
	args := m.Called(ctx, sport, market, state)
	return args.Get(0).([]*models.ModelRecord), args.Error(1)
}

func (m *MockModelCatalog) SetActive(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func writeArtifactFile(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

const logisticArtifact = `{
	"version": "2024.3",
	"schema_version": "v3",
	"feature_order": ["elo_diff", "rest_days"],
	"params": {"intercept": 0.1, "coefficients": [0.004, 0.05]}
}`

func TestCatalogRegister(t *testing.T) {
	root := t.TempDir()
	writeArtifactFile(t, root, "hockey/winner/pre_game/logistic.json", logisticArtifact)
	writeArtifactFile(t, root, "hockey/winner/pre_game/logistic.calibration.yaml",
		"accuracy: 0.63\nbrier_score: 0.22\nsample_size: 900\ncalibrated_at: 2024-02-01T00:00:00Z\n")

	repo := new(MockModelCatalog)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.ModelRecord")).Return(nil)

	svc := NewCatalogService(repo, registry.NewFileStore(root), nil, quietLogger())
	record, err := svc.Register(context.Background(), "hockey/winner/pre_game/logistic.json")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, models.SportHockey, record.Sport)
	assert.Equal(t, models.MarketWinner, record.Market)
	assert.Equal(t, models.FamilyLogistic, record.Family)
	assert.Equal(t, "2024.3", record.Version)
	assert.Equal(t, "v3", record.SchemaVersion)
	assert.Equal(t, "hockey/winner/pre_game/logistic.json", record.Path)
	assert.False(t, record.Active)
	require.NotNil(t, record.Accuracy)
	assert.Equal(t, 0.63, *record.Accuracy)
	assert.Equal(t, 2024, record.TrainedAt.Year())

	var metrics map[string]float64
	require.NoError(t, json.Unmarshal(record.Metrics, &metrics))
	assert.Equal(t, 0.22, metrics["brier_score"])
	assert.Equal(t, 900.0, metrics["sample_size"])
	repo.AssertExpectations(t)
}

func TestCatalogRegisterRejectsBadPaths(t *testing.T) {
	root := t.TempDir()
	repo := new(MockModelCatalog)
	svc := NewCatalogService(repo, registry.NewFileStore(root), nil, quietLogger())

	_, err := svc.Register(context.Background(), "hockey/logistic.json")
	assert.ErrorIs(t, err, registry.ErrInvalidArtifact)

	_, err = svc.Register(context.Background(), "hockey/winner/pre_game/logistic.json")
	assert.ErrorIs(t, err, models.ErrModelNotFound)

	writeArtifactFile(t, root, "hockey/winner/pre_game/gradient_boost.json",
		`{"schema_version": "v3", "feature_order": ["elo_diff"], "params": {}}`)
	_, err = svc.Register(context.Background(), "hockey/winner/pre_game/gradient_boost.json")
	assert.ErrorIs(t, err, registry.ErrInvalidArtifact)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogActivateInvalidatesRegistry(t *testing.T) {
	f := newFixture()
	k := key(models.SportHockey, models.MarketWinner, familyConstA)
	_, err := f.registry.Get(context.Background(), k)
	require.NoError(t, err)
	before := f.registry.Len()

	id := uuid.New()
	repo := new(MockModelCatalog)
	repo.On("SetActive", mock.Anything, id).Return(nil)
	repo.On("GetByID", mock.Anything, id).Return(&models.ModelRecord{
		ID: id, Sport: models.SportHockey, Market: models.MarketWinner, State: models.StatePreGame,
		Family: familyConstA, Version: "2.0.0", Active: true,
	}, nil)

	svc := NewCatalogService(repo, registry.NewFileStore(t.TempDir()), f.registry, quietLogger())
	record, err := svc.Activate(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", record.Version)
	assert.Equal(t, before-1, f.registry.Len())
	repo.AssertExpectations(t)
}

func TestCatalogActivateNotFound(t *testing.T) {
	id := uuid.New()
	repo := new(MockModelCatalog)
	repo.On("SetActive", mock.Anything, id).Return(models.ErrNotFound)

	svc := NewCatalogService(repo, registry.NewFileStore(t.TempDir()), nil, quietLogger())
	_, err := svc.Activate(context.Background(), id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}
