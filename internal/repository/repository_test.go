package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/clever-forecast/internal/database"
	"github.com/yourusername/clever-forecast/internal/models"
)

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

type fakeRows struct {
	pgx.Rows
	rows   []scanFunc
	idx    int
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return r.rows[r.idx-1](dest...) }
func (r *fakeRows) Err() error             { return nil }
func (r *fakeRows) Close()                 { r.closed = true }

type fakeTx struct {
	pgx.Tx
	execs     []string
	committed bool
	affected  int64
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", t.affected)), nil
}
func (t *fakeTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct {
	row      pgx.Row
	rows     *fakeRows
	execSQL  string
	execArgs []any
	execErr  error
	tx       *fakeTx
	lastArgs []any
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.lastArgs = args
	return f.row
}

func (f *fakeDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	f.lastArgs = args
	return f.rows, nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) { return f.tx, nil }

var _ database.Querier = (*fakeDB)(nil)

func recordScanner(rec models.ModelRecord) scanFunc {
	return func(dest ...any) error {
		*dest[0].(*uuid.UUID) = rec.ID
		*dest[1].(*models.Sport) = rec.Sport
		*dest[2].(*models.Market) = rec.Market
		*dest[3].(*models.TemporalState) = rec.State
		*dest[4].(*models.ModelFamily) = rec.Family
		*dest[5].(*string) = rec.Version
		*dest[6].(*string) = rec.SchemaVersion
		*dest[7].(*string) = rec.Path
		*dest[8].(**float64) = rec.Accuracy
		*dest[9].(*json.RawMessage) = rec.Metrics
		*dest[10].(*time.Time) = rec.TrainedAt
		*dest[11].(*bool) = rec.Active
		*dest[12].(*time.Time) = rec.CreatedAt
		*dest[13].(*time.Time) = rec.UpdatedAt
		return nil
	}
}

func sampleRecord(family models.ModelFamily) models.ModelRecord {
	acc := 0.64
	return models.ModelRecord{
		ID:            uuid.New(),
		Sport:         models.SportHockey,
		Market:        models.MarketWinner,
		State:         models.StatePreGame,
		Family:        family,
		Version:       "1.0.0",
		SchemaVersion: "v3",
		Path:          "hockey/winner/pre_game/" + string(family) + ".json",
		Accuracy:      &acc,
		Active:        true,
	}
}

func TestNewRepositoriesRequiresDB(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)

	repos, err := NewRepositories(&fakeDB{})
	require.NoError(t, err)
	assert.NotNil(t, repos.Models)
	assert.NotNil(t, repos.Predictions)
}

func TestModelRepositoryGetActive(t *testing.T) {
	rec := sampleRecord(models.FamilyLogistic)
	db := &fakeDB{row: recordScanner(rec)}
	repo := NewPostgresModelRepository(db)

	got, err := repo.GetActive(context.Background(), models.SportHockey, models.MarketWinner, models.StatePreGame, models.FamilyLogistic)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, 0.64, *got.Accuracy)
	assert.Equal(t, []any{models.SportHockey, models.MarketWinner, models.StatePreGame, models.FamilyLogistic}, db.lastArgs)
}

func TestModelRepositoryNotFound(t *testing.T) {
	db := &fakeDB{row: scanFunc(func(...any) error { return pgx.ErrNoRows })}
	repo := NewPostgresModelRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.GetActive(context.Background(), models.SportHockey, models.MarketWinner, models.StatePreGame, models.FamilyLogistic)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestModelRepositoryListActive(t *testing.T) {
	rows := &fakeRows{rows: []scanFunc{
		recordScanner(sampleRecord(models.FamilyGradientBoost)),
		recordScanner(sampleRecord(models.FamilyLogistic)),
	}}
	repo := NewPostgresModelRepository(&fakeDB{rows: rows})

	got, err := repo.ListActive(context.Background(), models.SportHockey, models.MarketWinner, models.StatePreGame)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.FamilyGradientBoost, got[0].Family)
	assert.True(t, rows.closed)
}

func TestModelRepositoryCreateDefaults(t *testing.T) {
	db := &fakeDB{}
	repo := NewPostgresModelRepository(db)
	rec := sampleRecord(models.FamilyLogistic)
	rec.ID = uuid.Nil
	rec.State = ""

	require.NoError(t, repo.Create(context.Background(), &rec))
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, models.StatePreGame, rec.State)
	assert.Contains(t, db.execSQL, "INSERT INTO model_artifacts")

	db.execErr = errors.New("duplicate key")
	assert.ErrorContains(t, repo.Create(context.Background(), &rec), "failed to create model record")
}

func TestModelRepositorySetActive(t *testing.T) {
	rec := sampleRecord(models.FamilyLogistic)
	tx := &fakeTx{affected: 1}
	repo := NewPostgresModelRepository(&fakeDB{row: recordScanner(rec), tx: tx})

	require.NoError(t, repo.SetActive(context.Background(), rec.ID))
	require.Len(t, tx.execs, 2)
	assert.Contains(t, tx.execs[0], "active = false")
	assert.True(t, tx.committed)
}

func TestPredictionRepositoryInsert(t *testing.T) {
	db := &fakeDB{}
	repo := NewPostgresPredictionRepository(db)
	result := &models.PredictionResult{
		RequestID:           uuid.New(),
		Sport:               models.SportHockey,
		Market:              models.MarketWinner,
		State:               models.StatePreGame,
		HomeTeam:            "Oilers",
		AwayTeam:            "Flames",
		EnsembleProbability: 0.58,
		CombinedConfidence:  0.9,
		Warnings:            []models.Warning{models.NewWarning(models.WarningSimulationTimeout, "partial")},
		PredictedAt:         time.Now().UTC(),
	}

	require.NoError(t, repo.Insert(context.Background(), result))
	assert.Contains(t, db.execSQL, "ON CONFLICT (request_id) DO NOTHING")
	require.Len(t, db.execArgs, 11)
	assert.Equal(t, []string{"simulation_timeout"}, db.execArgs[8])

	var stored models.PredictionResult
	require.NoError(t, json.Unmarshal(db.execArgs[9].([]byte), &stored))
	assert.Equal(t, result.RequestID, stored.RequestID)
}

func TestPredictionRepositoryGetByRequestID(t *testing.T) {
	want := &models.PredictionResult{RequestID: uuid.New(), Sport: models.SportFootball, EnsembleProbability: 0.41}
	body, err := json.Marshal(want)
	require.NoError(t, err)

	repo := NewPostgresPredictionRepository(&fakeDB{row: scanFunc(func(dest ...any) error {
		*dest[0].(*[]byte) = body
		return nil
	})})

	got, err := repo.GetByRequestID(context.Background(), want.RequestID)
	require.NoError(t, err)
	assert.Equal(t, want.RequestID, got.RequestID)
	assert.Equal(t, 0.41, got.EnsembleProbability)
}

func TestIntegrationModelCatalogRoundTrip(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo := NewPostgresModelRepository(db)
	rec := sampleRecord(models.FamilyLogistic)
	rec.TrainedAt = time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &rec))
	require.NoError(t, repo.SetActive(ctx, rec.ID))

	got, err := repo.GetActive(ctx, rec.Sport, rec.Market, rec.State, rec.Family)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}
