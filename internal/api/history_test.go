package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/clever-forecast/internal/models"
)

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) GetByRequestID(ctx context.Context, id uuid.UUID) (*models.PredictionResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PredictionResult), args.Error(1)
}

func (m *MockHistory) GetRecent(ctx context.Context, sport models.Sport, market models.Market, since time.Time, limit int) ([]*models.PredictionResult, error) {
	args := m.Called(ctx, sport, market, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PredictionResult), args.Error(1)
}

func TestHistoryRoutesRequireRepository(t *testing.T) {
	rec := do(t, newTestServer(new(MockPredictor)), http.MethodGet, "/v1/predictions/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPrediction(t *testing.T) {
	result := sampleResult()
	missing := uuid.New()

	h := new(MockHistory)
	h.On("GetByRequestID", mock.Anything, result.RequestID).Return(result, nil)
	h.On("GetByRequestID", mock.Anything, missing).Return(nil, models.ErrNotFound)
	srv := newTestServer(new(MockPredictor), WithHistory(h))

	rec := do(t, srv, http.MethodGet, "/v1/predictions/"+result.RequestID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.PredictionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, result.RequestID, got.RequestID)

	rec = do(t, srv, http.MethodGet, "/v1/predictions/"+missing.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/predictions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentPredictions(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	h := new(MockHistory)
	h.On("GetRecent", mock.Anything, models.SportHockey, models.MarketOverUnder, since, maxHistoryLimit).
		Return([]*models.PredictionResult{sampleResult()}, nil)
	h.On("GetRecent", mock.Anything, models.SportBasketball, models.MarketWinner, mock.AnythingOfType("time.Time"), defaultHistoryLimit).
		Return(nil, nil)
	srv := newTestServer(new(MockPredictor), WithHistory(h))

	rec := do(t, srv, http.MethodGet, "/v1/predictions?sport=hockey&market=over_under&since=2024-03-01T00:00:00Z&limit=9000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Predictions, 1)

	rec = do(t, srv, http.MethodGet, "/v1/predictions?sport=basketball&market=WINNER", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"predictions": []}`, rec.Body.String())

	for _, query := range []string{
		"?market=WINNER",
		"?sport=hockey&market=PARLAY",
		"?sport=hockey&market=WINNER&since=yesterday",
		"?sport=hockey&market=WINNER&limit=-1",
	} {
		rec = do(t, srv, http.MethodGet, "/v1/predictions"+query, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
	h.AssertExpectations(t)
}
