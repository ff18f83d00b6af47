package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/clever-forecast/internal/models"
	"github.com/yourusername/clever-forecast/internal/service"
)

type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, req *models.GameRequest) (*models.PredictionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PredictionResult), args.Error(1)
}

func (m *MockPredictor) PredictBatch(ctx context.Context, reqs []*models.GameRequest) []service.BatchItem {
	args := m.Called(ctx, reqs)
	return args.Get(0).([]service.BatchItem)
}

func (m *MockPredictor) Families(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]models.ModelFamily, error) {
	args := m.Called(ctx, sport, market, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ModelFamily), args.Error(1)
}

const requestBody = `{
	"sport": "hockey",
	"home_team": "EDM",
	"away_team": "CGY",
	"as_of": "2024-03-02T18:00:00Z",
	"market": "OVER_UNDER",
	"betting_line": "5.5",
	"features": {"schema_version": "v3", "names": ["elo_diff"], "values": [50]},
	"seed": 7
}`

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func sampleResult() *models.PredictionResult {
	return &models.PredictionResult{
		RequestID:           uuid.MustParse("8d3f4c1e-5b7a-4f0e-9a51-0c2d8e6b1f22"),
		Sport:               models.SportHockey,
		Market:              models.MarketOverUnder,
		State:               models.StatePreGame,
		Probabilities:       map[string]float64{models.OutcomeOver: 0.54, models.OutcomeUnder: 0.46},
		EnsembleProbability: 0.52,
		CombinedConfidence:  0.9,
		Warnings:            []models.Warning{},
	}
}

func newTestServer(p Predictor, opts ...Option) http.Handler {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewServer(p, opts...).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlePredict(t *testing.T) {
	p := new(MockPredictor)
	p.On("Predict", mock.Anything, mock.MatchedBy(func(req *models.GameRequest) bool {
		line, ok := req.Line()
		return ok && line == 5.5 && req.Market == models.MarketOverUnder && *req.Seed == 7
	})).Return(sampleResult(), nil)

	rec := do(t, newTestServer(p), http.MethodPost, "/v1/predictions", requestBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got models.PredictionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0.54, got.Probabilities[models.OutcomeOver])
	assert.Equal(t, sampleResult().RequestID, got.RequestID)
	p.AssertExpectations(t)
}

func TestHandlePredictErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"model not found", &models.PredictionError{Op: "predict", Err: models.ErrModelNotFound}, http.StatusNotFound, "model_not_found"},
		{"schema mismatch", fmt.Errorf("wrap: %w", models.ErrFeatureSchemaMismatch), http.StatusUnprocessableEntity, "feature_schema_mismatch"},
		{"invalid", models.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(MockPredictor)
			p.On("Predict", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := do(t, newTestServer(p), http.MethodPost, "/v1/predictions", requestBody)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestHandlePredictBadJSON(t *testing.T) {
	p := new(MockPredictor)

	rec := do(t, newTestServer(p), http.MethodPost, "/v1/predictions", `{"sport":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, newTestServer(p), http.MethodPost, "/v1/predictions", `{"unknown_field": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	p.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestHandlePredictWrongMethod(t *testing.T) {
	rec := do(t, newTestServer(new(MockPredictor)), http.MethodGet, "/v1/predictions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleBatch(t *testing.T) {
	p := new(MockPredictor)
	p.On("PredictBatch", mock.Anything, mock.MatchedBy(func(reqs []*models.GameRequest) bool { return len(reqs) == 2 })).
		Return([]service.BatchItem{
			{Index: 0, Result: sampleResult()},
			{Index: 1, Err: models.ErrModelNotFound},
		})

	body := `{"requests": [` + requestBody + `,` + requestBody + `]}`
	rec := do(t, newTestServer(p), http.MethodPost, "/v1/predictions/batch", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.NotNil(t, resp.Results[0].Result)
	assert.Nil(t, resp.Results[0].Error)
	assert.Nil(t, resp.Results[1].Result)
	assert.Equal(t, "model_not_found", resp.Results[1].Error.Code)
}

func TestHandleBatchLimits(t *testing.T) {
	p := new(MockPredictor)
	h := newTestServer(p, WithMaxBatchSize(1))

	rec := do(t, h, http.MethodPost, "/v1/predictions/batch", `{"requests": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/predictions/batch", `{"requests": [`+requestBody+`,`+requestBody+`]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	p.AssertNotCalled(t, "PredictBatch", mock.Anything, mock.Anything)
}

func TestHandleModels(t *testing.T) {
	p := new(MockPredictor)
	p.On("Families", mock.Anything, models.SportHockey, models.MarketWinner, models.StateLive).
		Return([]models.ModelFamily{models.FamilyLogistic, models.FamilyPoissonGoals}, nil)
	p.On("Families", mock.Anything, models.Sport("curling"), models.MarketWinner, models.StatePreGame).
		Return(nil, models.ErrModelNotFound)

	h := newTestServer(p)

	rec := do(t, h, http.MethodGet, "/v1/models/hockey/winner?state=live", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ModelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []models.ModelFamily{models.FamilyLogistic, models.FamilyPoissonGoals}, resp.Families)
	assert.Equal(t, models.StateLive, resp.State)

	rec = do(t, h, http.MethodGet, "/v1/models/curling/WINNER", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/models/hockey/MONEYLINE", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/models/hockey/WINNER?state=halftime", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMountedHandlers(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("metrics")) })
	health := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(r.URL.Path)) })
	h := newTestServer(new(MockPredictor), WithMetrics("/metrics", metrics), WithHealth(health))

	assert.Equal(t, "metrics", do(t, h, http.MethodGet, "/metrics", "").Body.String())
	assert.Equal(t, "/ready", do(t, h, http.MethodGet, "/ready", "").Body.String())
	assert.Equal(t, "/live", do(t, h, http.MethodGet, "/live", "").Body.String())
}

func TestRecovererReturns500(t *testing.T) {
	p := new(MockPredictor)
	p.On("Predict", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("estimator exploded") })

	rec := do(t, newTestServer(p), http.MethodPost, "/v1/predictions", requestBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStream(t *testing.T) {
	p := new(MockPredictor)
	p.On("Predict", mock.Anything, mock.MatchedBy(func(req *models.GameRequest) bool { return req.Sport == models.SportHockey })).
		Return(sampleResult(), nil)
	p.On("Predict", mock.Anything, mock.MatchedBy(func(req *models.GameRequest) bool { return req.Sport == "curling" })).
		Return(nil, models.ErrModelNotFound)

	srv := httptest.NewServer(newTestServer(p))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	curling := strings.Replace(requestBody, `"hockey"`, `"curling"`, 1)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(requestBody)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(curling)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	frames := make(map[int]StreamMessage)
	for i := 0; i < 3; i++ {
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		frames[msg.Seq] = msg
	}

	assert.Equal(t, OpResult, frames[0].Op)
	require.NotNil(t, frames[0].Result)
	assert.Equal(t, 0.54, frames[0].Result.Probabilities[models.OutcomeOver])

	assert.Equal(t, OpError, frames[1].Op)
	assert.Equal(t, "model_not_found", frames[1].Error.Code)

	assert.Equal(t, OpError, frames[2].Op)
	assert.Equal(t, "invalid_json", frames[2].Error.Code)
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer(new(MockPredictor), WithLogger(quietLogger()), WithPort(0))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.NoError(t, NewServer(new(MockPredictor)).Shutdown(context.Background()))
}
