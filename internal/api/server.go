// Package api exposes the prediction engine over HTTP and websocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-forecast/internal/models"
	"github.com/yourusername/clever-forecast/internal/service"
)

const (
	DefaultMaxBatchSize = 100
	maxBodyBytes        = 1 << 20
)

// Predictor is the prediction surface served by the API
type Predictor interface {
	Predict(ctx context.Context, req *models.GameRequest) (*models.PredictionResult, error)
	PredictBatch(ctx context.Context, reqs []*models.GameRequest) []service.BatchItem
	Families(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]models.ModelFamily, error)
}

// Server serves the prediction API
type Server struct {
	predictor    Predictor
	logger       *logrus.Logger
	port         int
	maxBatchSize int
	readTimeout  time.Duration
	writeTimeout time.Duration
	metricsPath  string
	metrics      http.Handler
	health       http.Handler
	history      History
	server       *http.Server
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(log *logrus.Logger) Option {
	return func(s *Server) { s.logger = log }
}

// WithPort sets the listen port used by Start
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// WithMaxBatchSize caps the number of requests in one batch call
func WithMaxBatchSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithTimeouts sets the HTTP read and write timeouts
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
	}
}

// WithMetrics mounts a metrics handler at path
func WithMetrics(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metrics = h
	}
}

// WithHealth mounts the /health, /ready and /live probes
func WithHealth(h http.Handler) Option {
	return func(s *Server) { s.health = h }
}

// NewServer creates an API server backed by predictor
func NewServer(predictor Predictor, opts ...Option) *Server {
	s := &Server{
		predictor:    predictor,
		logger:       logrus.StandardLogger(),
		port:         8080,
		maxBatchSize: DefaultMaxBatchSize,
		readTimeout:  10 * time.Second,
		writeTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/predictions", s.handlePredict)
	mux.HandleFunc("POST /v1/predictions/batch", s.handleBatch)
	mux.HandleFunc("GET /v1/models/{sport}/{market}", s.handleModels)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	if s.history != nil {
		mux.HandleFunc("GET /v1/predictions", s.handleRecentPredictions)
		mux.HandleFunc("GET /v1/predictions/{id}", s.handleGetPrediction)
	}
	if s.metrics != nil && s.metricsPath != "" {
		mux.Handle("GET "+s.metricsPath, s.metrics)
	}
	if s.health != nil {
		mux.Handle("GET /health", s.health)
		mux.Handle("GET /ready", s.health)
		mux.Handle("GET /live", s.health)
	}
	return s.recoverer(s.requestLogger(mux))
}

// Start serves the API in the background until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + strconv.Itoa(s.port),
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithField("port", s.port).Info("Prediction API starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Prediction API server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()
	return nil
}

// Shutdown gracefully stops the API server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Prediction API shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.GameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	result, err := s.predictor.Predict(r.Context(), &req)
	if err != nil {
		writePredictionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BatchRequest is the body of a batch prediction call
type BatchRequest struct {
	Requests []*models.GameRequest `json:"requests"`
}

// BatchResult is one entry of a batch response, in request order
type BatchResult struct {
	Index  int                      `json:"index"`
	Result *models.PredictionResult `json:"result,omitempty"`
	Error  *ErrorResponse           `json:"error,omitempty"`
}

// BatchResponse is the body returned by a batch prediction call
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var batch BatchRequest
	if err := decodeJSON(w, r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(batch.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "batch contains no requests")
		return
	}
	if len(batch.Requests) > s.maxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge, "batch_too_large",
			"batch of "+strconv.Itoa(len(batch.Requests))+" exceeds limit of "+strconv.Itoa(s.maxBatchSize))
		return
	}

	items := s.predictor.PredictBatch(r.Context(), batch.Requests)
	resp := BatchResponse{Results: make([]BatchResult, len(items))}
	for i, item := range items {
		resp.Results[i] = BatchResult{Index: item.Index, Result: item.Result}
		if item.Err != nil {
			_, body := errorBody(item.Err)
			resp.Results[i].Error = &body
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ModelsResponse lists the families serving a slot
type ModelsResponse struct {
	Sport    models.Sport         `json:"sport"`
	Market   models.Market        `json:"market"`
	State    models.TemporalState `json:"temporal_state"`
	Families []models.ModelFamily `json:"families"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	sport := models.Sport(strings.ToLower(r.PathValue("sport")))
	market := models.Market(strings.ToUpper(r.PathValue("market")))
	state := models.TemporalState(r.URL.Query().Get("state"))
	if state == "" {
		state = models.StatePreGame
	}

	if !market.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown market "+string(market))
		return
	}
	if !state.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown temporal state "+string(state))
		return
	}

	families, err := s.predictor.Families(r.Context(), sport, market, state)
	if err != nil {
		writePredictionError(w, err)
		return
	}
	if families == nil {
		families = []models.ModelFamily{}
	}
	writeJSON(w, http.StatusOK, ModelsResponse{Sport: sport, Market: market, State: state, Families: families})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
