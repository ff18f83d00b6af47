package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/clever-forecast/internal/models"
)

const (
	defaultHistoryWindow = 24 * time.Hour
	defaultHistoryLimit  = 50
	maxHistoryLimit      = 500
)

// History reads stored prediction results
type History interface {
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.PredictionResult, error)
	GetRecent(ctx context.Context, sport models.Sport, market models.Market, since time.Time, limit int) ([]*models.PredictionResult, error)
}

// WithHistory serves stored predictions under /v1/predictions
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// HistoryResponse lists stored predictions, newest first
type HistoryResponse struct {
	Predictions []*models.PredictionResult `json:"predictions"`
}

func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request id must be a UUID")
		return
	}

	result, err := s.history.GetByRequestID(r.Context(), id)
	if err != nil {
		writePredictionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sport := models.Sport(strings.ToLower(q.Get("sport")))
	market := models.Market(strings.ToUpper(q.Get("market")))
	if sport == "" || !market.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "sport and a known market are required")
		return
	}

	since := time.Now().Add(-defaultHistoryWindow)
	if raw := q.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "since must be RFC3339")
			return
		}
		since = parsed
	}

	limit := defaultHistoryLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	results, err := s.history.GetRecent(r.Context(), sport, market, since, limit)
	if err != nil {
		writePredictionError(w, err)
		return
	}
	if results == nil {
		results = []*models.PredictionResult{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Predictions: results})
}
