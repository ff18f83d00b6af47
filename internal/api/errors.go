package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yourusername/clever-forecast/internal/models"
)

// ErrorResponse is the JSON body of every failed call
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorBody maps a prediction error to an HTTP status and body
func errorBody(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, models.ErrModelNotFound):
		return http.StatusNotFound, ErrorResponse{Code: "model_not_found", Message: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Code: "not_found", Message: err.Error()}
	case errors.Is(err, models.ErrFeatureSchemaMismatch):
		return http.StatusUnprocessableEntity, ErrorResponse{Code: "feature_schema_mismatch", Message: err.Error()}
	case errors.Is(err, models.ErrInvalidRequest):
		return http.StatusBadRequest, ErrorResponse{Code: "invalid_request", Message: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: "internal_error", Message: err.Error()}
	}
}

func writePredictionError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
