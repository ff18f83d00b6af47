package models

import (
	"errors"
	"fmt"
	"strings"
)

// Custom errors
var (
	ErrModelNotFound         = errors.New("model not found")
	ErrFeatureSchemaMismatch = errors.New("feature schema mismatch")
	ErrInvalidRequest        = errors.New("invalid prediction request")
	ErrInferenceFailed       = errors.New("model inference failed")
	ErrNotFound              = errors.New("record not found")
)

// PredictionError is a fatal prediction failure carrying sport/market/family context
type PredictionError struct {
	Op     string
	Sport  Sport
	Market Market
	State  TemporalState
	Family ModelFamily
	Err    error
}

func (e *PredictionError) Error() string {
	parts := []string{}
	if e.Sport != "" {
		parts = append(parts, "sport="+string(e.Sport))
	}
	if e.Market != "" {
		parts = append(parts, "market="+string(e.Market))
	}
	if e.State != "" {
		parts = append(parts, "state="+string(e.State))
	}
	if e.Family != "" {
		parts = append(parts, "family="+string(e.Family))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, strings.Join(parts, " "), e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}
