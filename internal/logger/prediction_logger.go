// Package logger provides prediction-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// PredictionLogger provides dedicated logging for prediction requests.
type PredictionLogger struct {
	*logrus.Entry
}

// NewPredictionLogger creates a new prediction logger.
func NewPredictionLogger(baseLogger *logrus.Logger) *PredictionLogger {
	return &PredictionLogger{
		Entry: baseLogger.WithField("component", "prediction"),
	}
}

// LogPredictionCompleted logs a successfully assembled prediction.
func (pl *PredictionLogger) LogPredictionCompleted(requestID, sport, market, state string, modelsUsed int, probability, confidence float64, warnings int, latencyMs float64) {
	pl.WithFields(logrus.Fields{
		"request_id":  requestID,
		"sport":       sport,
		"market":      market,
		"state":       state,
		"models_used": modelsUsed,
		"probability": probability,
		"confidence":  confidence,
		"warnings":    warnings,
		"latency_ms":  latencyMs,
	}).Info("Prediction completed")
}

// LogPredictionWarning logs a non-fatal anomaly attached to a prediction.
func (pl *PredictionLogger) LogPredictionWarning(requestID, code, message string) {
	pl.WithFields(logrus.Fields{
		"request_id": requestID,
		"code":       code,
	}).Warn(message)
}

// LogPredictionFailed logs a fatal prediction error.
func (pl *PredictionLogger) LogPredictionFailed(requestID, sport, market string, err error) {
	pl.WithFields(logrus.Fields{
		"request_id": requestID,
		"sport":      sport,
		"market":     market,
	}).WithError(err).Error("Prediction failed")
}

// LogSimulation logs a completed Monte Carlo cross-check.
func (pl *PredictionLogger) LogSimulation(requestID string, requestedTrials, completedTrials int, variance float64, timedOut bool, latencyMs float64) {
	pl.WithFields(logrus.Fields{
		"request_id":       requestID,
		"requested_trials": requestedTrials,
		"completed_trials": completedTrials,
		"variance":         variance,
		"timed_out":        timedOut,
		"latency_ms":       latencyMs,
	}).Debug("Simulation completed")
}
