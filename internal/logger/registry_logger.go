// Package logger provides model registry logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// RegistryLogger provides dedicated logging for model artifact lifecycle events.
type RegistryLogger struct {
	*logrus.Entry
}

// NewRegistryLogger creates a new registry logger.
func NewRegistryLogger(baseLogger *logrus.Logger) *RegistryLogger {
	return &RegistryLogger{
		Entry: baseLogger.WithField("component", "registry"),
	}
}

// LogArtifactLoaded logs a completed artifact load.
func (rl *RegistryLogger) LogArtifactLoaded(key, version, schemaVersion string, featureCount int, priorWeight, durationMs float64) {
	rl.WithFields(logrus.Fields{
		"artifact":       key,
		"version":        version,
		"schema_version": schemaVersion,
		"feature_count":  featureCount,
		"prior_weight":   priorWeight,
		"load_ms":        durationMs,
	}).Info("Model artifact loaded")
}

// LogArtifactLoadFailed logs a failed artifact load.
func (rl *RegistryLogger) LogArtifactLoadFailed(key string, err error) {
	rl.WithField("artifact", key).WithError(err).Warn("Model artifact load failed")
}

// LogReload logs an explicit cache reload.
func (rl *RegistryLogger) LogReload(scope string, evicted int) {
	rl.WithFields(logrus.Fields{
		"scope":   scope,
		"evicted": evicted,
	}).Info("Model registry reloaded")
}
