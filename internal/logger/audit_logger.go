// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides a dedicated audit trail for operator-driven changes.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogModelActivation logs a model artifact being activated or retired in the catalog.
func (al *AuditLogger) LogModelActivation(artifactID, key, version string, active bool, timestamp time.Time) {
	al.WithFields(logrus.Fields{
		"artifact_id": artifactID,
		"artifact":    key,
		"version":     version,
		"active":      active,
		"timestamp":   timestamp.Unix(),
	}).Info("Model activation changed")
}

// LogScoreImpactChange logs a score-impact weight override.
func (al *AuditLogger) LogScoreImpactChange(sport, state string, oldValue, newValue float64, strategiesUpdated int) {
	al.WithFields(logrus.Fields{
		"sport":              sport,
		"state":              state,
		"old_value":          oldValue,
		"new_value":          newValue,
		"strategies_updated": strategiesUpdated,
	}).Info("Score impact weight changed")
}

// LogCircuitBreakerEvent logs circuit breaker transitions on outbound clients.
func (al *AuditLogger) LogCircuitBreakerEvent(client, eventType string, consecutiveFailures int) {
	al.WithFields(logrus.Fields{
		"client":               client,
		"event_type":           eventType,
		"consecutive_failures": consecutiveFailures,
	}).Warn("Circuit breaker event recorded")
}

// LogConfigReload logs a configuration or registry reload triggered by an operator or schedule.
func (al *AuditLogger) LogConfigReload(source, trigger string, evicted int) {
	al.WithFields(logrus.Fields{
		"source":  source,
		"trigger": trigger,
		"evicted": evicted,
	}).Info("Reload recorded")
}
