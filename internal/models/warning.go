package models

import "fmt"

// WarningCode classifies a non-fatal anomaly attached to a prediction
type WarningCode string

const (
	WarningEnsembleDisagreement      WarningCode = "ensemble_disagreement"
	WarningSimulationDivergence      WarningCode = "simulation_divergence"
	WarningSimulationTimeout         WarningCode = "simulation_timeout"
	WarningExplainabilityUnavailable WarningCode = "explainability_unavailable"
)

// Warning is a non-fatal condition surfaced alongside a complete result
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// NewWarning builds a warning with a formatted message
func NewWarning(code WarningCode, format string, args ...interface{}) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}
