package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ModelRecord is a catalog entry describing one stored model artifact
type ModelRecord struct {
	ID            uuid.UUID       `db:"id" json:"id" validate:"required"`
	Sport         Sport           `db:"sport" json:"sport" validate:"required"`
	Market        Market          `db:"market" json:"market" validate:"required"`
	State         TemporalState   `db:"temporal_state" json:"temporal_state" validate:"required"`
	Family        ModelFamily     `db:"family" json:"family" validate:"required"`
	Version       string          `db:"version" json:"version" validate:"required"`
	SchemaVersion string          `db:"schema_version" json:"schema_version" validate:"required"`
	Path          string          `db:"path" json:"path" validate:"required"`
	Accuracy      *float64        `db:"accuracy" json:"accuracy,omitempty" validate:"omitempty,gte=0,lte=1"`
	Metrics       json.RawMessage `db:"metrics" json:"metrics"`
	TrainedAt     time.Time       `db:"trained_at" json:"trained_at"`
	Active        bool            `db:"active" json:"active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// GetMetric retrieves a metric value from the Metrics JSON
func (m *ModelRecord) GetMetric(name string) (interface{}, error) {
	if m.Metrics == nil {
		return nil, nil
	}

	var metrics map[string]interface{}
	if err := json.Unmarshal(m.Metrics, &metrics); err != nil {
		return nil, err
	}

	return metrics[name], nil
}
