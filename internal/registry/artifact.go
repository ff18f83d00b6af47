package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/clever-forecast/internal/models"
)

// Calibration is optional historical performance metadata for an artifact
type Calibration struct {
	Accuracy     *float64  `json:"accuracy,omitempty" yaml:"accuracy"`
	BrierScore   *float64  `json:"brier_score,omitempty" yaml:"brier_score"`
	LogLoss      *float64  `json:"log_loss,omitempty" yaml:"log_loss"`
	SampleSize   int       `json:"sample_size,omitempty" yaml:"sample_size"`
	CalibratedAt time.Time `json:"calibrated_at,omitempty" yaml:"calibrated_at"`
}

// Document is the stored form of a model artifact
type Document struct {
	Sport         models.Sport         `json:"sport"`
	Market        models.Market        `json:"market"`
	State         models.TemporalState `json:"temporal_state"`
	Family        models.ModelFamily   `json:"family"`
	Version       string               `json:"version"`
	SchemaVersion string               `json:"schema_version"`
	FeatureOrder  []string             `json:"feature_order"`
	Params        json.RawMessage      `json:"params"`
	Calibration   *Calibration         `json:"calibration,omitempty"`
}

// ModelArtifact is a loaded, immutable estimator with its metadata.
// It is safe for concurrent use.
type ModelArtifact struct {
	key           Key
	version       string
	schemaVersion string
	featureOrder  []string
	calibration   Calibration
	estimator     Estimator
	loadedAt      time.Time
}

func newArtifact(key Key, doc *Document, factory Factory) (*ModelArtifact, error) {
	if doc.SchemaVersion == "" {
		return nil, fmt.Errorf("%w: %s has no schema version", ErrInvalidArtifact, key)
	}
	if len(doc.FeatureOrder) == 0 {
		return nil, fmt.Errorf("%w: %s has no feature order", ErrInvalidArtifact, key)
	}
	seen := make(map[string]struct{}, len(doc.FeatureOrder))
	for _, name := range doc.FeatureOrder {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s lists feature %q twice", ErrInvalidArtifact, key, name)
		}
		seen[name] = struct{}{}
	}

	estimator, err := factory(doc.Params, len(doc.FeatureOrder))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	artifact := &ModelArtifact{
		key:           key,
		version:       doc.Version,
		schemaVersion: doc.SchemaVersion,
		featureOrder:  append([]string(nil), doc.FeatureOrder...),
		estimator:     estimator,
		loadedAt:      time.Now().UTC(),
	}
	if doc.Calibration != nil {
		artifact.calibration = *doc.Calibration
	}
	return artifact, nil
}

// ID identifies the artifact and its version
func (a *ModelArtifact) ID() string {
	return a.key.String() + "@" + a.version
}

// Key returns the artifact's registry key
func (a *ModelArtifact) Key() Key { return a.key }

// Family returns the model family
func (a *ModelArtifact) Family() models.ModelFamily { return a.key.Family }

// Version returns the trained model version
func (a *ModelArtifact) Version() string { return a.version }

// SchemaVersion returns the feature schema the artifact was trained on
func (a *ModelArtifact) SchemaVersion() string { return a.schemaVersion }

// LoadedAt returns when the artifact was loaded
func (a *ModelArtifact) LoadedAt() time.Time { return a.loadedAt }

// FeatureOrder returns a copy of the fixed feature order
func (a *ModelArtifact) FeatureOrder() []string {
	return append([]string(nil), a.featureOrder...)
}

// PriorWeight returns the historical accuracy used as an ensemble prior.
// Zero means no calibration is available.
func (a *ModelArtifact) PriorWeight() float64 {
	if a.calibration.Accuracy == nil {
		return 0
	}
	return *a.calibration.Accuracy
}

// ValidateFeatures checks a request vector against the artifact schema and
// returns the values projected into the artifact's feature order.
func (a *ModelArtifact) ValidateFeatures(vec models.FeatureVector) ([]float64, error) {
	if vec.SchemaVersion != a.schemaVersion {
		return nil, fmt.Errorf("%w: %s expects schema %q, request has %q",
			models.ErrFeatureSchemaMismatch, a.key, a.schemaVersion, vec.SchemaVersion)
	}
	if len(vec.Names) != len(vec.Values) {
		return nil, fmt.Errorf("%w: %d feature names for %d values",
			models.ErrFeatureSchemaMismatch, len(vec.Names), len(vec.Values))
	}

	index := vec.Lookup()
	projected := make([]float64, len(a.featureOrder))
	for i, name := range a.featureOrder {
		pos, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s requires feature %q", models.ErrFeatureSchemaMismatch, a.key, name)
		}
		projected[i] = vec.Values[pos]
	}
	return projected, nil
}

// Predict runs the estimator on projected features
func (a *ModelArtifact) Predict(features []float64, market models.Market, threshold float64) (float64, error) {
	p, err := a.estimator.Predict(Input{Features: features, Market: market, Threshold: threshold})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", models.ErrInferenceFailed, a.key, err)
	}
	if !models.ValidProbability(p) {
		return 0, fmt.Errorf("%w: %s returned %v", ErrInvalidOutput, a.key, p)
	}
	return p, nil
}
