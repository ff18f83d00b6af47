package models

// FeatureImportance is one entry of an explainability report
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}
