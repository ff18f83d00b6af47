package models

import "math"

// ValidProbability reports whether p is a finite value in [0,1]
func ValidProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}

// ClampProbability forces p into [0,1], mapping NaN and infinities to 0
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
