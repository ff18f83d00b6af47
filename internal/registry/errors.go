// Package registry loads, caches and serves immutable model artifacts.
package registry

import "errors"

var (
	// ErrUnknownFamily indicates no estimator adapter is registered for a family
	ErrUnknownFamily = errors.New("unknown model family")

	// ErrInvalidArtifact indicates a stored artifact document is malformed
	ErrInvalidArtifact = errors.New("invalid model artifact")

	// ErrInvalidOutput indicates an estimator produced a value outside [0,1]
	ErrInvalidOutput = errors.New("estimator output out of range")
)
