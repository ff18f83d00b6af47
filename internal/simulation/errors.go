// Package simulation runs seeded, batch-parallel Monte Carlo score simulations.
package simulation

import "errors"

var (
	// ErrInvalidParams indicates simulation parameters failed validation
	ErrInvalidParams = errors.New("invalid simulation parameters")
)
