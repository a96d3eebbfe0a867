// pkg/core/errors.go
package core

import "errors"

// Every failure of a simulation run wraps exactly one of these sentinels.
// None of them is transient; callers abort the run instead of retrying.
var (
	// ErrConfiguration reports a parameter outside its valid range.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrCapacityExceeded reports more vehicles than road cells.
	ErrCapacityExceeded = errors.New("number of vehicles exceeds street length")

	// ErrInvalidProbability reports a dawdle probability outside [0, 1].
	ErrInvalidProbability = errors.New("invalid dawdle probability")

	// ErrCollisionInvariant reports two vehicles landing on the same cell.
	ErrCollisionInvariant = errors.New("collision invariant violated")

	// ErrSpeedInvariant reports a speed outside [0, max speed].
	ErrSpeedInvariant = errors.New("speed invariant violated")

	// ErrDistributionExhausted reports a speed distribution with no matching bracket.
	ErrDistributionExhausted = errors.New("speed distribution exhausted")
)
