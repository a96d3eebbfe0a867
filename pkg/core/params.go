// pkg/core/params.go
package core

import (
	"fmt"
	"math"
)

// UnlimitedSpeed marks a road without a fixed speed limit. Vehicles then
// draw their max speed from the speed distribution.
const UnlimitedSpeed = -1

// Parameters configures one simulation run. The engine treats it as
// read-only once the run has started.
type Parameters struct {
	StreetLength      int     `json:"streetLength" mapstructure:"streetLength"`
	InitialCars       int     `json:"initialCars" mapstructure:"initialCars"`
	MaxSpeed          int     `json:"maxSpeed" mapstructure:"maxSpeed"`
	Iterations        int     `json:"iterations" mapstructure:"iterations"`
	DawdleProbability float64 `json:"dawdleProbability" mapstructure:"dawdleProbability"`
	AlwaysUnlimited   bool    `json:"alwaysUnlimited" mapstructure:"alwaysUnlimited"`
	StartAtZero       bool    `json:"startAtZero" mapstructure:"startAtZero"`

	// Workers is the number of road partitions processed in parallel.
	// Zero and one both mean sequential.
	Workers int `json:"workers" mapstructure:"workers"`

	// Seed feeds the run's random source. Zero means "pick one"; the
	// chosen seed is written back before the run starts.
	Seed int64 `json:"seed" mapstructure:"seed"`
}

// SpeedUnlimited reports whether vehicles draw their max speed from the
// distribution instead of using MaxSpeed.
func (p Parameters) SpeedUnlimited() bool {
	return p.AlwaysUnlimited || p.MaxSpeed == UnlimitedSpeed
}

// Validate checks every precondition the core relies on and returns the
// first violation.
func (p Parameters) Validate() error {
	if p.StreetLength <= 0 {
		return fmt.Errorf("%w: street length must be greater than 0, got %d", ErrConfiguration, p.StreetLength)
	}
	if p.InitialCars < 0 {
		return fmt.Errorf("%w: number of initial cars must not be negative, got %d", ErrConfiguration, p.InitialCars)
	}
	if p.InitialCars > p.StreetLength {
		return fmt.Errorf("%w: %d cars on %d cells", ErrCapacityExceeded, p.InitialCars, p.StreetLength)
	}
	if p.MaxSpeed < 0 && p.MaxSpeed != UnlimitedSpeed {
		return fmt.Errorf("%w: max speed must be >= 0 or %d for unlimited, got %d", ErrConfiguration, UnlimitedSpeed, p.MaxSpeed)
	}
	if p.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be greater than 0, got %d", ErrConfiguration, p.Iterations)
	}
	if err := ValidateProbability(p.DawdleProbability); err != nil {
		return err
	}
	if p.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrConfiguration, p.Workers)
	}
	return nil
}

// ValidateProbability rejects values outside [0, 1], including NaN.
func ValidateProbability(prob float64) error {
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return fmt.Errorf("%w: %v is not within [0, 1]", ErrInvalidProbability, prob)
	}
	return nil
}
