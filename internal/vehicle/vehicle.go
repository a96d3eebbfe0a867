// Package vehicle holds the vehicle entity of the road: an immutable max
// speed and a current speed that is always within [0, max speed].
package vehicle

import (
	"fmt"
	"math/rand"

	"github.com/ringroad/nasch/pkg/core"
)

// Vehicle is a value type. A road cell owns its vehicle; moving it between
// cells copies the value and clears the source slot.
type Vehicle struct {
	maxSpeed int
	speed    int
}

// New creates a vehicle whose max speed is drawn from DefaultDistribution,
// or fixed to the top bracket when unlimited is set.
func New(startAtZero, unlimited bool, rng *rand.Rand) (Vehicle, error) {
	maxSpeed := DefaultDistribution.Top()
	if !unlimited {
		var err error
		maxSpeed, err = DefaultDistribution.Draw(rng.Float64())
		if err != nil {
			return Vehicle{}, err
		}
	}
	return NewWithMaxSpeed(startAtZero, maxSpeed, rng)
}

// NewWithMaxSpeed creates a vehicle with a fixed max speed.
func NewWithMaxSpeed(startAtZero bool, maxSpeed int, rng *rand.Rand) (Vehicle, error) {
	if maxSpeed < 0 {
		return Vehicle{}, fmt.Errorf("%w: max speed must not be negative, got %d", core.ErrConfiguration, maxSpeed)
	}
	v := Vehicle{maxSpeed: maxSpeed}
	if !startAtZero {
		v.speed = rng.Intn(maxSpeed + 1)
	}
	return v, nil
}

// FromState rebuilds a vehicle with an explicit speed.
func FromState(maxSpeed, speed int) (Vehicle, error) {
	if maxSpeed < 0 {
		return Vehicle{}, fmt.Errorf("%w: max speed must not be negative, got %d", core.ErrConfiguration, maxSpeed)
	}
	return Vehicle{maxSpeed: maxSpeed}.WithSpeed(speed)
}

// MaxSpeed returns the vehicle's speed limit.
func (v Vehicle) MaxSpeed() int { return v.maxSpeed }

// Speed returns the current speed.
func (v Vehicle) Speed() int { return v.speed }

// WithSpeed returns a copy travelling at speed.
func (v Vehicle) WithSpeed(speed int) (Vehicle, error) {
	if speed < 0 || speed > v.maxSpeed {
		return v, fmt.Errorf("%w: speed %d outside [0, %d]", core.ErrSpeedInvariant, speed, v.maxSpeed)
	}
	v.speed = speed
	return v, nil
}

// Accelerate returns a copy one unit faster, capped at the max speed.
func (v Vehicle) Accelerate() Vehicle {
	if v.speed < v.maxSpeed {
		v.speed++
	}
	return v
}

// Dawdle returns a copy one unit slower. A stopped vehicle stays stopped.
func (v Vehicle) Dawdle() Vehicle {
	if v.speed > 0 {
		v.speed--
	}
	return v
}

// Check verifies the speed invariant.
func (v Vehicle) Check() error {
	if v.speed < 0 || v.speed > v.maxSpeed {
		return fmt.Errorf("%w: speed %d outside [0, %d]", core.ErrSpeedInvariant, v.speed, v.maxSpeed)
	}
	return nil
}

func (v Vehicle) String() string {
	return fmt.Sprintf("vehicle(speed=%d, max=%d)", v.speed, v.maxSpeed)
}
