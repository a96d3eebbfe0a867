package engine

import (
	"fmt"
	"math/rand"

	"github.com/ringroad/nasch/internal/road"
	"github.com/ringroad/nasch/internal/vehicle"
	"github.com/ringroad/nasch/pkg/core"
)

// NewRoad builds the initial road: it checks capacity, allocates both
// buffers and places params.InitialCars vehicles at distinct random cells.
func NewRoad(params core.Parameters, rng *rand.Rand) (*road.Road, error) {
	if params.InitialCars > params.StreetLength {
		return nil, fmt.Errorf("%w: %d cars on %d cells", core.ErrCapacityExceeded, params.InitialCars, params.StreetLength)
	}
	r, err := road.New(params.StreetLength)
	if err != nil {
		return nil, err
	}
	if err := r.Populate(params.InitialCars, VehicleBuilder(params, rng), rng); err != nil {
		return nil, fmt.Errorf("populating road: %w", err)
	}
	return r, nil
}

// VehicleBuilder returns the vehicle constructor matching params.
func VehicleBuilder(params core.Parameters, rng *rand.Rand) func() (vehicle.Vehicle, error) {
	switch {
	case params.AlwaysUnlimited:
		return func() (vehicle.Vehicle, error) {
			return vehicle.New(params.StartAtZero, true, rng)
		}
	case params.MaxSpeed == core.UnlimitedSpeed:
		return func() (vehicle.Vehicle, error) {
			return vehicle.New(params.StartAtZero, false, rng)
		}
	default:
		return func() (vehicle.Vehicle, error) {
			return vehicle.NewWithMaxSpeed(params.StartAtZero, params.MaxSpeed, rng)
		}
	}
}
