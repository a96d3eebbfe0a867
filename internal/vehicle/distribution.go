package vehicle

import (
	"fmt"

	"github.com/ringroad/nasch/pkg/core"
)

// Bracket maps a cumulative probability bound to a max speed.
type Bracket struct {
	Bound    float64
	MaxSpeed int
}

// Distribution is a cumulative probability table ordered by bound.
type Distribution []Bracket

// DefaultDistribution approximates max speeds on unlimited highway
// sections: 5% very fast drivers, 18% at 160 km/h, the rest at 130 km/h.
var DefaultDistribution = Distribution{
	{Bound: 0.05, MaxSpeed: 10},
	{Bound: 0.23, MaxSpeed: 6},
	{Bound: 1.00, MaxSpeed: 5},
}

// Draw returns the max speed of the first bracket whose bound is >= u.
func (d Distribution) Draw(u float64) (int, error) {
	for _, b := range d {
		if u <= b.Bound {
			return b.MaxSpeed, nil
		}
	}
	return 0, fmt.Errorf("%w: no bracket for %v", core.ErrDistributionExhausted, u)
}

// Top returns the max speed of the first bracket, the fastest drivers.
func (d Distribution) Top() int {
	if len(d) == 0 {
		return 0
	}
	return d[0].MaxSpeed
}

// Reach returns the largest max speed in the table.
func (d Distribution) Reach() int {
	reach := 0
	for _, b := range d {
		reach = max(reach, b.MaxSpeed)
	}
	return reach
}
