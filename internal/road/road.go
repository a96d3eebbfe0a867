// Package road implements the circular, double-buffered road state.
//
// A Road owns two equally long buffers of vehicle slots. Phases read the
// current buffer and write the next one; Swap publishes the next buffer
// and clears the old current one, so no phase ever observes a result of
// its own generation.
package road

import (
	"fmt"
	"math/rand"

	"github.com/ringroad/nasch/internal/vehicle"
	"github.com/ringroad/nasch/pkg/core"
)

// Slot is one road cell. The zero value is an empty cell.
type Slot struct {
	Vehicle  vehicle.Vehicle
	Occupied bool
}

// Road is a fixed-length periodic road.
type Road struct {
	length int
	cur    []Slot
	next   []Slot
}

// New allocates a road with two empty buffers.
func New(length int) (*Road, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: street length must be greater than 0, got %d", core.ErrConfiguration, length)
	}
	return &Road{
		length: length,
		cur:    make([]Slot, length),
		next:   make([]Slot, length),
	}, nil
}

// Len returns the number of cells.
func (r *Road) Len() int { return r.length }

// Wrap maps any position onto the road.
func (r *Road) Wrap(pos int) int {
	pos %= r.length
	if pos < 0 {
		pos += r.length
	}
	return pos
}

// At returns the vehicle in cell i of the current buffer.
func (r *Road) At(i int) (vehicle.Vehicle, bool) {
	s := r.cur[r.Wrap(i)]
	return s.Vehicle, s.Occupied
}

// Place puts v into cell i of the current buffer. It is used while
// building the initial road.
func (r *Road) Place(i int, v vehicle.Vehicle) error {
	if i < 0 || i >= r.length {
		return fmt.Errorf("%w: cell %d outside road of length %d", core.ErrConfiguration, i, r.length)
	}
	if r.cur[i].Occupied {
		return fmt.Errorf("%w: cell %d already occupied", core.ErrCollisionInvariant, i)
	}
	r.cur[i] = Slot{Vehicle: v, Occupied: true}
	return nil
}

// Put writes v into cell i of the next buffer. Writing an occupied cell
// means two vehicles claimed it.
func (r *Road) Put(i int, v vehicle.Vehicle) error {
	if r.next[i].Occupied {
		return fmt.Errorf("%w: cell %d already taken by %s, cannot place %s",
			core.ErrCollisionInvariant, i, r.next[i].Vehicle, v)
	}
	r.next[i] = Slot{Vehicle: v, Occupied: true}
	return nil
}

// Swap publishes the next buffer as current and clears the new next buffer.
func (r *Road) Swap() {
	r.cur, r.next = r.next, r.cur
	clear(r.next)
}

// Discard clears the next buffer without publishing it.
func (r *Road) Discard() {
	clear(r.next)
}

// CheckRange validates an inclusive index range.
func (r *Road) CheckRange(start, end int) error {
	if start < 0 || start > end || end >= r.length {
		return fmt.Errorf("%w: invalid index range [%d, %d] for road of length %d",
			core.ErrConfiguration, start, end, r.length)
	}
	return nil
}

// Count returns the number of vehicles in the current buffer.
func (r *Road) Count() int {
	n := 0
	for _, s := range r.cur {
		if s.Occupied {
			n++
		}
	}
	return n
}

// Reach returns the highest max speed on the road.
func (r *Road) Reach() int {
	reach := 0
	for _, s := range r.cur {
		if s.Occupied {
			reach = max(reach, s.Vehicle.MaxSpeed())
		}
	}
	return reach
}

// Snapshot returns a copy of the current buffer in cell order.
func (r *Road) Snapshot() core.Snapshot {
	out := make(core.Snapshot, r.length)
	for i, s := range r.cur {
		if s.Occupied {
			out[i] = core.Cell{Occupied: true, Speed: s.Vehicle.Speed()}
		}
	}
	return out
}

// Populate places count vehicles at the first count indices of a random
// permutation of all cells, so no cell is ever chosen twice.
func (r *Road) Populate(count int, build func() (vehicle.Vehicle, error), rng *rand.Rand) error {
	if count < 0 {
		return fmt.Errorf("%w: vehicle count must not be negative, got %d", core.ErrConfiguration, count)
	}
	if count > r.length {
		return fmt.Errorf("%w: %d vehicles on %d cells", core.ErrCapacityExceeded, count, r.length)
	}

	for i, idx := range rng.Perm(r.length)[:count] {
		v, err := build()
		if err != nil {
			return fmt.Errorf("building vehicle %d: %w", i, err)
		}
		if err := r.Place(idx, v); err != nil {
			return err
		}
	}
	return nil
}
