package engine

import (
	"fmt"
	"math/rand"

	"github.com/ringroad/nasch/internal/road"
	"github.com/ringroad/nasch/pkg/core"
)

// The phase functions below read the current buffer of r and write the
// next one for the inclusive cell range [start, end]. They never swap; the
// caller publishes the next buffer once every range of the phase is done.

// Accelerate raises the speed of every vehicle below its max speed by one.
func Accelerate(r *road.Road, start, end int) error {
	if err := r.CheckRange(start, end); err != nil {
		return err
	}
	for i := start; i <= end; i++ {
		v, ok := r.At(i)
		if !ok {
			continue
		}
		if err := v.Check(); err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
		if err := r.Put(i, v.Accelerate()); err != nil {
			return err
		}
	}
	return nil
}

// Decelerate slows every vehicle down so that it stops one cell short of
// the next vehicle ahead. Vehicles without an obstacle within their speed
// keep it.
func Decelerate(r *road.Road, start, end int) error {
	if err := r.CheckRange(start, end); err != nil {
		return err
	}
	for i := start; i <= end; i++ {
		v, ok := r.At(i)
		if !ok {
			continue
		}
		for d := 1; d <= v.Speed(); d++ {
			pos := r.Wrap(i + d)
			if pos == i {
				// lapped the whole road without meeting anyone else
				continue
			}
			if _, occupied := r.At(pos); !occupied {
				continue
			}
			var err error
			if v, err = v.WithSpeed(d - 1); err != nil {
				return fmt.Errorf("cell %d: %w", i, err)
			}
			break
		}
		if err := r.Put(i, v); err != nil {
			return err
		}
	}
	return nil
}

// Randomize slows every moving vehicle down by one with probability prob.
// Stopped vehicles are left alone and consume no random draw.
func Randomize(r *road.Road, start, end int, prob float64, rng *rand.Rand) error {
	if err := core.ValidateProbability(prob); err != nil {
		return err
	}
	if err := r.CheckRange(start, end); err != nil {
		return err
	}
	for i := start; i <= end; i++ {
		v, ok := r.At(i)
		if !ok {
			continue
		}
		if v.Speed() > 0 && rng.Float64() < prob {
			v = v.Dawdle()
		}
		if err := r.Put(i, v); err != nil {
			return err
		}
	}
	return nil
}

// Advance moves every vehicle in [start, end] forward by its speed. A
// destination that is already taken means the earlier phases failed to
// keep vehicles apart.
func Advance(r *road.Road, start, end int) error {
	if err := r.CheckRange(start, end); err != nil {
		return err
	}
	for i := start; i <= end; i++ {
		v, ok := r.At(i)
		if !ok {
			continue
		}
		dest := r.Wrap(i + v.Speed())
		if err := r.Put(dest, v); err != nil {
			return fmt.Errorf("vehicle at %d with speed %d: %w", i, v.Speed(), err)
		}
	}
	return nil
}

// Gather is Advance seen from the destination side: every cell in
// [start, end] pulls the vehicle that lands on it. reach must be at least
// the highest speed on the road. Writes stay inside [start, end], which
// lets partitions run concurrently.
func Gather(r *road.Road, start, end, reach int) error {
	if err := r.CheckRange(start, end); err != nil {
		return err
	}
	for j := start; j <= end; j++ {
		arrivals := 0
		for d := 0; d <= reach; d++ {
			src := r.Wrap(j - d)
			v, ok := r.At(src)
			if !ok || v.Speed() != d {
				continue
			}
			arrivals++
			if arrivals > 1 {
				return fmt.Errorf("%w: vehicle at %d with speed %d lands on occupied cell %d",
					core.ErrCollisionInvariant, src, d, j)
			}
			if err := r.Put(j, v); err != nil {
				return err
			}
		}
	}
	return nil
}
