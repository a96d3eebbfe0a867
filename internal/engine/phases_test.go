package engine

import (
	"math/rand"
	"testing"

	"github.com/ringroad/nasch/internal/road"
	"github.com/ringroad/nasch/internal/vehicle"
	"github.com/ringroad/nasch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// car describes a vehicle placed on a test road.
type car struct {
	pos, speed, max int
}

func buildRoad(t *testing.T, length int, cars ...car) *road.Road {
	t.Helper()
	r, err := road.New(length)
	require.NoError(t, err)
	for _, c := range cars {
		v, err := vehicle.FromState(c.max, c.speed)
		require.NoError(t, err)
		require.NoError(t, r.Place(c.pos, v))
	}
	return r
}

func speedAt(t *testing.T, r *road.Road, i int) int {
	t.Helper()
	v, ok := r.At(i)
	require.True(t, ok, "expected a vehicle at cell %d", i)
	return v.Speed()
}

func TestAccelerate(t *testing.T) {
	r := buildRoad(t, 6,
		car{pos: 0, speed: 0, max: 5},
		car{pos: 2, speed: 4, max: 5},
		car{pos: 4, speed: 5, max: 5},
	)

	require.NoError(t, Accelerate(r, 0, 5))
	r.Swap()

	assert.Equal(t, 1, speedAt(t, r, 0))
	assert.Equal(t, 5, speedAt(t, r, 2))
	assert.Equal(t, 5, speedAt(t, r, 4), "a vehicle at max speed keeps it")
	assert.Equal(t, 3, r.Count())
}

func TestAccelerate_ZeroMaxSpeed(t *testing.T) {
	r := buildRoad(t, 3, car{pos: 1, speed: 0, max: 0})

	require.NoError(t, Accelerate(r, 0, 2))
	r.Swap()
	assert.Equal(t, 0, speedAt(t, r, 1))
}

func TestAccelerate_SubRangeOnlyWritesItsCells(t *testing.T) {
	r := buildRoad(t, 6,
		car{pos: 1, speed: 0, max: 5},
		car{pos: 4, speed: 0, max: 5},
	)

	require.NoError(t, Accelerate(r, 0, 2))
	r.Swap()

	assert.Equal(t, 1, speedAt(t, r, 1))
	_, ok := r.At(4)
	assert.False(t, ok, "cells outside the range are not carried over")
}

func TestDecelerate_StopsShortOfObstacle(t *testing.T) {
	r := buildRoad(t, 10,
		car{pos: 0, speed: 5, max: 5},
		car{pos: 3, speed: 0, max: 5},
	)

	require.NoError(t, Decelerate(r, 0, 9))
	r.Swap()

	assert.Equal(t, 2, speedAt(t, r, 0))
	assert.Equal(t, 0, speedAt(t, r, 3))
}

func TestDecelerate_ObstacleAtExactlySpeedDistance(t *testing.T) {
	r := buildRoad(t, 10,
		car{pos: 0, speed: 3, max: 5},
		car{pos: 3, speed: 0, max: 5},
	)

	require.NoError(t, Decelerate(r, 0, 9))
	r.Swap()

	assert.Equal(t, 2, speedAt(t, r, 0))
}

func TestDecelerate_ObstacleJustOutOfReach(t *testing.T) {
	r := buildRoad(t, 10,
		car{pos: 0, speed: 3, max: 5},
		car{pos: 4, speed: 0, max: 5},
	)

	require.NoError(t, Decelerate(r, 0, 9))
	r.Swap()

	assert.Equal(t, 3, speedAt(t, r, 0), "no obstacle within speed keeps the speed")
}

func TestDecelerate_WrapsAround(t *testing.T) {
	r := buildRoad(t, 8,
		car{pos: 6, speed: 4, max: 5},
		car{pos: 1, speed: 0, max: 5},
	)

	require.NoError(t, Decelerate(r, 0, 7))
	r.Swap()

	assert.Equal(t, 2, speedAt(t, r, 6))
}

func TestDecelerate_DirectlyBehind(t *testing.T) {
	r := buildRoad(t, 5,
		car{pos: 2, speed: 4, max: 5},
		car{pos: 3, speed: 1, max: 5},
	)

	require.NoError(t, Decelerate(r, 0, 4))
	r.Swap()

	assert.Equal(t, 0, speedAt(t, r, 2))
}

func TestDecelerate_LoneVehicleLapsRoad(t *testing.T) {
	r := buildRoad(t, 3, car{pos: 0, speed: 5, max: 5})

	require.NoError(t, Decelerate(r, 0, 2))
	r.Swap()

	assert.Equal(t, 5, speedAt(t, r, 0), "a vehicle never blocks itself")
}

func TestRandomize_ProbabilityOne(t *testing.T) {
	r := buildRoad(t, 6,
		car{pos: 0, speed: 3, max: 5},
		car{pos: 3, speed: 1, max: 5},
	)

	require.NoError(t, Randomize(r, 0, 5, 1, rand.New(rand.NewSource(1))))
	r.Swap()

	assert.Equal(t, 2, speedAt(t, r, 0))
	assert.Equal(t, 0, speedAt(t, r, 3))
}

func TestRandomize_ProbabilityZero(t *testing.T) {
	r := buildRoad(t, 6,
		car{pos: 0, speed: 3, max: 5},
		car{pos: 3, speed: 1, max: 5},
	)

	require.NoError(t, Randomize(r, 0, 5, 0, rand.New(rand.NewSource(1))))
	r.Swap()

	assert.Equal(t, 3, speedAt(t, r, 0))
	assert.Equal(t, 1, speedAt(t, r, 3))
}

func TestRandomize_StoppedVehicleNeverDawdles(t *testing.T) {
	r := buildRoad(t, 4, car{pos: 2, speed: 0, max: 5})

	for seed := range int64(20) {
		require.NoError(t, Randomize(r, 0, 3, 1, rand.New(rand.NewSource(seed))))
		r.Swap()
		assert.Equal(t, 0, speedAt(t, r, 2))
	}
}

func TestRandomize_InvalidProbability(t *testing.T) {
	r := buildRoad(t, 4, car{pos: 0, speed: 2, max: 5})
	rng := rand.New(rand.NewSource(1))

	for _, p := range []float64{-0.1, 1.5} {
		err := Randomize(r, 0, 3, p, rng)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrInvalidProbability)
	}
}

func TestAdvance(t *testing.T) {
	r := buildRoad(t, 10,
		car{pos: 0, speed: 2, max: 5},
		car{pos: 5, speed: 0, max: 5},
	)

	require.NoError(t, Advance(r, 0, 9))
	r.Swap()

	assert.Equal(t, 2, speedAt(t, r, 2))
	assert.Equal(t, 0, speedAt(t, r, 5))
	_, ok := r.At(0)
	assert.False(t, ok)
}

func TestAdvance_WrapsAround(t *testing.T) {
	r := buildRoad(t, 5, car{pos: 4, speed: 2, max: 5})

	require.NoError(t, Advance(r, 0, 4))
	r.Swap()

	assert.Equal(t, 2, speedAt(t, r, 1))
	assert.Equal(t, 1, r.Count())
}

func TestAdvance_Collision(t *testing.T) {
	r := buildRoad(t, 5,
		car{pos: 0, speed: 2, max: 5},
		car{pos: 1, speed: 1, max: 5},
	)

	err := Advance(r, 0, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCollisionInvariant)
}

func TestGather_MatchesAdvance(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	for range 50 {
		pushed, err := road.New(40)
		require.NoError(t, err)
		require.NoError(t, pushed.Populate(15, func() (vehicle.Vehicle, error) {
			return vehicle.New(false, false, rng)
		}, rng))

		// make the state collision free first
		require.NoError(t, Decelerate(pushed, 0, 39))
		pushed.Swap()

		pulled, err := road.New(40)
		require.NoError(t, err)
		for i := range 40 {
			if v, ok := pushed.At(i); ok {
				require.NoError(t, pulled.Place(i, v))
			}
		}

		require.NoError(t, Advance(pushed, 0, 39))
		pushed.Swap()

		for _, s := range partitions(40, 3) {
			require.NoError(t, Gather(pulled, s.start, s.end, pulled.Reach()))
		}
		pulled.Swap()

		assert.Equal(t, pushed.Snapshot(), pulled.Snapshot())
	}
}

func TestGather_WrapsAround(t *testing.T) {
	r := buildRoad(t, 5, car{pos: 4, speed: 2, max: 5})

	require.NoError(t, Gather(r, 0, 4, 5))
	r.Swap()

	assert.Equal(t, 2, speedAt(t, r, 1))
}

func TestGather_Collision(t *testing.T) {
	r := buildRoad(t, 5,
		car{pos: 0, speed: 2, max: 5},
		car{pos: 1, speed: 1, max: 5},
	)

	err := Gather(r, 0, 4, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCollisionInvariant)
}

func TestPhases_InvalidRange(t *testing.T) {
	r := buildRoad(t, 5)
	rng := rand.New(rand.NewSource(1))

	assert.ErrorIs(t, Accelerate(r, 3, 2), core.ErrConfiguration)
	assert.ErrorIs(t, Decelerate(r, -1, 2), core.ErrConfiguration)
	assert.ErrorIs(t, Randomize(r, 0, 5, 0.5, rng), core.ErrConfiguration)
	assert.ErrorIs(t, Advance(r, 0, 7), core.ErrConfiguration)
	assert.ErrorIs(t, Gather(r, 4, 3, 1), core.ErrConfiguration)
}

func TestPartitions(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		workers int
		want    []span
	}{
		{"single", 10, 1, []span{{0, 9}}},
		{"zero workers", 10, 0, []span{{0, 9}}},
		{"even", 10, 2, []span{{0, 4}, {5, 9}}},
		{"uneven", 10, 3, []span{{0, 3}, {4, 6}, {7, 9}}},
		{"more workers than cells", 3, 8, []span{{0, 0}, {1, 1}, {2, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, partitions(tt.length, tt.workers))
		})
	}
}
