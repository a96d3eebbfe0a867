package vehicle

import (
	"math/rand"
	"testing"

	"github.com/ringroad/nasch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistribution_Draw(t *testing.T) {
	tests := []struct {
		name string
		u    float64
		want int
	}{
		{"zero", 0, 10},
		{"inside top bracket", 0.03, 10},
		{"top bound inclusive", 0.05, 10},
		{"just above top bound", 0.0500001, 6},
		{"middle bound inclusive", 0.23, 6},
		{"lower bracket", 0.5, 5},
		{"one", 1.0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultDistribution.Draw(tt.u)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistribution_Exhausted(t *testing.T) {
	d := Distribution{{Bound: 0.5, MaxSpeed: 3}}

	_, err := d.Draw(0.7)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDistributionExhausted)

	_, err = Distribution{}.Draw(0)
	assert.ErrorIs(t, err, core.ErrDistributionExhausted)
}

func TestDistribution_TopAndReach(t *testing.T) {
	assert.Equal(t, 10, DefaultDistribution.Top())
	assert.Equal(t, 10, DefaultDistribution.Reach())
	assert.Equal(t, 0, Distribution{}.Top())
}

func TestNew_UnlimitedForcesTopBracket(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for range 50 {
		v, err := New(true, true, rng)
		require.NoError(t, err)
		assert.Equal(t, 10, v.MaxSpeed())
		assert.Equal(t, 0, v.Speed())
	}
}

func TestNew_DrawsFromDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	seen := map[int]int{}
	for range 2000 {
		v, err := New(false, false, rng)
		require.NoError(t, err)
		require.NoError(t, v.Check())
		seen[v.MaxSpeed()]++
	}

	assert.Len(t, seen, 3)
	assert.Greater(t, seen[5], seen[6])
	assert.Greater(t, seen[6], seen[10])
}

func TestNewWithMaxSpeed(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	v, err := NewWithMaxSpeed(true, 4, rng)
	require.NoError(t, err)
	assert.Equal(t, 4, v.MaxSpeed())
	assert.Equal(t, 0, v.Speed())

	speeds := map[int]bool{}
	for range 500 {
		v, err := NewWithMaxSpeed(false, 4, rng)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v.Speed(), 0)
		assert.LessOrEqual(t, v.Speed(), 4)
		speeds[v.Speed()] = true
	}
	assert.Len(t, speeds, 5, "start speed should cover [0, max] inclusive")

	_, err = NewWithMaxSpeed(false, -2, rng)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestNewWithMaxSpeed_Zero(t *testing.T) {
	v, err := NewWithMaxSpeed(false, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 0, v.Speed())
}

func TestNew_Deterministic(t *testing.T) {
	a := rand.New(rand.NewSource(99))
	b := rand.New(rand.NewSource(99))
	for range 100 {
		va, err := New(false, false, a)
		require.NoError(t, err)
		vb, err := New(false, false, b)
		require.NoError(t, err)
		assert.Equal(t, va, vb)
	}
}

func TestAccelerate(t *testing.T) {
	v, err := FromState(3, 2)
	require.NoError(t, err)

	v = v.Accelerate()
	assert.Equal(t, 3, v.Speed())

	v = v.Accelerate()
	assert.Equal(t, 3, v.Speed(), "speed must not exceed max speed")
}

func TestDawdle_NeverBelowZero(t *testing.T) {
	v, err := FromState(5, 1)
	require.NoError(t, err)

	v = v.Dawdle()
	assert.Equal(t, 0, v.Speed())
	v = v.Dawdle()
	assert.Equal(t, 0, v.Speed())
}

func TestWithSpeed_Bounds(t *testing.T) {
	v, err := FromState(5, 0)
	require.NoError(t, err)

	_, err = v.WithSpeed(6)
	assert.ErrorIs(t, err, core.ErrSpeedInvariant)
	_, err = v.WithSpeed(-1)
	assert.ErrorIs(t, err, core.ErrSpeedInvariant)

	v, err = v.WithSpeed(5)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Speed())
}

func TestFromState_Invalid(t *testing.T) {
	_, err := FromState(-1, 0)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = FromState(2, 3)
	assert.ErrorIs(t, err, core.ErrSpeedInvariant)
}

func TestCheck_CatchesCorruptValue(t *testing.T) {
	v := Vehicle{maxSpeed: 2, speed: 4}
	assert.ErrorIs(t, v.Check(), core.ErrSpeedInvariant)
}
