package core

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validParams() Parameters {
	return Parameters{
		StreetLength:      10,
		InitialCars:       5,
		MaxSpeed:          UnlimitedSpeed,
		Iterations:        3,
		DawdleProbability: 0.2,
	}
}

func TestParameters_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Parameters)
		want   error
	}{
		{"valid", func(p *Parameters) {}, nil},
		{"full road", func(p *Parameters) { p.InitialCars = 10 }, nil},
		{"empty road", func(p *Parameters) { p.InitialCars = 0 }, nil},
		{"fixed speed", func(p *Parameters) { p.MaxSpeed = 0 }, nil},
		{"probability bounds", func(p *Parameters) { p.DawdleProbability = 1 }, nil},
		{"zero length", func(p *Parameters) { p.StreetLength = 0 }, ErrConfiguration},
		{"capacity", func(p *Parameters) { p.InitialCars = 11 }, ErrCapacityExceeded},
		{"negative cars", func(p *Parameters) { p.InitialCars = -1 }, ErrConfiguration},
		{"negative speed", func(p *Parameters) { p.MaxSpeed = -2 }, ErrConfiguration},
		{"no iterations", func(p *Parameters) { p.Iterations = 0 }, ErrConfiguration},
		{"probability high", func(p *Parameters) { p.DawdleProbability = 1.1 }, ErrInvalidProbability},
		{"probability NaN", func(p *Parameters) { p.DawdleProbability = math.NaN() }, ErrInvalidProbability},
		{"negative workers", func(p *Parameters) { p.Workers = -2 }, ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParameters_SpeedUnlimited(t *testing.T) {
	p := validParams()
	assert.True(t, p.SpeedUnlimited())

	p.MaxSpeed = 5
	assert.False(t, p.SpeedUnlimited())

	p.AlwaysUnlimited = true
	assert.True(t, p.SpeedUnlimited())
}

func TestSnapshot_Line(t *testing.T) {
	s := Snapshot{
		{},
		{Occupied: true, Speed: 3},
		{Occupied: true, Speed: 0},
		{},
		{Occupied: true, Speed: 10},
	}
	assert.Equal(t, "-,3,0,-,10", s.Line())
	assert.Equal(t, 3, s.Occupied())
	assert.Equal(t, []int{-1, 3, 0, -1, 10}, s.Speeds())
	assert.Equal(t, "", Snapshot{}.Line())
}

func TestFrame_Moving(t *testing.T) {
	f := Frame{Cells: Snapshot{{Occupied: true, Speed: 2}, {Occupied: true}, {}}}
	assert.Equal(t, 1, f.Moving())
}

func TestRun_Header(t *testing.T) {
	r := Run{
		ID:        "abc",
		StartTime: time.Date(2025, 1, 18, 12, 0, 0, 0, time.UTC),
		Parameters: Parameters{
			StreetLength:      1000,
			InitialCars:       200,
			MaxSpeed:          -1,
			Iterations:        500,
			DawdleProbability: 0.2,
			AlwaysUnlimited:   false,
			StartAtZero:       true,
		},
	}

	assert.Equal(t,
		"Street Length: 1000, Initial Cars: 200, Max Speed: -1, Iterations: 500, Dawdle Probability: 0.2, Unlimited Speed: No, Cars start with speed 0:Yes",
		r.Header(),
	)
}
