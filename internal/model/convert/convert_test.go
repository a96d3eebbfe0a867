package convert

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ringroad/nasch/internal/model"
	"github.com/ringroad/nasch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestParseRunID(t *testing.T) {
	id, err := ParseRunID("")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	want := uuid.New()
	got, err := ParseRunID(want.String())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseRunID("not-a-uuid")
	assert.Error(t, err)
}

func TestRunRoundTrip(t *testing.T) {
	id := uuid.New()
	run := core.Run{
		ID:        id.String(),
		StartTime: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Parameters: core.Parameters{
			StreetLength:      50,
			InitialCars:       10,
			MaxSpeed:          core.UnlimitedSpeed,
			Iterations:        20,
			DawdleProbability: 0.25,
			Workers:           4,
			Seed:              99,
		},
	}

	row, err := CoreToRun(run, id)
	require.NoError(t, err)
	assert.Equal(t, id, row.ID)
	assert.Equal(t, 50, row.StreetLength)
	assert.Equal(t, -1, row.MaxSpeed)
	assert.Equal(t, int64(99), row.Seed)
	assert.Equal(t, run.Header(), row.Header)
	assert.Nil(t, row.EndTime)

	back, err := RunToCore(row)
	require.NoError(t, err)
	assert.Equal(t, run, back)
}

func TestRunToCore_BadParameters(t *testing.T) {
	_, err := RunToCore(modelRunWithParams(datatypes.JSON(`{`)))
	assert.Error(t, err)
}

func TestFrameRoundTrip(t *testing.T) {
	id := uuid.New()
	frame := core.Frame{
		RunID:    id.String(),
		Tick:     3,
		Cells:    core.Snapshot{{}, {Occupied: true, Speed: 2}, {Occupied: true, Speed: 0}, {}},
		Duration: 250 * time.Microsecond,
	}
	at := time.Date(2024, 5, 1, 8, 0, 1, 0, time.UTC)

	row := CoreToFrame(frame, id, at)
	assert.Equal(t, id, row.RunID)
	assert.Equal(t, 3, row.Tick)
	assert.Equal(t, at, row.Time)
	assert.Equal(t, 2, row.Occupied)
	assert.Equal(t, 1, row.Moving)
	assert.Equal(t, int64(250), row.DurationUs)
	assert.JSONEq(t, `[-1,2,0,-1]`, string(row.Cells))
	assert.Equal(t, "-,2,0,-", row.Line)

	back, err := FrameToCore(row)
	require.NoError(t, err)
	assert.Equal(t, frame, back)
}

func modelRunWithParams(params datatypes.JSON) model.Run {
	return model.Run{ID: uuid.New(), Parameters: params}
}
