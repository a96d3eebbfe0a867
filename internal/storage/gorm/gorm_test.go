package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ringroad/nasch/internal/database"
	"github.com/ringroad/nasch/internal/model"
	"github.com/ringroad/nasch/internal/storage"
	"github.com/ringroad/nasch/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

// newTestBackend creates a Backend on a file-backed SQLite DB in a temp dir.
func newTestBackend(t *testing.T, batchSize int) *Backend {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)

	b := New(Dependencies{DB: db, BatchSize: batchSize, Logger: zerolog.Nop()})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testRun() *core.Run {
	return &core.Run{
		ID:        uuid.NewString(),
		StartTime: time.Now().UTC(),
		Parameters: core.Parameters{
			StreetLength:      4,
			InitialCars:       2,
			MaxSpeed:          3,
			Iterations:        5,
			DawdleProbability: 0.1,
			Seed:              12,
		},
	}
}

func testFrame(tick int) *core.Frame {
	return &core.Frame{
		Tick:  tick,
		Cells: core.Snapshot{{Occupied: true, Speed: tick % 4}, {}, {Occupied: true}, {}},
	}
}

func TestNew_DefaultBatchSize(t *testing.T) {
	b := New(Dependencies{})
	assert.Equal(t, DefaultBatchSize, b.deps.BatchSize)
	assert.Equal(t, 0, b.Pending())
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{Logger: zerolog.Nop()})
	assert.Error(t, b.Init())
}

func TestInit_Migrates(t *testing.T) {
	b := newTestBackend(t, 10)
	assert.True(t, b.DB().Migrator().HasTable(&model.Run{}))
	assert.True(t, b.DB().Migrator().HasTable(&model.Frame{}))
}

func TestStartRun_InsertsRun(t *testing.T) {
	b := newTestBackend(t, 10)
	run := testRun()

	require.NoError(t, b.StartRun(run))

	var row model.Run
	require.NoError(t, b.DB().First(&row, "id = ?", run.ID).Error)
	assert.Equal(t, 4, row.StreetLength)
	assert.Equal(t, int64(12), row.Seed)
	assert.Equal(t, run.Header(), row.Header)
	assert.Nil(t, row.EndTime)
}

func TestStartRun_AssignsID(t *testing.T) {
	b := newTestBackend(t, 10)
	run := testRun()
	run.ID = ""

	require.NoError(t, b.StartRun(run))
	_, err := uuid.Parse(run.ID)
	assert.NoError(t, err)
}

func TestStartRun_RejectsBadID(t *testing.T) {
	b := newTestBackend(t, 10)
	run := testRun()
	run.ID = "run-1"

	assert.Error(t, b.StartRun(run))
}

func TestRecordFrame_WithoutRun(t *testing.T) {
	b := newTestBackend(t, 10)
	assert.ErrorIs(t, b.RecordFrame(testFrame(0)), storage.ErrNoActiveRun)
	assert.ErrorIs(t, b.EndRun(), storage.ErrNoActiveRun)
}

func TestRecordFrame_QueuesUntilBatchIsFull(t *testing.T) {
	b := newTestBackend(t, 3)
	run := testRun()
	require.NoError(t, b.StartRun(run))

	require.NoError(t, b.RecordFrame(testFrame(0)))
	require.NoError(t, b.RecordFrame(testFrame(1)))
	assert.Equal(t, 2, b.Pending())

	var count int64
	require.NoError(t, b.DB().Model(&model.Frame{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	require.NoError(t, b.RecordFrame(testFrame(2)))
	assert.Equal(t, 0, b.Pending())
	require.NoError(t, b.DB().Model(&model.Frame{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestEndRun_FlushesAndStamps(t *testing.T) {
	b := newTestBackend(t, 100)
	run := testRun()
	require.NoError(t, b.StartRun(run))
	for tick := range 6 {
		require.NoError(t, b.RecordFrame(testFrame(tick)))
	}

	require.NoError(t, b.EndRun())
	assert.Equal(t, 0, b.Pending())

	var row model.Run
	require.NoError(t, b.DB().First(&row, "id = ?", run.ID).Error)
	require.NotNil(t, row.EndTime)
	assert.Equal(t, 6, row.FrameCount)

	assert.ErrorIs(t, b.RecordFrame(testFrame(7)), storage.ErrNoActiveRun)
}

func TestLoadRun(t *testing.T) {
	b := newTestBackend(t, 2)
	run := testRun()
	require.NoError(t, b.StartRun(run))
	for tick := range 5 {
		require.NoError(t, b.RecordFrame(testFrame(tick)))
	}
	require.NoError(t, b.EndRun())

	loaded, frames, err := b.LoadRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, loaded.ID)
	assert.Equal(t, run.Parameters, loaded.Parameters)

	require.Len(t, frames, 5)
	for i, f := range frames {
		assert.Equal(t, i, f.Tick)
		assert.Equal(t, run.ID, f.RunID)
		assert.Equal(t, testFrame(i).Cells, f.Cells)
	}
}

func TestLoadRun_Unknown(t *testing.T) {
	b := newTestBackend(t, 2)

	_, _, err := b.LoadRun(uuid.NewString())
	assert.Error(t, err)

	_, _, err = b.LoadRun("nope")
	assert.Error(t, err)
}

func TestFrameRows_TimeScansOnSQLite(t *testing.T) {
	b := newTestBackend(t, 1)

	before := time.Now().Add(-time.Second)
	run := testRun()
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.RecordFrame(testFrame(0)))
	require.NoError(t, b.EndRun())

	var rows []model.Frame
	require.NoError(t, b.DB().Where("run_id = ?", uuid.MustParse(run.ID)).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Time.After(before), "frame time %v should be set", rows[0].Time)
}
