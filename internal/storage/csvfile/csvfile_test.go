package csvfile

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ringroad/nasch/internal/config"
	"github.com/ringroad/nasch/internal/storage"
	"github.com/ringroad/nasch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend  = (*Backend)(nil)
	_ storage.Exporter = (*Backend)(nil)
)

func testRun() *core.Run {
	return &core.Run{
		ID:        "run-1",
		StartTime: time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local),
		Parameters: core.Parameters{
			StreetLength:      5,
			InitialCars:       2,
			MaxSpeed:          5,
			Iterations:        2,
			DawdleProbability: 0.2,
			StartAtZero:       true,
		},
	}
}

func frame(tick int, cells ...int) *core.Frame {
	snap := make(core.Snapshot, len(cells))
	for i, s := range cells {
		if s >= 0 {
			snap[i] = core.Cell{Occupied: true, Speed: s}
		}
	}
	return &core.Frame{RunID: "run-1", Tick: tick, Cells: snap}
}

func TestFileName(t *testing.T) {
	run := testRun()
	assert.Equal(t, "output_09032024_140507.csv", FileName(run, false))
	assert.Equal(t, "output_09032024_140507.csv.gz", FileName(run, true))
}

func TestNew_DefaultDir(t *testing.T) {
	b := New(config.CSVConfig{})
	assert.Equal(t, DefaultDir, b.cfg.OutputDir)
}

func TestWriteRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	b := New(config.CSVConfig{OutputDir: dir})
	require.NoError(t, b.Init())

	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordFrame(frame(0, 0, -1, -1, 0, -1)))
	require.NoError(t, b.RecordFrame(frame(1, -1, 1, -1, -1, 1)))
	require.NoError(t, b.RecordFrame(frame(2, -1, -1, -1, 2, -1)))
	require.NoError(t, b.EndRun())
	assert.Equal(t, 3, b.Frames())

	path := b.ExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "output_09032024_140507.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Street Length: 5, Initial Cars: 2, Max Speed: 5, Iterations: 2, Dawdle Probability: 0.2, Unlimited Speed: No, Cars start with speed 0:Yes", lines[0])
	assert.Equal(t, "0,-,-,0,-", lines[1])
	assert.Equal(t, "-,1,-,-,1", lines[2])
	assert.Equal(t, "-,-,-,2,-", lines[3])

	require.NoError(t, b.Close())
}

func TestWriteRun_Compressed(t *testing.T) {
	dir := t.TempDir()
	b := New(config.CSVConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.Init())

	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordFrame(frame(0, 3, -1)))
	require.NoError(t, b.EndRun())

	f, err := os.Open(b.ExportedFilePath())
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(string(data), "\n3,-\n"))
}

func TestRecordFrame_WithoutRun(t *testing.T) {
	b := New(config.CSVConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.Init())

	assert.ErrorIs(t, b.RecordFrame(frame(0, 1)), storage.ErrNoActiveRun)
	assert.ErrorIs(t, b.EndRun(), storage.ErrNoActiveRun)
}

func TestClose_FinishesOpenRun(t *testing.T) {
	b := New(config.CSVConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordFrame(frame(0, 1)))

	require.NoError(t, b.Close())

	data, err := os.ReadFile(b.ExportedFilePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n1\n")
	assert.ErrorIs(t, b.RecordFrame(frame(1, 1)), storage.ErrNoActiveRun)
}
