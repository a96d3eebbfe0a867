// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ringroad/nasch/pkg/core"
)

// RunExport is the root JSON structure
type RunExport struct {
	Run      core.Run    `json:"run"`
	Header   string      `json:"header"`
	EndTime  time.Time   `json:"endTime"`
	EndTick  int         `json:"endTick"`
	Vehicles int         `json:"vehicles"`
	Frames   []FrameJSON `json:"frames"`
}

// FrameJSON is one snapshot. Speeds holds -1 for empty cells.
type FrameJSON struct {
	Tick       int   `json:"tick"`
	Moving     int   `json:"moving"`
	DurationUs int64 `json:"durationUs"`
	Speeds     []int `json:"speeds"`
}

// exportJSON writes the run to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := b.run.StartTime.Format("20060102_150405")
	filename := fmt.Sprintf("run_%s_%s.json", timestamp, b.run.ID)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	export := RunExport{
		Run:     *b.run,
		Header:  b.run.Header(),
		EndTime: time.Now(),
		Frames:  make([]FrameJSON, 0, len(b.frames)),
	}

	for _, f := range b.frames {
		export.Frames = append(export.Frames, FrameJSON{
			Tick:       f.Tick,
			Moving:     f.Moving(),
			DurationUs: f.Duration.Microseconds(),
			Speeds:     f.Cells.Speeds(),
		})
		export.EndTick = f.Tick
	}
	if len(b.frames) > 0 {
		export.Vehicles = b.frames[0].Cells.Occupied()
	}

	return export
}

func writeExport(path string, data RunExport, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		gzWriter := gzip.NewWriter(f)
		defer gzWriter.Close()
		w = gzWriter
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	return nil
}

// ReadExport loads a file written by the memory backend.
func ReadExport(path string) (*RunExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export RunExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &export, nil
}
