// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ringroad/nasch/internal/model"
	"github.com/ringroad/nasch/pkg/core"
	"gorm.io/datatypes"
)

// ParseRunID converts a run id to a UUID. An empty id yields a new one.
func ParseRunID(id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.New(), nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("run id %q is not a UUID: %w", id, err)
	}
	return parsed, nil
}

// CoreToRun converts run metadata to its GORM row.
func CoreToRun(r core.Run, id uuid.UUID) (model.Run, error) {
	params, err := json.Marshal(r.Parameters)
	if err != nil {
		return model.Run{}, fmt.Errorf("failed to encode parameters: %w", err)
	}

	p := r.Parameters
	return model.Run{
		ID:                id,
		StartTime:         r.StartTime,
		StreetLength:      p.StreetLength,
		InitialCars:       p.InitialCars,
		MaxSpeed:          p.MaxSpeed,
		Iterations:        p.Iterations,
		DawdleProbability: p.DawdleProbability,
		Seed:              p.Seed,
		Workers:           p.Workers,
		Parameters:        datatypes.JSON(params),
		Header:            r.Header(),
	}, nil
}

// RunToCore converts a GORM run row back to run metadata.
func RunToCore(r model.Run) (core.Run, error) {
	out := core.Run{
		ID:        r.ID.String(),
		StartTime: r.StartTime,
	}
	if len(r.Parameters) > 0 {
		if err := json.Unmarshal(r.Parameters, &out.Parameters); err != nil {
			return core.Run{}, fmt.Errorf("failed to decode parameters of run %s: %w", out.ID, err)
		}
	}
	return out, nil
}

// CoreToFrame converts a snapshot frame to its GORM row.
func CoreToFrame(f core.Frame, runID uuid.UUID, at time.Time) model.Frame {
	cells, _ := json.Marshal(f.Cells.Speeds())
	return model.Frame{
		RunID:      runID,
		Tick:       f.Tick,
		Time:       at,
		Occupied:   f.Cells.Occupied(),
		Moving:     f.Moving(),
		DurationUs: f.Duration.Microseconds(),
		Cells:      datatypes.JSON(cells),
		Line:       f.Cells.Line(),
	}
}

// FrameToCore converts a GORM frame row back to a snapshot frame.
func FrameToCore(f model.Frame) (core.Frame, error) {
	var speeds []int
	if err := json.Unmarshal(f.Cells, &speeds); err != nil {
		return core.Frame{}, fmt.Errorf("failed to decode cells of tick %d: %w", f.Tick, err)
	}

	cells := make(core.Snapshot, len(speeds))
	for i, s := range speeds {
		if s >= 0 {
			cells[i] = core.Cell{Occupied: true, Speed: s}
		}
	}

	return core.Frame{
		RunID:    f.RunID.String(),
		Tick:     f.Tick,
		Cells:    cells,
		Duration: time.Duration(f.DurationUs) * time.Microsecond,
	}, nil
}
