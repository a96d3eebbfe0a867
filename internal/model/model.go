package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&Frame{},
}

// Run is one simulation run and the parameters it was started with.
type Run struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	StartTime         time.Time      `json:"startTime" gorm:"index"`
	EndTime           *time.Time     `json:"endTime"`
	StreetLength      int            `json:"streetLength"`
	InitialCars       int            `json:"initialCars"`
	MaxSpeed          int            `json:"maxSpeed"`
	Iterations        int            `json:"iterations"`
	DawdleProbability float64        `json:"dawdleProbability"`
	Seed              int64          `json:"seed"`
	Workers           int            `json:"workers"`
	Parameters        datatypes.JSON `json:"parameters"`
	Header            string         `json:"header" gorm:"size:255"`
	FrameCount        int            `json:"frameCount"`
	Frames            []Frame        `json:"frames,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

func (*Run) TableName() string {
	return "runs"
}

// Frame is one snapshot of the road. Cells holds one speed per cell, -1
// for empty cells.
type Frame struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement"`
	RunID      uuid.UUID      `json:"runId" gorm:"type:uuid;index:idx_frame_run_tick,priority:1"`
	Tick       int            `json:"tick" gorm:"index:idx_frame_run_tick,priority:2"`
	Time       time.Time      `json:"time"`
	Occupied   int            `json:"occupied"`
	Moving     int            `json:"moving"`
	DurationUs int64          `json:"durationUs"`
	Cells      datatypes.JSON `json:"cells"`
	Line       string         `json:"line"`
}

func (*Frame) TableName() string {
	return "frames"
}
