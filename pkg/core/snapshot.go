// pkg/core/snapshot.go
package core

import (
	"strconv"
	"strings"
	"time"
)

// EmptyMarker is the text written for an empty cell.
const EmptyMarker = "-"

// Cell is the read-only view of one road cell.
type Cell struct {
	Occupied bool `json:"occupied"`
	Speed    int  `json:"speed"`
}

// Snapshot is the state of the whole road in cell order.
type Snapshot []Cell

// Occupied returns the number of cells holding a vehicle.
func (s Snapshot) Occupied() int {
	n := 0
	for _, c := range s {
		if c.Occupied {
			n++
		}
	}
	return n
}

// Speeds returns one value per cell: the vehicle speed, or -1 when empty.
func (s Snapshot) Speeds() []int {
	out := make([]int, len(s))
	for i, c := range s {
		if c.Occupied {
			out[i] = c.Speed
		} else {
			out[i] = -1
		}
	}
	return out
}

// Line renders the snapshot as one comma separated line, "-" for empty
// cells and the speed otherwise. No trailing newline.
func (s Snapshot) Line() string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i, c := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		if !c.Occupied {
			b.WriteString(EmptyMarker)
			continue
		}
		b.WriteString(strconv.Itoa(c.Speed))
	}
	return b.String()
}

// Frame is one snapshot as handed to recorders. Tick 0 is the initial road.
type Frame struct {
	RunID    string        `json:"runId"`
	Tick     int           `json:"tick"`
	Cells    Snapshot      `json:"cells"`
	Duration time.Duration `json:"durationNs"`
}

// Moving returns the number of vehicles with a speed above zero.
func (f Frame) Moving() int {
	n := 0
	for _, c := range f.Cells {
		if c.Occupied && c.Speed > 0 {
			n++
		}
	}
	return n
}
