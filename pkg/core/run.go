// pkg/core/run.go
package core

import (
	"fmt"
	"strconv"
	"time"
)

// Run identifies one simulation run.
type Run struct {
	ID         string     `json:"id"`
	StartTime  time.Time  `json:"startTime"`
	Parameters Parameters `json:"parameters"`
}

// Header renders the metadata line that precedes the snapshots in the
// text output format.
func (r Run) Header() string {
	p := r.Parameters
	return fmt.Sprintf(
		"Street Length: %d, Initial Cars: %d, Max Speed: %d, Iterations: %d, Dawdle Probability: %s, Unlimited Speed: %s, Cars start with speed 0:%s",
		p.StreetLength,
		p.InitialCars,
		p.MaxSpeed,
		p.Iterations,
		strconv.FormatFloat(p.DawdleProbability, 'g', 6, 64),
		yesNo(p.AlwaysUnlimited),
		yesNo(p.StartAtZero),
	)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
