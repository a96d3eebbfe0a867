package streaming

import (
	"encoding/json"

	"github.com/ringroad/nasch/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun = "start_run"
	TypeFrame    = "frame"
	TypeEndRun   = "end_run"
	TypeAck      = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload carries the run metadata.
type StartRunPayload struct {
	Run    *core.Run `json:"run"`
	Header string    `json:"header"`
}

// FramePayload carries one snapshot. Speeds holds -1 for empty cells.
type FramePayload struct {
	RunID      string `json:"runId"`
	Tick       int    `json:"tick"`
	Speeds     []int  `json:"speeds"`
	Moving     int    `json:"moving"`
	DurationUs int64  `json:"durationUs"`
}

// EndRunPayload closes a run.
type EndRunPayload struct {
	RunID  string `json:"runId"`
	Frames int    `json:"frames"`
}

// NewFramePayload builds the payload for a frame.
func NewFramePayload(f *core.Frame) FramePayload {
	return FramePayload{
		RunID:      f.RunID,
		Tick:       f.Tick,
		Speeds:     f.Cells.Speeds(),
		Moving:     f.Moving(),
		DurationUs: f.Duration.Microseconds(),
	}
}
