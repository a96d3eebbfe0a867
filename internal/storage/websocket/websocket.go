package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ringroad/nasch/internal/config"
	"github.com/ringroad/nasch/internal/storage"
	"github.com/ringroad/nasch/pkg/core"
	"github.com/ringroad/nasch/pkg/streaming"
)

// Backend streams runs over WebSocket to a collecting server.
// It implements storage.Backend but not storage.Exporter.
type Backend struct {
	conn   *connection
	cfg    config.WebSocketConfig
	runID  atomic.Pointer[string]
	frames atomic.Int64
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.ServerURL, b.cfg.APIKey)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartRun sends the run metadata and waits for the server ack.
func (b *Backend) StartRun(run *core.Run) error {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: run, Header: run.Header()})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.startMsg = data
	b.conn.mu.Unlock()

	id := run.ID
	b.runID.Store(&id)
	b.frames.Store(0)

	return b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout)
}

// RecordFrame queues one frame for the write loop.
func (b *Backend) RecordFrame(f *core.Frame) error {
	if b.runID.Load() == nil {
		return storage.ErrNoActiveRun
	}

	data, err := marshalEnvelope(streaming.TypeFrame, streaming.NewFramePayload(f))
	if err != nil {
		return err
	}
	if err := b.conn.send(data); err != nil {
		return fmt.Errorf("send tick %d: %w", f.Tick, err)
	}
	b.frames.Add(1)
	return nil
}

// EndRun sends end_run and waits for the server ack. The ack arrives
// after every frame queued before it.
func (b *Backend) EndRun() error {
	id := b.runID.Swap(nil)
	if id == nil {
		return storage.ErrNoActiveRun
	}

	data, err := marshalEnvelope(streaming.TypeEndRun, streaming.EndRunPayload{RunID: *id, Frames: int(b.frames.Load())})
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.TypeEndRun, ackTimeout)
	}

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.startMsg = nil
	b.conn.mu.Unlock()

	return err
}

// Frames returns the number of frames queued for the current or last run.
func (b *Backend) Frames() int {
	return int(b.frames.Load())
}
