// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/ringroad/nasch/internal/config"
	"github.com/ringroad/nasch/internal/storage"
	"github.com/ringroad/nasch/pkg/core"
)

// Backend stores run frames in memory and exports them to JSON
type Backend struct {
	cfg    config.MemoryConfig
	run    *core.Run
	frames []core.Frame

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.frames = make([]core.Frame, 0, run.Parameters.Iterations+1)
	return nil
}

// EndRun finalizes and exports the run. An empty output directory keeps
// the frames in memory only.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return storage.ErrNoActiveRun
	}
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// RecordFrame keeps a copy of the frame.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return storage.ErrNoActiveRun
	}

	frame := *f
	frame.Cells = append(core.Snapshot(nil), f.Cells...)
	b.frames = append(b.frames, frame)
	return nil
}

// Run returns the run being recorded, or nil.
func (b *Backend) Run() *core.Run {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.run
}

// Frames returns a copy of the recorded frames in tick order.
func (b *Backend) Frames() []core.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Frame(nil), b.frames...)
}

// ExportedFilePath returns the path of the last exported file.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
