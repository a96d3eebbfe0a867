// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/ringroad/nasch/pkg/core"
)

// ErrNoActiveRun is returned when frames arrive before StartRun or after EndRun.
var ErrNoActiveRun = errors.New("no active run")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun() error

	// State recording
	RecordFrame(f *core.Frame) error
}

// Exporter is an optional interface for backends that write the run to a
// single file once it ends.
type Exporter interface {
	ExportedFilePath() string
}

// Sink feeds dispatcher frames into a backend.
type Sink struct {
	Backend Backend
}

// Record stores one frame.
func (s Sink) Record(f core.Frame) error {
	return s.Backend.RecordFrame(&f)
}
