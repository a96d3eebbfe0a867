// Package gormstorage implements the storage.Backend interface on top of
// GORM. Frames are queued and written in batches; the dialect specific
// backends (postgres, sqlite) embed it and only own the connection.
package gormstorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ringroad/nasch/internal/database"
	"github.com/ringroad/nasch/internal/model"
	"github.com/ringroad/nasch/internal/model/convert"
	"github.com/ringroad/nasch/internal/queue"
	"github.com/ringroad/nasch/internal/storage"
	"github.com/ringroad/nasch/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DefaultBatchSize is used when no batch size is configured.
const DefaultBatchSize = 500

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB        *gorm.DB
	BatchSize int
	Logger    zerolog.Logger
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	frames *queue.Queue[model.Frame]

	mu      sync.Mutex
	runID   uuid.UUID
	written int
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	return &Backend{
		deps: deps,
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates the frame queue and runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	b.frames = queue.New[model.Frame](b.deps.BatchSize)

	if err := database.Migrate(b.deps.DB, b.deps.Logger, model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	return nil
}

// Close writes frames still queued.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frames == nil {
		return nil
	}
	return b.flush()
}

// StartRun inserts the run row. A run without an id gets a fresh UUID,
// written back to run.ID.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, err := convert.ParseRunID(run.ID)
	if err != nil {
		return err
	}
	row, err := convert.CoreToRun(*run, id)
	if err != nil {
		return err
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new run: %w", err)
	}

	run.ID = id.String()
	b.runID = id
	b.written = 0

	b.deps.Logger.Info().Str("run", run.ID).Msg("Run started")
	return nil
}

// RecordFrame converts the frame and queues it, writing the batch once it is full.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.runID == uuid.Nil {
		return storage.ErrNoActiveRun
	}

	if b.frames.Push(convert.CoreToFrame(*f, b.runID, time.Now())) {
		return b.flush()
	}
	return nil
}

// EndRun writes the remaining frames and stamps the run's end time and frame count.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.runID == uuid.Nil {
		return storage.ErrNoActiveRun
	}
	if err := b.flush(); err != nil {
		return err
	}

	now := time.Now()
	err := b.deps.DB.Model(&model.Run{}).
		Where("id = ?", b.runID).
		Updates(map[string]any{"end_time": now, "frame_count": b.written}).Error
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", b.runID, err)
	}

	b.deps.Logger.Info().Str("run", b.runID.String()).Int("frames", b.written).Msg("Run finished")
	b.runID = uuid.Nil
	return nil
}

// flush writes all queued frames. Callers hold b.mu.
func (b *Backend) flush() error {
	items := b.frames.Drain()
	if len(items) == 0 {
		return nil
	}

	start := time.Now()
	if err := b.deps.DB.CreateInBatches(items, b.deps.BatchSize).Error; err != nil {
		return fmt.Errorf("failed to write %d frames: %w", len(items), err)
	}
	b.written += len(items)

	b.deps.Logger.Debug().
		Int("count", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Wrote frames")
	return nil
}

// Pending returns the number of queued frames.
func (b *Backend) Pending() int {
	if b.frames == nil {
		return 0
	}
	return b.frames.Len()
}

// LoadRun reads a run and its frames in tick order.
func (b *Backend) LoadRun(id string) (*core.Run, []core.Frame, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil, fmt.Errorf("run id %q is not a UUID: %w", id, err)
	}

	var row model.Run
	err = b.deps.DB.Preload("Frames", func(db *gorm.DB) *gorm.DB {
		return db.Order("tick ASC")
	}).First(&row, "id = ?", runID).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	run, err := convert.RunToCore(row)
	if err != nil {
		return nil, nil, err
	}

	frames := make([]core.Frame, 0, len(row.Frames))
	for _, fr := range row.Frames {
		f, err := convert.FrameToCore(fr)
		if err != nil {
			return nil, nil, err
		}
		frames = append(frames, f)
	}
	return &run, frames, nil
}
