// Package csvfile writes runs in the reference text format: one metadata
// line followed by one comma separated line per snapshot.
package csvfile

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ringroad/nasch/internal/config"
	"github.com/ringroad/nasch/internal/storage"
	"github.com/ringroad/nasch/pkg/core"
)

// DefaultDir is used when no output directory is configured.
const DefaultDir = "output"

// FileName returns the output file name for a run started at the run's
// local start time.
func FileName(run *core.Run, compressed bool) string {
	name := "output_" + run.StartTime.Format("02012006_150405") + ".csv"
	if compressed {
		name += ".gz"
	}
	return name
}

// Backend appends frames to a text file.
type Backend struct {
	cfg config.CSVConfig

	mu       sync.Mutex
	file     *os.File
	gz       *gzip.Writer
	w        *bufio.Writer
	path     string
	lastPath string
	frames   int
}

// New creates a new csv backend
func New(cfg config.CSVConfig) *Backend {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultDir
	}
	return &Backend{cfg: cfg}
}

// Init creates the output directory.
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Close finishes a run that was never ended.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finish()
}

// StartRun opens the output file and writes the metadata line.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.file != nil {
		if err := b.finish(); err != nil {
			return err
		}
	}

	path := filepath.Join(b.cfg.OutputDir, FileName(run, b.cfg.CompressOutput))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("could not open output file: %w", err)
	}

	var out io.Writer = f
	if b.cfg.CompressOutput {
		b.gz = gzip.NewWriter(f)
		out = b.gz
	}
	b.file = f
	b.w = bufio.NewWriter(out)
	b.path = path
	b.frames = 0

	if _, err := b.w.WriteString(run.Header() + "\n"); err != nil {
		return fmt.Errorf("could not write run header: %w", err)
	}
	return nil
}

// RecordFrame appends one snapshot line.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.w == nil {
		return storage.ErrNoActiveRun
	}
	if _, err := b.w.WriteString(f.Cells.Line() + "\n"); err != nil {
		return fmt.Errorf("could not write tick %d: %w", f.Tick, err)
	}
	b.frames++
	return nil
}

// EndRun flushes and closes the output file.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.file == nil {
		return storage.ErrNoActiveRun
	}
	return b.finish()
}

// Frames returns the number of lines written for the current or last run.
func (b *Backend) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// ExportedFilePath returns the file written by the last finished run.
func (b *Backend) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPath
}

func (b *Backend) finish() error {
	if b.file == nil {
		return nil
	}

	var errs []error
	if err := b.w.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if b.gz != nil {
		if err := b.gz.Close(); err != nil {
			errs = append(errs, fmt.Errorf("gzip close: %w", err))
		}
	}
	if err := b.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}

	b.lastPath = b.path
	b.file, b.gz, b.w, b.path = nil, nil, nil, ""

	if len(errs) > 0 {
		return fmt.Errorf("could not finish output file %s: %w", b.lastPath, errors.Join(errs...))
	}
	return nil
}
