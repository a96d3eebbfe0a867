// Package monitor reports the progress of a running simulation: it follows
// the frames handed to the dispatcher and periodically logs and writes the
// latest status.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ringroad/nasch/pkg/core"
)

// Status is the progress of the current run.
type Status struct {
	Time       time.Time `json:"time"`
	RunID      string    `json:"run"`
	Tick       int       `json:"tick"`
	Iterations int       `json:"iterations"`
	Vehicles   int       `json:"vehicles"`
	Moving     int       `json:"moving"`
	LastTickMs float64   `json:"lastTickMs"`
}

// Percent returns the share of completed ticks.
func (s Status) Percent() float64 {
	if s.Iterations <= 0 {
		return 0
	}
	return float64(s.Tick) * 100 / float64(s.Iterations)
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger     *slog.Logger
	Iterations int
	Interval   time.Duration
	StatusPath string // optional, rewritten on every report
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu        sync.RWMutex
	status    Status
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		deps:   deps,
		status: Status{Iterations: deps.Iterations},
	}
}

// Record updates the status from a frame. It lets the service be
// registered as a dispatcher sink.
func (s *Service) Record(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Time = time.Now()
	s.status.RunID = f.RunID
	s.status.Tick = f.Tick
	s.status.Vehicles = f.Cells.Occupied()
	s.status.Moving = f.Moving()
	s.status.LastTickMs = float64(f.Duration.Microseconds()) / 1000
	return nil
}

// Status returns the latest status.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the status monitor goroutine. A zero interval disables
// periodic reports.
func (s *Service) Start() error {
	if s.deps.Interval <= 0 {
		return nil
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.report()
			}
		}
	}()

	return nil
}

func (s *Service) report() {
	status := s.Status()
	if status.RunID == "" {
		return
	}

	s.deps.Logger.Info("Simulation progress",
		"tick", status.Tick,
		"iterations", status.Iterations,
		"percent", fmt.Sprintf("%.1f", status.Percent()),
		"moving", status.Moving,
		"lastTickMs", status.LastTickMs,
	)

	if s.deps.StatusPath == "" {
		return
	}
	if err := writeStatus(s.deps.StatusPath, status); err != nil {
		s.deps.Logger.Error("Error writing status file", "path", s.deps.StatusPath, "error", err)
	}
}

func writeStatus(path string, status Status) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Stop stops the status monitor and writes a last report. The report is
// written even when periodic reports are disabled.
func (s *Service) Stop() {
	s.mu.Lock()
	stop, done := s.stopChan, s.done
	s.stopChan = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	s.report()
}
