package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ringroad/nasch/pkg/core"
)

// Sink consumes frames.
type Sink interface {
	Record(frame core.Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(frame core.Frame) error

// Record calls f.
func (f SinkFunc) Record(frame core.Frame) error { return f(frame) }

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("dispatcher closed")

// Option configures sink registration.
type Option func(*config)

type config struct {
	bufferSize int
	logged     bool
}

// Buffered runs the sink on its own goroutine behind a queue of the given
// size. A full queue blocks the caller; frames are never dropped.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Logged adds debug logging to the sink.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type route struct {
	name   string
	record func(core.Frame) error
	buffer chan core.Frame
}

// Dispatcher fans frames out to registered sinks in registration order.
// Record and Close are called from the simulation goroutine only.
type Dispatcher struct {
	routes []*route
	logger Logger

	metrics *instruments

	wg     sync.WaitGroup
	mu     sync.RWMutex
	err    error
	closed bool
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger: logger,
	}

	metrics, err := newInstruments(d.queueLengths)
	if err != nil {
		return nil, err
	}
	d.metrics = metrics
	return d, nil
}

func (d *Dispatcher) queueLengths(observe func(sink string, frames int)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.routes {
		if r.buffer != nil {
			observe(r.name, len(r.buffer))
		}
	}
}

// Register adds a sink under name. Sinks must be registered before the
// first Record.
func (d *Dispatcher) Register(name string, s Sink, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := &route{name: name, record: s.Record}
	if cfg.logged {
		r.record = d.withLogging(name, r.record)
	}
	if cfg.bufferSize > 0 {
		r.buffer = make(chan core.Frame, cfg.bufferSize)
		d.wg.Add(1)
		go d.drain(r)
	}

	d.mu.Lock()
	d.routes = append(d.routes, r)
	d.mu.Unlock()
}

// Has returns true if a sink is registered under name.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.routes {
		if r.name == name {
			return true
		}
	}
	return false
}

// Record delivers frame to every sink. It returns the first error any
// sink has reported so far, including errors of earlier frames from
// buffered sinks.
func (d *Dispatcher) Record(frame core.Frame) error {
	d.mu.RLock()
	closed, routes := d.closed, d.routes
	d.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if err := d.Err(); err != nil {
		return err
	}

	for _, r := range routes {
		if r.buffer != nil {
			r.buffer <- frame
			continue
		}
		if err := d.deliver(r, frame); err != nil {
			return err
		}
	}
	return d.Err()
}

// Err returns the first sink error, if any.
func (d *Dispatcher) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// Close stops accepting frames, waits until buffered sinks are drained and
// returns the first sink error.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return d.Err()
	}
	d.closed = true
	for _, r := range d.routes {
		if r.buffer != nil {
			close(r.buffer)
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
	return d.Err()
}

func (d *Dispatcher) drain(r *route) {
	defer d.wg.Done()
	for frame := range r.buffer {
		if d.Err() != nil {
			// keep draining so Record never blocks on a dead sink
			continue
		}
		_ = d.deliver(r, frame)
	}
}

func (d *Dispatcher) deliver(r *route, frame core.Frame) error {
	if err := r.record(frame); err != nil {
		err = fmt.Errorf("sink %s, tick %d: %w", r.name, frame.Tick, err)
		d.fail(err)
		return err
	}
	d.metrics.delivered(r.name)
	return nil
}

func (d *Dispatcher) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err == nil {
		d.err = err
		d.logger.Error("sink failed", "error", err)
	}
}

func (d *Dispatcher) withLogging(name string, record func(core.Frame) error) func(core.Frame) error {
	return func(frame core.Frame) error {
		start := time.Now()
		d.logger.Debug("recording frame", "sink", name, "tick", frame.Tick)

		err := record(frame)

		if err != nil {
			d.logger.Error("frame failed", "sink", name, "tick", frame.Tick, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("frame recorded", "sink", name, "tick", frame.Tick, "duration", time.Since(start))
		}

		return err
	}
}
