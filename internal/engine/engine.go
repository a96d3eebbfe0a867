// Package engine implements the Nagel-Schreckenberg update loop.
//
// One tick applies four phases in fixed order to the whole road:
//
//  1. Accelerate - every vehicle below its max speed speeds up by one.
//  2. Decelerate - every vehicle slows down to stop one cell short of the
//     next vehicle ahead.
//  3. Randomize  - every moving vehicle dawdles (slows by one) with the
//     configured probability.
//  4. Advance    - every vehicle moves forward by its speed, wrapping
//     around the end of the road.
//
// Each phase reads the current generation buffer and writes the next one,
// then the buffers are swapped. A phase therefore never sees its own
// results, which keeps the automaton synchronous even when partitions of
// the road are processed by parallel workers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ringroad/nasch/internal/road"
	"github.com/ringroad/nasch/pkg/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// Recorder receives a frame after the initial placement and after every tick.
// An error aborts the run.
type Recorder interface {
	Record(frame core.Frame) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(frame core.Frame) error

// Record calls f.
func (f RecorderFunc) Record(frame core.Frame) error { return f(frame) }

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for run progress.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRunID tags every frame with id.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// phase is one step of a tick, runnable over a cell span with its own
// random source.
type phase struct {
	name   string
	random bool
	run    func(r *road.Road, s span, rng *rand.Rand) error
}

// Engine runs one simulation. It is not safe for concurrent use.
type Engine struct {
	params core.Parameters
	road   *road.Road
	rng    *rand.Rand
	runID  string
	logger *slog.Logger

	parts    []span
	reach    int
	vehicles int
	tick     int

	ticks        metric.Int64Counter
	tickDuration metric.Float64Histogram
}

// New validates params, builds the initial road from rng and returns an
// engine ready for the first tick. rng is the only random source of the run.
func New(params core.Parameters, rng *rand.Rand, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: a random source is required", core.ErrConfiguration)
	}
	r, err := NewRoad(params, rng)
	if err != nil {
		return nil, err
	}
	return newEngine(params, r, rng, opts...)
}

// NewWithRoad wraps an already populated road. params.StreetLength must
// match the road; InitialCars is ignored.
func NewWithRoad(params core.Parameters, r *road.Road, rng *rand.Rand, opts ...Option) (*Engine, error) {
	if r == nil || rng == nil {
		return nil, fmt.Errorf("%w: road and random source are required", core.ErrConfiguration)
	}
	if params.StreetLength != r.Len() {
		return nil, fmt.Errorf("%w: street length %d does not match road of length %d",
			core.ErrConfiguration, params.StreetLength, r.Len())
	}
	params.InitialCars = r.Count()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return newEngine(params, r, rng, opts...)
}

func newEngine(params core.Parameters, r *road.Road, rng *rand.Rand, opts ...Option) (*Engine, error) {
	e := &Engine{
		params:   params,
		road:     r,
		rng:      rng,
		logger:   slog.Default(),
		parts:    partitions(r.Len(), params.Workers),
		reach:    r.Reach(),
		vehicles: r.Count(),
	}
	for _, opt := range opts {
		opt(e)
	}

	m := meter()
	var err error
	e.ticks, err = m.Int64Counter(
		"engine.ticks",
		metric.WithDescription("Total simulation ticks completed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	e.tickDuration, err = m.Float64Histogram(
		"engine.tick.duration",
		metric.WithDescription("Wall time of one tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}
	return e, nil
}

// Road returns the road state. Callers must not mutate it during a run.
func (e *Engine) Road() *road.Road { return e.road }

// Parameters returns the run configuration.
func (e *Engine) Parameters() core.Parameters { return e.params }

// Ticks returns the number of completed ticks.
func (e *Engine) Ticks() int { return e.tick }

// Frame captures the current road as a frame.
func (e *Engine) Frame(elapsed time.Duration) core.Frame {
	return core.Frame{
		RunID:    e.runID,
		Tick:     e.tick,
		Cells:    e.road.Snapshot(),
		Duration: elapsed,
	}
}

// Run records the initial road, then performs params.Iterations ticks and
// records the road after each of them. The first error stops the run.
func (e *Engine) Run(rec Recorder) error {
	if err := rec.Record(e.Frame(0)); err != nil {
		return fmt.Errorf("recording initial state: %w", err)
	}

	e.logger.Info("Simulation started",
		"run", e.runID,
		"streetLength", e.params.StreetLength,
		"vehicles", e.vehicles,
		"iterations", e.params.Iterations,
		"workers", len(e.parts),
	)

	for range e.params.Iterations {
		start := time.Now()
		if err := e.Tick(); err != nil {
			return err
		}
		elapsed := time.Since(start)
		if err := rec.Record(e.Frame(elapsed)); err != nil {
			return fmt.Errorf("recording tick %d: %w", e.tick, err)
		}
	}

	e.logger.Info("Simulation finished", "run", e.runID, "ticks", e.tick)
	return nil
}

// Tick advances the road by one step. On error the road keeps the state
// published by the last successful phase.
func (e *Engine) Tick() error {
	start := time.Now()
	next := e.tick + 1

	for _, p := range e.phases() {
		if err := e.apply(p); err != nil {
			return fmt.Errorf("tick %d: %s: %w", next, p.name, err)
		}
	}
	if n := e.road.Count(); n != e.vehicles {
		return fmt.Errorf("tick %d: %w: vehicle count changed from %d to %d",
			next, core.ErrCollisionInvariant, e.vehicles, n)
	}

	e.tick = next

	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.Int("workers", len(e.parts)))
	e.ticks.Add(ctx, 1, attrs)
	e.tickDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)

	e.logger.Debug("Tick complete", "run", e.runID, "tick", e.tick, "duration", time.Since(start))
	return nil
}

func (e *Engine) phases() []phase {
	advance := phase{name: "advance", run: func(r *road.Road, s span, _ *rand.Rand) error {
		return Advance(r, s.start, s.end)
	}}
	if len(e.parts) > 1 {
		advance.run = func(r *road.Road, s span, _ *rand.Rand) error {
			return Gather(r, s.start, s.end, e.reach)
		}
	}

	return []phase{
		{name: "accelerate", run: func(r *road.Road, s span, _ *rand.Rand) error {
			return Accelerate(r, s.start, s.end)
		}},
		{name: "decelerate", run: func(r *road.Road, s span, _ *rand.Rand) error {
			return Decelerate(r, s.start, s.end)
		}},
		{name: "randomize", random: true, run: func(r *road.Road, s span, rng *rand.Rand) error {
			return Randomize(r, s.start, s.end, e.params.DawdleProbability, rng)
		}},
		advance,
	}
}

// apply runs p over every partition, waits for all of them and swaps the
// buffers. A failed phase leaves the current buffer untouched.
func (e *Engine) apply(p phase) error {
	var err error
	if len(e.parts) == 1 {
		err = p.run(e.road, e.parts[0], e.rng)
	} else {
		err = e.applyParallel(p)
	}
	if err != nil {
		e.road.Discard()
		return err
	}
	e.road.Swap()
	return nil
}

func (e *Engine) applyParallel(p phase) error {
	sources := make([]*rand.Rand, len(e.parts))
	if p.random {
		// seeds are drawn in partition order so the run stays reproducible
		for k := range sources {
			sources[k] = rand.New(rand.NewSource(e.rng.Int63()))
		}
	}

	var g errgroup.Group
	for k, s := range e.parts {
		g.Go(func() error {
			return p.run(e.road, s, sources[k])
		})
	}
	return g.Wait()
}
