package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/ringroad/nasch/internal/dispatcher"

// instruments holds the dispatcher metrics. They are created on the global
// meter, so they are no-ops until a meter provider is installed.
type instruments struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
}

// queueLengths reports the backlog of every buffered sink.
type queueLengths func(observe func(sink string, frames int))

func newInstruments(queues queueLengths) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	in := &instruments{}

	var err error
	in.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of frames waiting for a buffered sink"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			queues(func(sink string, frames int) {
				o.ObserveInt64(in.queueSize, int64(frames), sinkAttr(sink))
			})
			return nil
		},
		in.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	in.processed, err = m.Int64Counter(
		"dispatcher.frames.processed",
		metric.WithDescription("Total frames delivered to sinks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	return in, nil
}

func (in *instruments) delivered(sink string) {
	in.processed.Add(context.Background(), 1, sinkAttr(sink))
}

func sinkAttr(sink string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("sink", sink))
}
