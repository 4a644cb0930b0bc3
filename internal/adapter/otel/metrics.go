package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "commitcast"

// FanoutMetrics holds the instruments of one broadcast channel. Every
// measurement carries a channel attribute.
type FanoutMetrics struct {
	attrs metric.MeasurementOption

	published      metric.Int64Counter
	rejected       metric.Int64Counter
	dropped        metric.Int64Counter
	delivered      metric.Int64Counter
	writeFailures  metric.Int64Counter
	encodeFailures metric.Int64Counter
	acceptErrors   metric.Int64Counter
	connections    metric.Int64UpDownCounter
	fanoutDuration metric.Float64Histogram
	queueLatency   metric.Float64Histogram
}

// NewFanoutMetrics creates the channel instruments on the global meter provider.
func NewFanoutMetrics(channel string) (*FanoutMetrics, error) {
	return NewFanoutMetricsWithMeter(otel.Meter(meterName), channel)
}

// NewFanoutMetricsWithMeter creates the channel instruments on the given meter.
func NewFanoutMetricsWithMeter(meter metric.Meter, channel string) (*FanoutMetrics, error) {
	m := &FanoutMetrics{
		attrs: metric.WithAttributeSet(attribute.NewSet(attribute.String("channel", channel))),
	}
	var err error

	m.published, err = meter.Int64Counter("commitcast.messages.published",
		metric.WithDescription("Messages accepted into the publish queue"))
	if err != nil {
		return nil, err
	}

	m.rejected, err = meter.Int64Counter("commitcast.messages.rejected",
		metric.WithDescription("Publish calls refused because the queue was closed or full"))
	if err != nil {
		return nil, err
	}

	m.dropped, err = meter.Int64Counter("commitcast.messages.dropped",
		metric.WithDescription("Queued messages evicted by the drop_oldest overflow policy"))
	if err != nil {
		return nil, err
	}

	m.delivered, err = meter.Int64Counter("commitcast.frames.delivered",
		metric.WithDescription("Frames written successfully to a connection"))
	if err != nil {
		return nil, err
	}

	m.writeFailures, err = meter.Int64Counter("commitcast.frames.write_failures",
		metric.WithDescription("Frame writes that failed and pruned the connection"))
	if err != nil {
		return nil, err
	}

	m.encodeFailures, err = meter.Int64Counter("commitcast.messages.encode_failures",
		metric.WithDescription("Messages discarded because they could not be serialized"))
	if err != nil {
		return nil, err
	}

	m.acceptErrors, err = meter.Int64Counter("commitcast.accept.errors",
		metric.WithDescription("Failed accept calls on the listening socket"))
	if err != nil {
		return nil, err
	}

	m.connections, err = meter.Int64UpDownCounter("commitcast.connections",
		metric.WithDescription("Live observer connections"))
	if err != nil {
		return nil, err
	}

	m.fanoutDuration, err = meter.Float64Histogram("commitcast.fanout.duration_seconds",
		metric.WithDescription("Time spent writing one message to every connection"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.queueLatency, err = meter.Float64Histogram("commitcast.queue.latency_seconds",
		metric.WithDescription("Time a message waited in the publish queue"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Published counts one message accepted into the queue.
func (m *FanoutMetrics) Published(ctx context.Context) { m.published.Add(ctx, 1, m.attrs) }

// Rejected counts one publish refused by a closed or full queue.
func (m *FanoutMetrics) Rejected(ctx context.Context) { m.rejected.Add(ctx, 1, m.attrs) }

// Dropped counts one queued message evicted by drop_oldest.
func (m *FanoutMetrics) Dropped(ctx context.Context) { m.dropped.Add(ctx, 1, m.attrs) }

// EncodeFailed counts one message discarded because it did not encode.
func (m *FanoutMetrics) EncodeFailed(ctx context.Context) { m.encodeFailures.Add(ctx, 1, m.attrs) }

// AcceptFailed counts one failed accept.
func (m *FanoutMetrics) AcceptFailed(ctx context.Context) { m.acceptErrors.Add(ctx, 1, m.attrs) }

// ConnectionOpened counts one accepted connection.
func (m *FanoutMetrics) ConnectionOpened(ctx context.Context) {
	m.connections.Add(ctx, 1, m.attrs)
}

// FanoutDone records the outcome of one fan-out pass.
func (m *FanoutMetrics) FanoutDone(ctx context.Context, delivered, failed int, elapsed time.Duration) {
	if delivered > 0 {
		m.delivered.Add(ctx, int64(delivered), m.attrs)
	}
	if failed > 0 {
		m.writeFailures.Add(ctx, int64(failed), m.attrs)
		m.connections.Add(ctx, -int64(failed), m.attrs)
	}
	m.fanoutDuration.Record(ctx, elapsed.Seconds(), m.attrs)
}

// ConnectionsClosed counts connections closed at shutdown.
func (m *FanoutMetrics) ConnectionsClosed(ctx context.Context, n int) {
	if n > 0 {
		m.connections.Add(ctx, -int64(n), m.attrs)
	}
}

// QueueWait records how long a message sat in the queue before dispatch.
func (m *FanoutMetrics) QueueWait(ctx context.Context, d time.Duration) {
	m.queueLatency.Record(ctx, d.Seconds(), m.attrs)
}
