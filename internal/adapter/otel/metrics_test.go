package otel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value("channel")
		assert.Equal(t, "objects", v.AsString())
		total += dp.Value
	}
	return total
}

func TestFanoutMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewFanoutMetricsWithMeter(mp.Meter("test"), "objects")
	require.NoError(t, err)

	ctx := context.Background()
	m.Published(ctx)
	m.Published(ctx)
	m.Rejected(ctx)
	m.ConnectionOpened(ctx)
	m.ConnectionOpened(ctx)
	m.ConnectionOpened(ctx)
	m.FanoutDone(ctx, 2, 1, 5*time.Millisecond)
	m.QueueWait(ctx, time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["commitcast.messages.published"]))
	assert.Equal(t, int64(1), sumOf(t, data["commitcast.messages.rejected"]))
	assert.Equal(t, int64(2), sumOf(t, data["commitcast.frames.delivered"]))
	assert.Equal(t, int64(1), sumOf(t, data["commitcast.frames.write_failures"]))
	assert.Equal(t, int64(2), sumOf(t, data["commitcast.connections"]))

	hist, ok := data["commitcast.fanout.duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}
