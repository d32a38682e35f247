package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	result := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			result[m.Name] = m.Data
		}
	}
	return result
}

func TestMetricsHandler_CounterAndTimer(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	handler := NewMetricsHandler(MetricsHandlerOptions{
		Meter:             provider.Meter(MeterName),
		InitialAttributes: attribute.NewSet(attribute.String(AttrAlgorithm, "aes")),
	})

	tagged := handler.WithAttributes(attribute.String(AttrOperation, "encrypt"))
	tagged.Counter(ConvertRequests).Inc(1)
	tagged.Counter(ConvertRequests).Inc(2)
	tagged.Timer(ConvertLatency).Record(15 * time.Millisecond)

	data := collect(t, reader)

	sum, ok := data[ConvertRequests].(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum for %s", ConvertRequests)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	op, ok := sum.DataPoints[0].Attributes.Value(AttrOperation)
	require.True(t, ok)
	assert.Equal(t, "encrypt", op.AsString())
	alg, ok := sum.DataPoints[0].Attributes.Value(AttrAlgorithm)
	require.True(t, ok)
	assert.Equal(t, "aes", alg.AsString())

	hist, ok := data[ConvertLatency].(metricdata.Histogram[float64])
	require.True(t, ok, "expected a float64 histogram for %s", ConvertLatency)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.015, hist.DataPoints[0].Sum, 0.0001)
}

func TestMetricsHandler_AttributesOverride(t *testing.T) {
	handler := NopHandler().WithAttributes(attribute.String(AttrOperation, "encrypt"))
	derived := handler.WithAttributes(attribute.String(AttrOperation, "decrypt"))

	v, ok := derived.attributes.Value(AttrOperation)
	require.True(t, ok)
	assert.Equal(t, "decrypt", v.AsString())
	assert.Same(t, handler.instruments, derived.instruments)
}

func TestMetricsHandler_NilSafe(t *testing.T) {
	var handler *MetricsHandler

	assert.NotPanics(t, func() {
		handler.Counter(ConvertErrors).Inc(1)
		handler.Timer(ConvertLatency).Record(time.Second)
		handler.WithAttributes(attribute.String(AttrErrorKind, "MissingKey")).Counter(ConvertErrors).Inc(1)
	})
}
