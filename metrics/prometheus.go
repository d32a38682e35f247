package metrics

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitPrometheus installs a global meter provider backed by the Prometheus
// exporter. RSA key generation dominates the upper buckets.
func InitPrometheus() (*metric.MeterProvider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}

	histogramView := metric.NewView(
		metric.Instrument{Kind: metric.InstrumentKindHistogram},
		metric.Stream{
			Aggregation: metric.AggregationExplicitBucketHistogram{
				Boundaries: []float64{
					0.00001, // 10 microseconds
					0.0001,  // 100 microseconds
					0.001,   // 1 millisecond
					0.005,   // 5 milliseconds
					0.01,    // 10 milliseconds
					0.05,    // 50 milliseconds
					0.1,     // 100 milliseconds
					0.5,     // 500 milliseconds
					1.0,     // 1 second
					5.0,     // 5 seconds
					30.0,    // 30 seconds
				},
			},
		},
	)

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithView(histogramView),
	)
	otel.SetMeterProvider(provider)

	return provider, nil
}
