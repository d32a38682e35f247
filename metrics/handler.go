package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type (
	Counter interface {
		Inc(delta int64)
	}

	Timer interface {
		Record(d time.Duration)
	}

	MetricsHandlerOptions struct {
		Meter             metric.Meter
		InitialAttributes attribute.Set
	}

	// MetricsHandler hands out counters and timers that carry a fixed
	// attribute set. Handlers derived with WithAttributes share instruments.
	MetricsHandler struct {
		instruments *instruments
		attributes  attribute.Set
	}

	instruments struct {
		meter    metric.Meter
		mu       sync.Mutex
		counters map[string]metric.Int64Counter
		timers   map[string]metric.Float64Histogram
	}

	counter struct {
		inst  metric.Int64Counter
		attrs attribute.Set
	}

	timer struct {
		inst  metric.Float64Histogram
		attrs attribute.Set
	}
)

func NewMetricsHandler(options MetricsHandlerOptions) *MetricsHandler {
	meter := options.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
	}

	return &MetricsHandler{
		instruments: &instruments{
			meter:    meter,
			counters: make(map[string]metric.Int64Counter),
			timers:   make(map[string]metric.Float64Histogram),
		},
		attributes: options.InitialAttributes,
	}
}

// NopHandler returns a handler whose instruments discard every measurement.
func NopHandler() *MetricsHandler {
	return NewMetricsHandler(MetricsHandlerOptions{})
}

func (h *MetricsHandler) WithAttributes(attrs ...attribute.KeyValue) *MetricsHandler {
	if h == nil {
		h = NopHandler()
	}

	merged := append(h.attributes.ToSlice(), attrs...)

	return &MetricsHandler{
		instruments: h.instruments,
		attributes:  attribute.NewSet(merged...),
	}
}

func (h *MetricsHandler) Counter(name string) Counter {
	if h == nil {
		h = NopHandler()
	}

	i := h.instruments
	i.mu.Lock()
	defer i.mu.Unlock()

	inst, ok := i.counters[name]
	if !ok {
		var err error
		inst, err = i.meter.Int64Counter(name)
		if err != nil {
			inst = noop.Int64Counter{}
		}
		i.counters[name] = inst
	}

	return counter{inst: inst, attrs: h.attributes}
}

func (h *MetricsHandler) Timer(name string) Timer {
	if h == nil {
		h = NopHandler()
	}

	i := h.instruments
	i.mu.Lock()
	defer i.mu.Unlock()

	inst, ok := i.timers[name]
	if !ok {
		var err error
		inst, err = i.meter.Float64Histogram(name, metric.WithUnit("s"))
		if err != nil {
			inst = noop.Float64Histogram{}
		}
		i.timers[name] = inst
	}

	return timer{inst: inst, attrs: h.attributes}
}

func (c counter) Inc(delta int64) {
	c.inst.Add(context.Background(), delta, metric.WithAttributeSet(c.attrs))
}

func (t timer) Record(d time.Duration) {
	t.inst.Record(context.Background(), d.Seconds(), metric.WithAttributeSet(t.attrs))
}
