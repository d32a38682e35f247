package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"devtoolbox/cryptotool/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type (
	MetricsProvider interface {
		Start() error
		Stop(ctx context.Context) error
	}

	httpPromMetricsProvider struct {
		host    string
		port    int
		path    string
		enabled bool
		server  *http.Server
		logger  *zap.Logger
	}
)

func newMeterProvider(lc fx.Lifecycle, configProvider config.ConfigProvider, logger *zap.Logger) (otelmetric.MeterProvider, error) {
	if !configProvider.GetConfig().Metrics.Enabled {
		return noop.NewMeterProvider(), nil
	}

	provider, err := InitPrometheus()
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})

	logger.Debug("prometheus meter provider initialized")

	return provider, nil
}

func newMetricsHandler(meterProvider otelmetric.MeterProvider) *MetricsHandler {
	return NewMetricsHandler(MetricsHandlerOptions{
		Meter: meterProvider.Meter(MeterName),
	})
}

func newMetricsProvider(lc fx.Lifecycle, configProvider config.ConfigProvider, logger *zap.Logger) MetricsProvider {
	cfg := configProvider.GetConfig().Metrics

	provider := &httpPromMetricsProvider{
		host:    cfg.Host,
		port:    cfg.Port,
		path:    DefaultPrometheusPath,
		enabled: cfg.Enabled,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.Handle(provider.path, promhttp.Handler())
	provider.server = &http.Server{
		Addr:              provider.getHostPort(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return provider.Start()
		},
		OnStop: func(ctx context.Context) error {
			return provider.Stop(ctx)
		},
	})

	return provider
}

func (h *httpPromMetricsProvider) Start() error {
	if !h.enabled {
		return nil
	}

	go func() {
		h.logger.Info("metrics server started", zap.String("endpoint", h.getHostPortPath()))
		if err := h.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("metrics server error", zap.Error(err))
		}
	}()

	return nil
}

func (h *httpPromMetricsProvider) Stop(ctx context.Context) error {
	if !h.enabled {
		return nil
	}
	return h.server.Shutdown(ctx)
}

func (h *httpPromMetricsProvider) getHostPort() string {
	return fmt.Sprintf("%s:%d", h.host, h.port)
}

func (h *httpPromMetricsProvider) getHostPortPath() string {
	return fmt.Sprintf("%s:%d%s", h.host, h.port, h.path)
}
