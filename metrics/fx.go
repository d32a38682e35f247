package metrics

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(
		newMeterProvider,
		newMetricsHandler,
		newMetricsProvider,
	),
	fx.Invoke(func(MetricsProvider) {}),
)
