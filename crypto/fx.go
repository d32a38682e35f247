package crypto

import (
	"devtoolbox/cryptotool/config"
	"devtoolbox/cryptotool/metrics"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Provide(
	newProvider,
)

func newProvider(configProvider config.ConfigProvider, metricsHandler *metrics.MetricsHandler, logger *zap.Logger) (Provider, error) {
	software := NewSoftwareProvider(ProviderOptions{})

	cachingCfg := configProvider.GetConfig().Caching
	if !cachingCfg.Enabled() {
		return software, nil
	}

	maxAge, err := cachingCfg.MaxAgeDuration()
	if err != nil {
		return nil, err
	}

	logger.Debug("result cache enabled",
		zap.Int("max_cache", cachingCfg.MaxCache),
		zap.Duration("max_age", maxAge),
		zap.Int("max_usage", cachingCfg.MaxUsage),
	)

	return NewCachingProvider(software, CachingConfig{
		MaxCache: cachingCfg.MaxCache,
		MaxAge:   maxAge,
		MaxUsage: cachingCfg.MaxUsage,
	}, metricsHandler)
}
