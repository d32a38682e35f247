package controller

import (
	"devtoolbox/cryptotool/config"
	"devtoolbox/cryptotool/crypto"
	"devtoolbox/cryptotool/engine"
	"devtoolbox/cryptotool/metrics"

	"go.uber.org/zap"
)

// Factory builds controllers from the loaded configuration. Controllers
// share the engine but no state.
type Factory struct {
	converter      Converter
	debounce       config.ControllerConfig
	aes            config.AESConfig
	rsa            config.RSAConfig
	metricsHandler *metrics.MetricsHandler
	logger         *zap.Logger
}

func newFactory(
	eng *engine.Engine,
	configProvider config.ConfigProvider,
	metricsHandler *metrics.MetricsHandler,
	logger *zap.Logger,
) *Factory {
	cfg := configProvider.GetConfig()

	return &Factory{
		converter:      eng,
		debounce:       cfg.Controller,
		aes:            cfg.AES,
		rsa:            cfg.RSA,
		metricsHandler: metricsHandler,
		logger:         logger,
	}
}

// New returns a controller for pair and algorithm using the configured
// debounce, AES mode and key sizes.
func (f *Factory) New(pair Pair, algorithm engine.Algorithm, onChange func(Snapshot)) (*Controller, error) {
	debounce, err := f.debounce.DebounceDuration()
	if err != nil {
		return nil, err
	}

	mode, err := crypto.ParseMode(f.aes.Mode)
	if err != nil {
		return nil, err
	}

	keySize := f.aes.KeySize
	if algorithm == engine.RSA {
		keySize = f.rsa.KeySize
	}

	return New(f.converter, Options{
		Pair:           pair,
		Algorithm:      algorithm,
		Mode:           mode,
		KeySize:        keySize,
		Debounce:       debounce,
		OnChange:       onChange,
		Logger:         f.logger.With(zap.Stringer("pair", pair), zap.Stringer("algorithm", algorithm)),
		MetricsHandler: f.metricsHandler,
	}), nil
}
