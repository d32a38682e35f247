package main

import (
	"context"

	"devtoolbox/cryptotool/config"
	"devtoolbox/cryptotool/controller"
	"devtoolbox/cryptotool/crypto"
	"devtoolbox/cryptotool/engine"
	"devtoolbox/cryptotool/keys"
	"devtoolbox/cryptotool/metrics"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// environment holds the components a command needs once the fx graph is up.
type environment struct {
	config      config.Config
	engine      *engine.Engine
	controllers *controller.Factory
	logger      *zap.Logger
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cryptotool",
		Usage: "AES and RSA transform engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    config.ConfigPathFlag,
				Usage:   "config file",
				Aliases: []string{"c"},
			},
			&cli.StringFlag{
				Name:  config.LogLevelFlag,
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			aesCommand(),
			rsaCommand(),
			base64Command(),
			pemCommand(),
			watchCommand(),
		},
	}
}

// withEnvironment builds the fx graph for the command, runs fn and stops
// the graph again.
func withEnvironment(c *cli.Context, fn func(env *environment) error) error {
	var (
		configProvider config.ConfigProvider
		eng            *engine.Engine
		factory        *controller.Factory
		logger         *zap.Logger
	)

	app := fx.New(
		fx.Supply(c),
		config.Module,
		metrics.Module,
		crypto.Module,
		keys.Module,
		engine.Module,
		controller.Module,
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Populate(&configProvider, &eng, &factory, &logger),
	)
	if err := app.Err(); err != nil {
		return err
	}

	if err := app.Start(c.Context); err != nil {
		return err
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			logger.Warn("failed to stop", zap.Error(err))
		}
		_ = logger.Sync()
	}()

	return fn(&environment{
		config:      configProvider.GetConfig(),
		engine:      eng,
		controllers: factory,
		logger:      logger,
	})
}
