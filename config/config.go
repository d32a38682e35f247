package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	ConfigPathFlag = "config"
	LogLevelFlag   = "level"

	DefaultDebounce    = 300 * time.Millisecond
	DefaultAESKeySize  = 256
	DefaultAESMode     = "GCM"
	DefaultRSAKeySize  = 2048
	DefaultMetricsHost = "127.0.0.1"
	DefaultMetricsPort = 9090
)

type (
	ConfigProvider interface {
		GetConfig() Config
	}

	Config struct {
		Log        LogConfig        `yaml:"log"`
		Controller ControllerConfig `yaml:"controller"`
		AES        AESConfig        `yaml:"aes"`
		RSA        RSAConfig        `yaml:"rsa"`
		Caching    CachingConfig    `yaml:"caching"`
		Metrics    MetricsConfig    `yaml:"metrics"`
	}

	LogConfig struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	}

	ControllerConfig struct {
		Debounce string `yaml:"debounce"`
	}

	AESConfig struct {
		KeySize int    `yaml:"key_size"`
		Mode    string `yaml:"mode"`
	}

	RSAConfig struct {
		KeySize int `yaml:"key_size"`
	}

	CachingConfig struct {
		MaxCache int    `yaml:"max_cache,omitempty"`
		MaxAge   string `yaml:"max_age,omitempty"`
		MaxUsage int    `yaml:"max_usage,omitempty"`
	}

	MetricsConfig struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	}

	cliConfigProvider struct {
		ctx    *cli.Context
		config Config
	}
)

func newConfigProvider(ctx *cli.Context) (ConfigProvider, error) {
	cfg := Default()

	if path := ctx.String(ConfigPathFlag); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if level := ctx.String(LogLevelFlag); level != "" {
		cfg.Log.Level = level
	}

	return &cliConfigProvider{
		ctx:    ctx,
		config: cfg,
	}, nil
}

func (c *cliConfigProvider) GetConfig() Config {
	return c.config
}

// NewStaticProvider wraps an already loaded configuration.
func NewStaticProvider(cfg Config) ConfigProvider {
	return &cliConfigProvider{config: cfg}
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level: "info",
		},
		Controller: ControllerConfig{
			Debounce: DefaultDebounce.String(),
		},
		AES: AESConfig{
			KeySize: DefaultAESKeySize,
			Mode:    DefaultAESMode,
		},
		RSA: RSAConfig{
			KeySize: DefaultRSAKeySize,
		},
		Metrics: MetricsConfig{
			Host: DefaultMetricsHost,
			Port: DefaultMetricsPort,
		},
	}
}

// LoadConfig reads a YAML file on top of Default and validates the result.
func LoadConfig(configFilePath string) (Config, error) {
	config := Default()

	configFile, err := os.ReadFile(configFilePath)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(configFile, &config); err != nil {
		return config, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	if err = config.Validate(); err != nil {
		return config, fmt.Errorf("failed to validate config: %w", err)
	}

	return config, nil
}

func (c Config) Validate() error {
	var errs []error

	if _, err := c.Controller.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}

	switch c.AES.KeySize {
	case 128, 192, 256:
	default:
		errs = append(errs, fmt.Errorf("aes.key_size must be 128, 192 or 256, got %d", c.AES.KeySize))
	}

	switch strings.ToUpper(c.AES.Mode) {
	case "GCM", "CBC":
	default:
		errs = append(errs, fmt.Errorf("aes.mode must be GCM or CBC, got %q", c.AES.Mode))
	}

	switch c.RSA.KeySize {
	case 2048, 3072, 4096:
	default:
		errs = append(errs, fmt.Errorf("rsa.key_size must be 2048, 3072 or 4096, got %d", c.RSA.KeySize))
	}

	if c.Caching.MaxCache < 0 || c.Caching.MaxUsage < 0 {
		errs = append(errs, errors.New("caching limits must not be negative"))
	}
	if _, err := c.Caching.MaxAgeDuration(); err != nil {
		errs = append(errs, err)
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("metrics.port %d out of range", c.Metrics.Port))
	}

	return errors.Join(errs...)
}

func (c ControllerConfig) DebounceDuration() (time.Duration, error) {
	if c.Debounce == "" {
		return DefaultDebounce, nil
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid controller.debounce: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("controller.debounce must not be negative, got %s", d)
	}
	return d, nil
}

// Enabled reports whether the result cache should be built. Caching is off
// unless both limits are configured.
func (c CachingConfig) Enabled() bool {
	return c.MaxCache > 0 && c.MaxUsage > 0
}

func (c CachingConfig) MaxAgeDuration() (time.Duration, error) {
	if c.MaxAge == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.MaxAge)
	if err != nil {
		return 0, fmt.Errorf("invalid caching.max_age: %w", err)
	}
	return d, nil
}
