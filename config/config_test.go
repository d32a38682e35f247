package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			configYAML: `
log:
  level: debug
controller:
  debounce: 150ms
aes:
  key_size: 128
  mode: CBC
rsa:
  key_size: 3072
caching:
  max_cache: 10
  max_age: "1m"
  max_usage: 50
metrics:
  enabled: true
  host: "0.0.0.0"
  port: 9100
`,
			expectError: false,
		},
		{
			name:        "empty config uses defaults",
			configYAML:  "",
			expectError: false,
		},
		{
			name: "invalid yaml",
			configYAML: `
aes:
  key_size: 256
invalid_yaml: [
`,
			expectError: true,
			errorMsg:    "failed to unmarshal config file",
		},
		{
			name: "validation failure - aes key size",
			configYAML: `
aes:
  key_size: 512
`,
			expectError: true,
			errorMsg:    "failed to validate config",
		},
		{
			name: "validation failure - debounce",
			configYAML: `
controller:
  debounce: soon
`,
			expectError: true,
			errorMsg:    "invalid controller.debounce",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.configYAML), 0o600))

			config, err := LoadConfig(path)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorMsg != "" {
					assert.Contains(t, err.Error(), tt.errorMsg)
				}
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, config)
			}
		})
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rsa:\n  key_size: 4096\n"), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4096, config.RSA.KeySize)
	assert.Equal(t, DefaultAESKeySize, config.AES.KeySize)
	assert.Equal(t, DefaultAESMode, config.AES.Mode)

	debounce, err := config.Controller.DebounceDuration()
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, debounce)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "lowercase mode",
			mutate:  func(c *Config) { c.AES.Mode = "gcm" },
			wantErr: false,
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.AES.Mode = "ECB" },
			wantErr: true,
			errMsg:  "aes.mode",
		},
		{
			name:    "rsa key size",
			mutate:  func(c *Config) { c.RSA.KeySize = 1024 },
			wantErr: true,
			errMsg:  "rsa.key_size",
		},
		{
			name:    "negative cache",
			mutate:  func(c *Config) { c.Caching.MaxCache = -1 },
			wantErr: true,
			errMsg:  "caching limits",
		},
		{
			name:    "bad max age",
			mutate:  func(c *Config) { c.Caching.MaxAge = "forever" },
			wantErr: true,
			errMsg:  "caching.max_age",
		},
		{
			name: "metrics port out of range",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 70000
			},
			wantErr: true,
			errMsg:  "metrics.port",
		},
		{
			name: "metrics port ignored when disabled",
			mutate: func(c *Config) {
				c.Metrics.Port = 70000
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCachingConfig(t *testing.T) {
	assert.False(t, Default().Caching.Enabled())
	assert.False(t, CachingConfig{MaxCache: 10}.Enabled())
	assert.True(t, CachingConfig{MaxCache: 10, MaxUsage: 5}.Enabled())

	d, err := CachingConfig{MaxAge: "90s"}.MaxAgeDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestNewConfigProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aes:\n  mode: CBC\n"), 0o600))

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String(ConfigPathFlag, "", "")
	set.String(LogLevelFlag, "", "")
	require.NoError(t, set.Parse([]string{"--" + ConfigPathFlag, path, "--" + LogLevelFlag, "debug"}))

	provider, err := newConfigProvider(cli.NewContext(cli.NewApp(), set, nil))
	require.NoError(t, err)

	cfg := provider.GetConfig()
	assert.Equal(t, "CBC", cfg.AES.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestNewConfigProvider_NoFile(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String(ConfigPathFlag, "", "")
	set.String(LogLevelFlag, "", "")

	provider, err := newConfigProvider(cli.NewContext(cli.NewApp(), set, nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), provider.GetConfig())
}
