// Package config loads client configuration from a YAML file with
// environment-variable overrides (prefix DECKTABLE_).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for a client session.
type Config struct {
	Transport  TransportConfig  `mapstructure:"transport"`
	Session    SessionConfig    `mapstructure:"session"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	LocalStore LocalStoreConfig `mapstructure:"local_store"`
}

// TransportConfig selects and parameterizes the document store adapter.
type TransportConfig struct {
	// Kind is one of "memory", "redis", "ws".
	Kind      string `mapstructure:"kind"`
	RedisAddr string `mapstructure:"redis_addr"`
	RelayURL  string `mapstructure:"relay_url"`
}

// SessionConfig tunes the reconciliation loop.
type SessionConfig struct {
	// PollInterval is the fallback reconciliation cadence backing up the
	// push subscription.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// PromptWindow bounds how long an incoming effect-request prompt stays
	// on screen. The underlying request remains acceptable afterwards.
	PromptWindow time.Duration `mapstructure:"prompt_window"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LocalStoreConfig locates the bbolt file holding per-device state.
type LocalStoreConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from path. A missing file yields defaults;
// environment variables always override.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("transport.kind", "memory")
	v.SetDefault("transport.redis_addr", "localhost:6379")
	v.SetDefault("transport.relay_url", "ws://localhost:8081/ws")
	v.SetDefault("session.poll_interval", 500*time.Millisecond)
	v.SetDefault("session.prompt_window", 15*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("local_store.path", "decktable.db")

	v.SetEnvPrefix("DECKTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport.Kind {
	case "memory", "redis", "ws":
	default:
		return fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}
	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("session poll_interval must be positive, got %s", c.Session.PollInterval)
	}
	return nil
}
