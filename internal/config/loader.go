package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields. A missing config file is not an error; defaults and environment
// variables alone can configure a run.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RACECALLER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "racecaller")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("provider.retry_attempts", 5)
	v.SetDefault("provider.requests_per_second", 5)
	v.SetDefault("provider.page_size", 50)

	v.SetDefault("features.match_limit", 20)
	v.SetDefault("features.decay_half_life_hours", 48)

	v.SetDefault("engine.target_sample", 20)
	v.SetDefault("engine.fresh_window_days", 7)
	v.SetDefault("engine.stale_window_days", 14)
	v.SetDefault("engine.recency_floor", 0.35)
	v.SetDefault("engine.cache_ttl_seconds", 300)
	v.SetDefault("engine.cache_max_size", 1000)

	v.SetDefault("model.path", "models/model.json")

	v.SetDefault("backtest.matches_per_player", 200)
	v.SetDefault("backtest.min_history", 5)
	v.SetDefault("backtest.calibration_bins", 10)
	v.SetDefault("backtest.train_fraction", 0.8)

	v.SetDefault("trainer.iterations", 2000)
	v.SetDefault("trainer.learning_rate", 0.5)
	v.SetDefault("trainer.l2_penalty", 0.001)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
