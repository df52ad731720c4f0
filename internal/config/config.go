// Package config provides configuration management for the racecaller application.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Provider ProviderConfig `mapstructure:"provider" validate:"required"`
	Features FeaturesConfig `mapstructure:"features" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
	Model    ModelConfig    `mapstructure:"model" validate:"required"`
	Backtest BacktestConfig `mapstructure:"backtest" validate:"required"`
	Trainer  TrainerConfig  `mapstructure:"trainer" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ProviderConfig represents ladder API client configuration
type ProviderConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"required,url"`
	APIToken          string  `mapstructure:"api_token"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts     int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`
	PageSize          int     `mapstructure:"page_size" validate:"required,gt=0,lte=200"`
}

// FeaturesConfig represents feature extraction configuration
type FeaturesConfig struct {
	MatchLimit         int `mapstructure:"match_limit" validate:"required,gt=0"`
	DecayHalfLifeHours int `mapstructure:"decay_half_life_hours" validate:"required,gt=0"`
}

// EngineConfig represents prediction engine configuration
type EngineConfig struct {
	TargetSample    int     `mapstructure:"target_sample" validate:"required,gt=0"`
	FreshWindowDays int     `mapstructure:"fresh_window_days" validate:"required,gt=0"`
	StaleWindowDays int     `mapstructure:"stale_window_days" validate:"required,gt=0"`
	RecencyFloor    float64 `mapstructure:"recency_floor" validate:"gte=0,lte=1"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize    int     `mapstructure:"cache_max_size" validate:"required,gt=0"`
}

// ModelConfig represents trained model artifact configuration
type ModelConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	Players          []string `mapstructure:"players" validate:"required,min=2"`
	MatchesPerPlayer int      `mapstructure:"matches_per_player" validate:"required,gt=0"`
	MinHistory       int      `mapstructure:"min_history" validate:"required,gt=0"`
	CalibrationBins  int      `mapstructure:"calibration_bins" validate:"required,gt=0"`
	TrainFraction    float64  `mapstructure:"train_fraction" validate:"required,gt=0,lt=1"`
	OutputPath       string   `mapstructure:"output_path"`
}

// TrainerConfig represents offline training configuration
type TrainerConfig struct {
	Iterations   int     `mapstructure:"iterations" validate:"required,gt=0"`
	LearningRate float64 `mapstructure:"learning_rate" validate:"required,gt=0"`
	L2Penalty    float64 `mapstructure:"l2_penalty" validate:"gte=0"`
	Schedule     string  `mapstructure:"schedule" validate:"omitempty,cronexpr"`
}

// DatabaseConfig represents optional database connection configuration.
// Connection fields are validated only when Enabled is set.
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// DecayHalfLife returns the feature decay half-life as a duration
func (c *Config) DecayHalfLife() time.Duration {
	return time.Duration(c.Features.DecayHalfLifeHours) * time.Hour
}

// CacheTTL returns the prediction cache TTL as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Engine.CacheTTLSeconds) * time.Second
}
