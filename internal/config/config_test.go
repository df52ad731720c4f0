package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "racecaller",
			Environment: "development",
			LogLevel:    "info",
		},
		Provider: ProviderConfig{
			BaseURL:           "https://ladder.example.com",
			TimeoutSeconds:    30,
			RetryAttempts:     5,
			RequestsPerSecond: 5,
			PageSize:          50,
		},
		Features: FeaturesConfig{
			MatchLimit:         20,
			DecayHalfLifeHours: 48,
		},
		Engine: EngineConfig{
			TargetSample:    20,
			FreshWindowDays: 7,
			StaleWindowDays: 14,
			RecencyFloor:    0.35,
			CacheTTLSeconds: 300,
			CacheMaxSize:    1000,
		},
		Model: ModelConfig{Path: "models/model.json"},
		Backtest: BacktestConfig{
			Players:          []string{"ann", "bob"},
			MatchesPerPlayer: 200,
			MinHistory:       5,
			CalibrationBins:  10,
			TrainFraction:    0.8,
		},
		Trainer: TrainerConfig{
			Iterations:   2000,
			LearningRate: 0.5,
			L2Penalty:    0.001,
		},
		Metrics: MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"},
	}
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file is not an error")

	assert.Equal(t, "racecaller", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 20, cfg.Features.MatchLimit)
	assert.Equal(t, 48, cfg.Features.DecayHalfLifeHours)
	assert.Equal(t, 50, cfg.Provider.PageSize)
	assert.Equal(t, 2000, cfg.Trainer.Iterations)
	assert.Equal(t, 0.8, cfg.Backtest.TrainFraction)
	assert.Equal(t, "models/model.json", cfg.Model.Path)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadMissingFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithDefaultsExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("RACECALLER_TEST_TOKEN", "sekrit")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  environment: staging
provider:
  base_url: https://ladder.example.com
  api_token: ${RACECALLER_TEST_TOKEN}
backtest:
  players:
    - ann
    - bob
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadWithDefaults(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "sekrit", cfg.Provider.APIToken)
	assert.Equal(t, []string{"ann", "bob"}, cfg.Backtest.Players)

	// Values absent from the file keep their defaults.
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 20, cfg.Engine.TargetSample)

	require.NoError(t, Validate(cfg))
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"unknown environment", func(cfg *Config) { cfg.App.Environment = "testing" }},
		{"unknown log level", func(cfg *Config) { cfg.App.LogLevel = "verbose" }},
		{"missing base url", func(cfg *Config) { cfg.Provider.BaseURL = "" }},
		{"malformed base url", func(cfg *Config) { cfg.Provider.BaseURL = "not a url" }},
		{"single player pool", func(cfg *Config) { cfg.Backtest.Players = []string{"ann"} }},
		{"train fraction out of range", func(cfg *Config) { cfg.Backtest.TrainFraction = 1.0 }},
		{"invalid cron schedule", func(cfg *Config) { cfg.Trainer.Schedule = "every sometimes" }},
		{"stale window before fresh", func(cfg *Config) {
			cfg.Engine.FreshWindowDays = 14
			cfg.Engine.StaleWindowDays = 7
		}},
		{"database enabled without host", func(cfg *Config) {
			cfg.Database = DatabaseConfig{Enabled: true, Port: 5432, Name: "rc", User: "rc", MaxConnections: 10}
		}},
		{"database enabled without port", func(cfg *Config) {
			cfg.Database = DatabaseConfig{Enabled: true, Host: "localhost", Name: "rc", User: "rc", MaxConnections: 10}
		}},
		{"production without api token", func(cfg *Config) { cfg.App.Environment = "production" }},
		{"production with ssl disabled", func(cfg *Config) {
			cfg.App.Environment = "production"
			cfg.Provider.APIToken = "token"
			cfg.Database = DatabaseConfig{
				Enabled: true, Host: "localhost", Port: 5432, Name: "rc", User: "rc",
				SSLMode: "disable", MaxConnections: 10,
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidateAcceptsCronSchedule(t *testing.T) {
	cfg := validConfig()
	cfg.Trainer.Schedule = "0 4 * * *"
	assert.NoError(t, Validate(cfg))
}

func TestEnvironmentHelpers(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.App.Environment = "production"
	assert.True(t, cfg.IsProduction())

	cfg.App.Environment = "staging"
	assert.True(t, cfg.IsStaging())
}

func TestDurationHelpers(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 48*time.Hour, cfg.DecayHalfLife())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{
		Host: "localhost", Port: 5432, Name: "racecaller",
		User: "rc", Password: "pw", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://rc:pw@localhost:5432/racecaller?sslmode=disable", cfg.GetDatabaseDSN())
}
