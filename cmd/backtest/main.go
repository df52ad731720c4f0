// Package main provides the entry point for the backtesting CLI tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecaller/internal/artifact"
	"github.com/yourusername/racecaller/internal/backtest"
	"github.com/yourusername/racecaller/internal/config"
	"github.com/yourusername/racecaller/internal/database"
	"github.com/yourusername/racecaller/internal/engine"
	"github.com/yourusername/racecaller/internal/logger"
	"github.com/yourusername/racecaller/internal/provider"
	"github.com/yourusername/racecaller/internal/repository"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		players    = flag.String("players", "", "Comma-separated player pool override")
		matches    = flag.Int("matches", 0, "Matches fetched per player (0 uses config)")
		output     = flag.String("output", "", "Output path for the JSON report (overrides config)")
		saveDB     = flag.Bool("save-db", false, "Persist the report to the database")
	)
	flag.Parse()

	appLogger := logrus.New()
	appLogger.SetFormatter(&logrus.JSONFormatter{})
	ctx := context.Background()

	cfg := loadConfigWithSecrets(ctx, *configPath, appLogger)
	appLogger = logger.NewLogger(cfg.App.LogLevel)

	btCfg := buildBacktestConfig(cfg, *players, *matches)
	harness := buildHarness(cfg, appLogger)

	appLogger.WithFields(logrus.Fields{
		"players": len(btCfg.Players),
		"matches": btCfg.MatchesPerPlayer,
	}).Info("Starting backtest")

	report, _, err := harness.Run(ctx, btCfg)
	if err != nil {
		appLogger.Fatalf("Backtest failed: %v", err)
	}

	fmt.Print(backtest.GenerateConsoleReport(report))

	outputPath := cfg.Backtest.OutputPath
	if *output != "" {
		outputPath = *output
	}
	if outputPath != "" {
		if err := backtest.ExportToJSON(report, outputPath); err != nil {
			appLogger.Fatalf("Failed to export report: %v", err)
		}
		appLogger.WithField("path", outputPath).Info("Report exported")
	}

	if *saveDB {
		persistReport(ctx, cfg, report, appLogger)
	}
}

func loadConfigWithSecrets(ctx context.Context, path string, appLogger *logrus.Logger) *config.Config {
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		appLogger.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			appLogger.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			appLogger.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		appLogger.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func buildBacktestConfig(cfg *config.Config, playersOverride string, matchesOverride int) backtest.Config {
	btCfg := backtest.Config{
		Players:          cfg.Backtest.Players,
		MatchesPerPlayer: cfg.Backtest.MatchesPerPlayer,
		FeatureLimit:     cfg.Features.MatchLimit,
		MinHistory:       cfg.Backtest.MinHistory,
		CalibrationBins:  cfg.Backtest.CalibrationBins,
		TrainFraction:    cfg.Backtest.TrainFraction,
		DecayHalfLife:    cfg.DecayHalfLife(),
	}
	if playersOverride != "" {
		btCfg.Players = strings.Split(playersOverride, ",")
	}
	if matchesOverride > 0 {
		btCfg.MatchesPerPlayer = matchesOverride
	}
	return btCfg
}

func buildHarness(cfg *config.Config, appLogger *logrus.Logger) *backtest.Harness {
	httpCfg := provider.DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.Provider.TimeoutSeconds) * time.Second
	httpCfg.MaxRetries = cfg.Provider.RetryAttempts
	httpCfg.RateLimit = cfg.Provider.RequestsPerSecond
	httpClient := provider.NewRateLimitedHTTPClient(httpCfg)
	ladder := provider.NewLadderClient(httpClient, cfg.Provider.BaseURL, cfg.Provider.APIToken, cfg.Provider.PageSize, appLogger)

	store := artifact.NewStore(appLogger)
	eng := engine.New(engine.Config{
		ModelPath:    cfg.Model.Path,
		TargetSample: cfg.Engine.TargetSample,
		FreshWindow:  time.Duration(cfg.Engine.FreshWindowDays) * 24 * time.Hour,
		StaleWindow:  time.Duration(cfg.Engine.StaleWindowDays) * 24 * time.Hour,
		RecencyFloor: cfg.Engine.RecencyFloor,
	}, store, appLogger)

	harness, err := backtest.NewHarness(ladder, eng, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to create harness: %v", err)
	}
	return harness
}

func persistReport(ctx context.Context, cfg *config.Config, report *backtest.Report, appLogger *logrus.Logger) {
	if !cfg.Database.Enabled {
		appLogger.Warn("Database persistence requested but database is disabled in config")
		return
	}
	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo := repository.NewPostgresBacktestReportRepository(db)
	if err := backtest.ExportToDatabase(ctx, report, repo); err != nil {
		appLogger.Fatalf("Failed to persist report: %v", err)
	}
	appLogger.Info("Report persisted to database")
}
