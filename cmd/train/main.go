// Package main provides the offline training CLI and retraining daemon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/racecaller/internal/artifact"
	"github.com/yourusername/racecaller/internal/backtest"
	"github.com/yourusername/racecaller/internal/config"
	"github.com/yourusername/racecaller/internal/database"
	"github.com/yourusername/racecaller/internal/engine"
	"github.com/yourusername/racecaller/internal/health"
	"github.com/yourusername/racecaller/internal/logger"
	"github.com/yourusername/racecaller/internal/metrics"
	"github.com/yourusername/racecaller/internal/models"
	"github.com/yourusername/racecaller/internal/provider"
	"github.com/yourusername/racecaller/internal/repository"
	"github.com/yourusername/racecaller/internal/scheduler"
	"github.com/yourusername/racecaller/internal/trainer"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	force      bool
	daemon     bool
	saveDB     bool

	appLogger    *logrus.Logger
	cfg          *config.Config
	modelTrainer *trainer.Trainer
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().BoolVar(&force, "force", false, "Save the artifact even when it does not beat the heuristic baseline")
	rootCmd.Flags().BoolVar(&daemon, "daemon", false, "Run as a daemon retraining on the configured cron schedule")
	rootCmd.Flags().BoolVar(&saveDB, "save-db", false, "Persist training run records to the database")
}

var rootCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit and promote the trained prediction model",
	Long:  `Builds leakage-free samples from the configured player pool, fits the logistic model, and saves the artifact when it beats the heuristic baseline on the held-out test split.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if daemon {
			return runDaemon()
		}
		return runOnce(context.Background())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	loaded, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(context.Background(), loaded, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}
	if err := config.Validate(loaded); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func setupDependencies() error {
	appLogger = logger.NewLogger(cfg.App.LogLevel)

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
		return err
	}
	modelTrainer, err = trainer.New(harness, store, appLogger)
	return err
}

func backtestConfig() backtest.Config {
	return backtest.Config{
		Players:          cfg.Backtest.Players,
		MatchesPerPlayer: cfg.Backtest.MatchesPerPlayer,
		FeatureLimit:     cfg.Features.MatchLimit,
		MinHistory:       cfg.Backtest.MinHistory,
		CalibrationBins:  cfg.Backtest.CalibrationBins,
		TrainFraction:    cfg.Backtest.TrainFraction,
		DecayHalfLife:    cfg.DecayHalfLife(),
	}
}

func trainConfig() trainer.Config {
	return trainer.Config{
		ModelPath:    cfg.Model.Path,
		Iterations:   cfg.Trainer.Iterations,
		LearningRate: cfg.Trainer.LearningRate,
		L2Penalty:    cfg.Trainer.L2Penalty,
		Force:        force,
	}
}

func runOnce(ctx context.Context) error {
	result, err := modelTrainer.Train(ctx, backtestConfig(), trainConfig())
	if err != nil {
		return err
	}

	fmt.Printf("Training run: %s\n", result.Reason)
	fmt.Printf("Train: %d samples, brier=%.4f logloss=%.4f\n",
		result.Train.Samples, result.Train.Brier, result.Train.LogLoss)
	fmt.Printf("Test:  %d samples, brier=%.4f logloss=%.4f\n",
		result.Test.Samples, result.Test.Brier, result.Test.LogLoss)
	fmt.Printf("Heuristic baseline: brier=%.4f logloss=%.4f\n",
		result.HeuristicTest.Brier, result.HeuristicTest.LogLoss)
	if result.Saved {
		fmt.Printf("Saved artifact %s to %s\n", result.Artifact.Version, cfg.Model.Path)
	}

	if saveDB {
		return persistTrainingRun(ctx, result)
	}
	return nil
}

func runDaemon() error {
	if cfg.Trainer.Schedule == "" {
		return fmt.Errorf("trainer schedule must be set to run as a daemon")
	}

	sched := scheduler.NewScheduler(modelTrainer, appLogger)
	if err := sched.ScheduleRetraining(cfg.Trainer.Schedule, backtestConfig(), trainConfig()); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	healthCfg := health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		MetricsPath: cfg.Metrics.Path,
		ModelCheck:  trainedModelCheck(),
		Logger:      appLogger,
	}
	if cfg.Metrics.Enabled {
		healthCfg.Port = fmt.Sprintf("%d", cfg.Metrics.Port)
		healthCfg.Metrics = metrics.Handler()
	}
	healthServer := health.NewServer(healthCfg)
	if err := healthServer.Start(serverCtx); err != nil {
		return err
	}
	healthServer.SetReady(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	appLogger.Info("Shutting down")
	healthServer.SetReady(false)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(ctx)
}

func trainedModelCheck() health.ModelCheck {
	store := artifact.NewStore(appLogger)
	path := cfg.Model.Path
	return func() bool {
		store.Invalidate(path)
		return store.Load(path) != nil
	}
}

func persistTrainingRun(ctx context.Context, result *trainer.Result) error {
	if !cfg.Database.Enabled {
		appLogger.Warn("Database persistence requested but database is disabled in config")
		return nil
	}
	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	var artifactJSON json.RawMessage
	if result.Saved {
		artifactJSON, _ = json.Marshal(result.Artifact)
	}
	record := &models.TrainingRunRecord{
		ID:           uuid.New(),
		RunDate:      time.Now().UTC(),
		ModelVersion: result.Artifact.Version,
		Saved:        result.Saved,
		TrainSize:    result.Train.Samples,
		TestSize:     result.Test.Samples,
		TestBrier:    result.Test.Brier,
		TestLogLoss:  result.Test.LogLoss,
		Artifact:     artifactJSON,
		CreatedAt:    time.Now().UTC(),
	}
	repo := repository.NewPostgresTrainingRunRepository(db)
	return repo.SaveRun(ctx, record)
}
