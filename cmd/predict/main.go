// Package main provides the head-to-head prediction CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/racecaller/internal/artifact"
	"github.com/yourusername/racecaller/internal/config"
	"github.com/yourusername/racecaller/internal/engine"
	"github.com/yourusername/racecaller/internal/features"
	"github.com/yourusername/racecaller/internal/logger"
	"github.com/yourusername/racecaller/internal/provider"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	matchCount int
	threshold  float64
	jsonOutput bool

	appLogger *logrus.Logger
	cfg       *config.Config
	predictor *engine.Predictor
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().IntVarP(&matchCount, "matches", "m", 0, "Number of recent matches to aggregate (0 uses config)")
	rootCmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Minimum confidence to report a pick")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the outcome as JSON")
}

var rootCmd = &cobra.Command{
	Use:   "predict <player-a> <player-b>",
	Short: "Predict a head-to-head ranked race",
	Long:  `Fetches both players' recent ranked history and predicts the winner with a calibrated probability and confidence.`,
	Args:  cobra.ExactArgs(2),
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
		return runPredict(args[0], args[1])
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

	predCache := engine.NewPredictionCache(cfg.CacheTTL(), cfg.Engine.CacheMaxSize)
	featureCfg := features.Config{
		Limit:         cfg.Features.MatchLimit,
		DecayHalfLife: cfg.DecayHalfLife(),
	}

	var err error
	predictor, err = engine.NewPredictor(ladder, eng, predCache, featureCfg, appLogger)
	return err
}

func runPredict(playerA, playerB string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	outcome, err := predictor.Predict(ctx, playerA, playerB, matchCount)
	if err != nil {
		return err
	}
	if outcome == nil {
		fmt.Printf("Not enough ranked history to predict %s vs %s\n", playerA, playerB)
		return nil
	}

	if jsonOutput {
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%s vs %s\n", outcome.PlayerA, outcome.PlayerB)
	fmt.Printf("Predicted winner: %s (%.1f%%)\n", outcome.WinnerName, outcome.Probability*100)
	fmt.Printf("Confidence: %.2f (model: %s)\n", outcome.Confidence, outcome.Model)
	for _, factor := range outcome.Factors {
		fmt.Printf("  - %s\n", factor)
	}
	if threshold > 0 && !outcome.MeetsThreshold(threshold) {
		fmt.Printf("Below confidence threshold %.2f; no pick\n", threshold)
	}
	return nil
}
