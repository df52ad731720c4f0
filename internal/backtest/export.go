package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/racecaller/internal/models"
	"github.com/yourusername/racecaller/internal/repository"
)

// ExportToJSON writes the full report to a JSON file
func ExportToJSON(report *Report, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// ExportToDatabase persists a backtest report
func ExportToDatabase(ctx context.Context, report *Report, repo repository.BacktestReportRepository) error {
	if repo == nil {
		return fmt.Errorf("backtest report repository is required")
	}

	// Prefer the calibrated test metrics when Platt scaling was fitted.
	test := report.Test
	if report.TestCalibrated != nil {
		test = *report.TestCalibrated
	}

	record := models.BacktestReportRecord{
		ID:                uuid.New(),
		RunDate:           report.StartedAt,
		Model:             report.Model,
		PoolSize:          report.Players,
		ConsideredMatches: report.ConsideredMatches,
		TrainSize:         report.TrainSize,
		TestSize:          report.TestSize,
		TestAccuracy:      test.Accuracy,
		TestBrier:         test.Brier,
		TestLogLoss:       test.LogLoss,
		Skips:             mustMarshalJSON(report.Skips),
		FullReport:        mustMarshalJSON(report),
		CreatedAt:         time.Now().UTC(),
	}
	return repo.SaveReport(ctx, &record)
}

func mustMarshalJSON(value any) json.RawMessage {
	data, _ := json.Marshal(value)
	return data
}
