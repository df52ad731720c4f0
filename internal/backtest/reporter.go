package backtest

import (
	"fmt"
	"strings"
	"time"
)

// GenerateConsoleReport formats a run report for terminal output
func GenerateConsoleReport(report *Report) string {
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Model: %s\n", report.Model))
	builder.WriteString(fmt.Sprintf("Players: %d\n", report.Players))
	builder.WriteString(fmt.Sprintf("Considered Matches: %d\n", report.ConsideredMatches))
	builder.WriteString(fmt.Sprintf("Skipped: participants=%d winner=%d history=%d model=%d\n",
		report.Skips.MissingParticipants,
		report.Skips.MissingWinner,
		report.Skips.MissingHistory,
		report.Skips.ModelUnavailable,
	))
	builder.WriteString(fmt.Sprintf("Train/Test Split: %d/%d\n", report.TrainSize, report.TestSize))
	builder.WriteString(fmt.Sprintf("Train: acc=%.2f%% brier=%.4f logloss=%.4f\n",
		report.Train.Accuracy*100, report.Train.Brier, report.Train.LogLoss))
	builder.WriteString(fmt.Sprintf("Test:  acc=%.2f%% brier=%.4f logloss=%.4f\n",
		report.Test.Accuracy*100, report.Test.Brier, report.Test.LogLoss))
	if report.TestCalibrated != nil {
		builder.WriteString(fmt.Sprintf("Test (calibrated): acc=%.2f%% brier=%.4f logloss=%.4f\n",
			report.TestCalibrated.Accuracy*100, report.TestCalibrated.Brier, report.TestCalibrated.LogLoss))
	}
	if report.Calibration != nil {
		builder.WriteString(fmt.Sprintf("Platt: a=%.4f b=%.4f\n", report.Calibration.A, report.Calibration.B))
	}
	if len(report.Bins) > 0 {
		builder.WriteString("\nReliability\n")
		builder.WriteString("-----------\n")
		for _, bin := range report.Bins {
			if bin.Count == 0 {
				continue
			}
			builder.WriteString(fmt.Sprintf("[%.2f, %.2f) n=%-4d predicted=%.3f observed=%.3f\n",
				bin.Low, bin.High, bin.Count, bin.MeanPredicted, bin.ObservedRate))
		}
	}
	builder.WriteString(fmt.Sprintf("\nDuration: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)))
	return builder.String()
}
