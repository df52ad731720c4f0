// Package repository provides data access for persisted backtest reports and
// training runs.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/racecaller/internal/models"
)

// BacktestReportRepository defines the interface for backtest report access
type BacktestReportRepository interface {
	SaveReport(ctx context.Context, report *models.BacktestReportRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestReportRecord, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestReportRecord, error)
}

// TrainingRunRepository defines the interface for training run access
type TrainingRunRepository interface {
	SaveRun(ctx context.Context, run *models.TrainingRunRecord) error
	GetLatest(ctx context.Context, limit int) ([]*models.TrainingRunRecord, error)
}
