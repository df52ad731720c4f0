package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/racecaller/internal/database"
	"github.com/yourusername/racecaller/internal/models"
)

const errScanBacktestReport = "failed to scan backtest report: %w"

// PostgresBacktestReportRepository implements BacktestReportRepository for PostgreSQL
type PostgresBacktestReportRepository struct {
	db *database.DB
}

// NewPostgresBacktestReportRepository creates a new backtest report repository
func NewPostgresBacktestReportRepository(db *database.DB) BacktestReportRepository {
	return &PostgresBacktestReportRepository{db: db}
}

// SaveReport inserts a backtest report
func (r *PostgresBacktestReportRepository) SaveReport(ctx context.Context, report *models.BacktestReportRecord) error {
	query := `
		INSERT INTO backtest_reports (
			id, run_date, model, pool_size, considered_matches,
			train_size, test_size, test_accuracy, test_brier, test_log_loss,
			skips, full_report, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`

	_, err := r.db.Exec(ctx, query,
		report.ID, report.RunDate, report.Model, report.PoolSize, report.ConsideredMatches,
		report.TrainSize, report.TestSize, report.TestAccuracy, report.TestBrier, report.TestLogLoss,
		report.Skips, report.FullReport, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest report: %w", err)
	}
	return nil
}

// GetByID retrieves one backtest report
func (r *PostgresBacktestReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestReportRecord, error) {
	query := `
		SELECT id, run_date, model, pool_size, considered_matches,
			train_size, test_size, test_accuracy, test_brier, test_log_loss,
			skips, full_report, created_at
		FROM backtest_reports WHERE id = $1
	`
	report := &models.BacktestReportRecord{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&report.ID, &report.RunDate, &report.Model, &report.PoolSize, &report.ConsideredMatches,
		&report.TrainSize, &report.TestSize, &report.TestAccuracy, &report.TestBrier, &report.TestLogLoss,
		&report.Skips, &report.FullReport, &report.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(errScanBacktestReport, err)
	}
	return report, nil
}

// GetLatest retrieves the most recent backtest reports
func (r *PostgresBacktestReportRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestReportRecord, error) {
	query := `
		SELECT id, run_date, model, pool_size, considered_matches,
			train_size, test_size, test_accuracy, test_brier, test_log_loss,
			skips, full_report, created_at
		FROM backtest_reports ORDER BY run_date DESC LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest backtest reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.BacktestReportRecord
	for rows.Next() {
		report := &models.BacktestReportRecord{}
		if err := rows.Scan(
			&report.ID, &report.RunDate, &report.Model, &report.PoolSize, &report.ConsideredMatches,
			&report.TrainSize, &report.TestSize, &report.TestAccuracy, &report.TestBrier, &report.TestLogLoss,
			&report.Skips, &report.FullReport, &report.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf(errScanBacktestReport, err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
