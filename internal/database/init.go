package database

import (
	"context"
	"fmt"

	"github.com/yourusername/racecaller/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS backtest_reports (
	id UUID PRIMARY KEY,
	run_date TIMESTAMPTZ NOT NULL,
	model TEXT NOT NULL,
	pool_size INT NOT NULL,
	considered_matches INT NOT NULL,
	train_size INT NOT NULL,
	test_size INT NOT NULL,
	test_accuracy DOUBLE PRECISION NOT NULL,
	test_brier DOUBLE PRECISION NOT NULL,
	test_log_loss DOUBLE PRECISION NOT NULL,
	skips JSONB NOT NULL,
	full_report JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtest_reports_run_date ON backtest_reports (run_date DESC);

CREATE TABLE IF NOT EXISTS training_runs (
	id UUID PRIMARY KEY,
	run_date TIMESTAMPTZ NOT NULL,
	model_version TEXT NOT NULL,
	saved BOOLEAN NOT NULL,
	train_size INT NOT NULL,
	test_size INT NOT NULL,
	test_brier DOUBLE PRECISION NOT NULL,
	test_log_loss DOUBLE PRECISION NOT NULL,
	artifact JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_training_runs_run_date ON training_runs (run_date DESC);
`

// Initialize creates a database connection pool and ensures the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if _, err := db.pool.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return db, nil
}
