package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/racecaller/internal/database"
	"github.com/yourusername/racecaller/internal/models"
)

// PostgresTrainingRunRepository implements TrainingRunRepository for PostgreSQL
type PostgresTrainingRunRepository struct {
	db *database.DB
}

// NewPostgresTrainingRunRepository creates a new training run repository
func NewPostgresTrainingRunRepository(db *database.DB) TrainingRunRepository {
	return &PostgresTrainingRunRepository{db: db}
}

// SaveRun inserts a training run
func (r *PostgresTrainingRunRepository) SaveRun(ctx context.Context, run *models.TrainingRunRecord) error {
	query := `
		INSERT INTO training_runs (
			id, run_date, model_version, saved, train_size, test_size,
			test_brier, test_log_loss, artifact, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`

	_, err := r.db.Exec(ctx, query,
		run.ID, run.RunDate, run.ModelVersion, run.Saved, run.TrainSize, run.TestSize,
		run.TestBrier, run.TestLogLoss, run.Artifact, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent training runs
func (r *PostgresTrainingRunRepository) GetLatest(ctx context.Context, limit int) ([]*models.TrainingRunRecord, error) {
	query := `
		SELECT id, run_date, model_version, saved, train_size, test_size,
			test_brier, test_log_loss, artifact, created_at
		FROM training_runs ORDER BY run_date DESC LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest training runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.TrainingRunRecord
	for rows.Next() {
		run := &models.TrainingRunRecord{}
		if err := rows.Scan(
			&run.ID, &run.RunDate, &run.ModelVersion, &run.Saved, &run.TrainSize, &run.TestSize,
			&run.TestBrier, &run.TestLogLoss, &run.Artifact, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
