package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BacktestReportRecord is the persisted form of one backtest run.
type BacktestReportRecord struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	RunDate           time.Time       `json:"run_date" db:"run_date"`
	Model             string          `json:"model" db:"model"`
	PoolSize          int             `json:"pool_size" db:"pool_size"`
	ConsideredMatches int             `json:"considered_matches" db:"considered_matches"`
	TrainSize         int             `json:"train_size" db:"train_size"`
	TestSize          int             `json:"test_size" db:"test_size"`
	TestAccuracy      float64         `json:"test_accuracy" db:"test_accuracy"`
	TestBrier         float64         `json:"test_brier" db:"test_brier"`
	TestLogLoss       float64         `json:"test_log_loss" db:"test_log_loss"`
	Skips             json.RawMessage `json:"skips" db:"skips"`
	FullReport        json.RawMessage `json:"full_report" db:"full_report"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// TrainingRunRecord is the persisted form of one training run.
type TrainingRunRecord struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	RunDate      time.Time       `json:"run_date" db:"run_date"`
	ModelVersion string          `json:"model_version" db:"model_version"`
	Saved        bool            `json:"saved" db:"saved"`
	TrainSize    int             `json:"train_size" db:"train_size"`
	TestSize     int             `json:"test_size" db:"test_size"`
	TestBrier    float64         `json:"test_brier" db:"test_brier"`
	TestLogLoss  float64         `json:"test_log_loss" db:"test_log_loss"`
	Artifact     json.RawMessage `json:"artifact,omitempty" db:"artifact"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
