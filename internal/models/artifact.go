package models

import "time"

// PlattModel holds logistic recalibration coefficients. A calibrated
// probability is sigmoid(A*logit(p) + B).
type PlattModel struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// TrainingMetadata records how a model artifact was produced.
type TrainingMetadata struct {
	TrainedAt        time.Time `json:"trained_at"`
	SampleCount      int       `json:"sample_count"`
	TrainSize        int       `json:"train_size"`
	TestSize         int       `json:"test_size"`
	Iterations       int       `json:"iterations"`
	LearningRate     float64   `json:"learning_rate"`
	L2Penalty        float64   `json:"l2_penalty"`
	TestBrier        float64   `json:"test_brier"`
	TestLogLoss      float64   `json:"test_log_loss"`
	HeuristicBrier   float64   `json:"heuristic_brier"`
	HeuristicLogLoss float64   `json:"heuristic_log_loss"`
}

// ModelArtifact is a persisted trained model definition. It is immutable
// once loaded; invalid artifacts are rejected wholesale and the engine falls
// back to the heuristic scorer.
type ModelArtifact struct {
	Version     string             `json:"version"`
	CreatedAt   time.Time          `json:"created_at"`
	Features    []string           `json:"features"`
	Intercept   float64            `json:"intercept"`
	Weights     map[string]float64 `json:"weights"`
	Calibration *PlattModel        `json:"calibration,omitempty"`
	Training    *TrainingMetadata  `json:"training,omitempty"`
}
