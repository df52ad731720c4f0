package models

import "time"

// Prediction winner sides.
const (
	WinnerA = "A"
	WinnerB = "B"
)

// PredictionOutcome is the result of a head-to-head prediction.
// ProbabilityA and ProbabilityB always sum to 1; Probability is the winner's.
type PredictionOutcome struct {
	PlayerA      string    `json:"player_a"`
	PlayerB      string    `json:"player_b"`
	Winner       string    `json:"winner"`
	WinnerName   string    `json:"winner_name"`
	Probability  float64   `json:"probability"`
	ProbabilityA float64   `json:"probability_a"`
	ProbabilityB float64   `json:"probability_b"`
	Confidence   float64   `json:"confidence"`
	Factors      []string  `json:"factors,omitempty"`
	Model        string    `json:"model"`
	PredictedAt  time.Time `json:"predicted_at"`
}

// MeetsThreshold checks if the confidence meets the given threshold.
func (p *PredictionOutcome) MeetsThreshold(threshold float64) bool {
	return p.Confidence >= threshold
}
