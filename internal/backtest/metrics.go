// Package backtest replays historical head-to-head events chronologically
// and evaluates predictor quality with leakage-free train/test calibration.
package backtest

import (
	"math"

	"github.com/yourusername/racecaller/internal/models"
	"github.com/yourusername/racecaller/internal/scoring"
)

// MinPlattSamples is the smallest train split Platt scaling is fitted on.
// Below it the fit is skipped and predictions stay uncalibrated.
const MinPlattSamples = 20

// MetricsSummary holds the shared evaluation metrics over one split.
type MetricsSummary struct {
	Samples  int     `json:"samples"`
	Accuracy float64 `json:"accuracy"`
	Brier    float64 `json:"brier"`
	LogLoss  float64 `json:"log_loss"`
}

// Evaluate computes accuracy, Brier score, and log-loss over predictions and
// binary labels. Probabilities are clamped away from {0, 1} before any log.
func Evaluate(predictions, labels []float64) MetricsSummary {
	n := len(predictions)
	if n == 0 || n != len(labels) {
		return MetricsSummary{}
	}

	correct := 0
	brierSum := 0.0
	logLossSum := 0.0
	for i := 0; i < n; i++ {
		p := scoring.ClampProbability(predictions[i])
		y := labels[i]
		if (p >= 0.5) == (y >= 0.5) {
			correct++
		}
		diff := p - y
		brierSum += diff * diff
		logLossSum += -(y*math.Log(p) + (1-y)*math.Log(1-p))
	}

	return MetricsSummary{
		Samples:  n,
		Accuracy: float64(correct) / float64(n),
		Brier:    brierSum / float64(n),
		LogLoss:  logLossSum / float64(n),
	}
}

// FitPlatt fits logistic recalibration coefficients on train predictions by
// gradient descent in logit space, starting from the identity (a=1, b=0).
// Returns nil when the split is too small to fit anything trustworthy.
func FitPlatt(predictions, labels []float64) *models.PlattModel {
	n := len(predictions)
	if n < MinPlattSamples || n != len(labels) {
		return nil
	}

	logits := make([]float64, n)
	for i, p := range predictions {
		logits[i] = scoring.Logit(p)
	}

	a, b := 1.0, 0.0
	const (
		iterations = 500
		learnRate  = 0.1
	)
	for iter := 0; iter < iterations; iter++ {
		gradA, gradB := 0.0, 0.0
		for i := 0; i < n; i++ {
			p := scoring.Sigmoid(a*logits[i] + b)
			residual := p - labels[i]
			gradA += residual * logits[i]
			gradB += residual
		}
		a -= learnRate * gradA / float64(n)
		b -= learnRate * gradB / float64(n)
	}

	if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
		return nil
	}
	return &models.PlattModel{A: a, B: b}
}

// ApplyPlatt recalibrates a probability through the fitted coefficients.
func ApplyPlatt(cal *models.PlattModel, p float64) float64 {
	if cal == nil {
		return scoring.ClampProbability(p)
	}
	return scoring.ClampProbability(scoring.Sigmoid(cal.A*scoring.Logit(p) + cal.B))
}

// CalibrationBin is one equal-width probability bucket of test predictions.
type CalibrationBin struct {
	Low           float64 `json:"low"`
	High          float64 `json:"high"`
	Count         int     `json:"count"`
	MeanPredicted float64 `json:"mean_predicted"`
	ObservedRate  float64 `json:"observed_rate"`
}

// BuildCalibrationBins buckets predictions into bins equal-width bins over
// [0, 1], recording count, mean predicted probability, and observed win rate.
func BuildCalibrationBins(predictions, labels []float64, bins int) []CalibrationBin {
	if bins <= 0 {
		bins = 10
	}
	width := 1.0 / float64(bins)
	result := make([]CalibrationBin, bins)
	for i := range result {
		result[i].Low = float64(i) * width
		result[i].High = result[i].Low + width
	}

	sums := make([]float64, bins)
	wins := make([]float64, bins)
	for i, p := range predictions {
		idx := int(p / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		result[idx].Count++
		sums[idx] += p
		wins[idx] += labels[i]
	}
	for i := range result {
		if result[i].Count > 0 {
			result[i].MeanPredicted = sums[i] / float64(result[i].Count)
			result[i].ObservedRate = wins[i] / float64(result[i].Count)
		}
	}
	return result
}
