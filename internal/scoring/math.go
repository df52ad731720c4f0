package scoring

import "math"

// Probability clamps used before any log/logit computation.
const (
	ProbabilityEpsilon = 1e-6
	HeuristicFloor     = 0.05
	HeuristicCeil      = 0.95
)

// Sigmoid maps a real score to (0, 1).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Logit is the inverse of Sigmoid. The input is clamped away from {0, 1}.
func Logit(p float64) float64 {
	p = Clamp(p, ProbabilityEpsilon, 1-ProbabilityEpsilon)
	return math.Log(p / (1 - p))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampProbability keeps p inside the open interval used for log-loss and
// calibration math.
func ClampProbability(p float64) float64 {
	return Clamp(p, ProbabilityEpsilon, 1-ProbabilityEpsilon)
}
