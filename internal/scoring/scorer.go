package scoring

import "github.com/yourusername/racecaller/internal/models"

// Scorer names, also used as the prediction's model label.
const (
	ModelHeuristic = "heuristic"
	ModelTrained   = "trained"
)

// Scorer computes the probability that player A beats player B from the two
// feature aggregates. Implementations are pure and safe for concurrent use.
type Scorer interface {
	Name() string
	ProbabilityA(a, b *models.PlayerFeatureStats) float64
}

// HeuristicScorer is the closed-form fallback model used whenever no valid
// trained artifact is available.
type HeuristicScorer struct{}

// Name returns the scorer name.
func (HeuristicScorer) Name() string { return ModelHeuristic }

// ProbabilityA combines per-player form scores through a scaled sigmoid and
// clamps the result away from certainty.
func (HeuristicScorer) ProbabilityA(a, b *models.PlayerFeatureStats) float64 {
	diff := FormScore(a) - FormScore(b)
	return Clamp(Sigmoid(1.2*diff), HeuristicFloor, HeuristicCeil)
}

// FormScore condenses a player's aggregate into a single form number.
// Components with missing inputs are skipped rather than guessed.
func FormScore(s *models.PlayerFeatureStats) float64 {
	score := 1.1 * (s.FormRate() - 0.5)
	if s.AvgOpponentElo != nil {
		score += 0.5 * Clamp((*s.AvgOpponentElo-1500)/400, -1, 1)
	}
	if s.AvgEloDelta != nil {
		score += 0.5 * Clamp(*s.AvgEloDelta/15, -1, 1)
	}
	score += 0.3 * Clamp(float64(s.Streak.Current)/6, 0, 1)
	return score
}

// TrainedScorer scores through a linear model loaded from a validated
// artifact, with optional Platt recalibration.
type TrainedScorer struct {
	artifact *models.ModelArtifact
}

// NewTrainedScorer wraps a validated artifact. The artifact must have passed
// store validation; weights for undeclared features are ignored.
func NewTrainedScorer(artifact *models.ModelArtifact) *TrainedScorer {
	return &TrainedScorer{artifact: artifact}
}

// Name returns the scorer name.
func (t *TrainedScorer) Name() string { return ModelTrained }

// Version returns the artifact version backing this scorer.
func (t *TrainedScorer) Version() string { return t.artifact.Version }

// ProbabilityA evaluates the linear model over the delta vector.
func (t *TrainedScorer) ProbabilityA(a, b *models.PlayerFeatureStats) float64 {
	vec := DeltaVector(a, b)
	p := t.Score(vec)
	return p
}

// Score evaluates the model on a prebuilt delta vector. Used by the trainer
// and harness so the exact same path scores live and historical samples.
func (t *TrainedScorer) Score(vec map[string]float64) float64 {
	z := t.artifact.Intercept
	for _, name := range t.artifact.Features {
		z += t.artifact.Weights[name] * vec[name]
	}
	p := Sigmoid(z)
	if cal := t.artifact.Calibration; cal != nil {
		p = Sigmoid(cal.A*Logit(p) + cal.B)
	}
	return ClampProbability(p)
}
