// Package engine orchestrates feature aggregates and scoring models into
// head-to-head predictions.
package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecaller/internal/artifact"
	"github.com/yourusername/racecaller/internal/models"
	"github.com/yourusername/racecaller/internal/scoring"
)

// Confidence bounds and factor thresholds.
const (
	confidenceFloor = 0.1
	confidenceCeil  = 0.95

	recencyGapThreshold  = 0.05
	opponentGapThreshold = 30.0
	momentumGapThreshold = 5.0
	streakGapThreshold   = 1
)

// Config holds the engine tunables. The decay window bounds are deliberately
// configuration, not constants: they shape confidence, not correctness.
type Config struct {
	ModelPath    string
	TargetSample int
	FreshWindow  time.Duration // window age below this keeps recencyFactor at 1.0
	StaleWindow  time.Duration // window age at/after this pins recencyFactor to its floor
	RecencyFloor float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		TargetSample: 20,
		FreshWindow:  7 * 24 * time.Hour,
		StaleWindow:  14 * 24 * time.Hour,
		RecencyFloor: 0.35,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TargetSample <= 0 {
		c.TargetSample = def.TargetSample
	}
	if c.FreshWindow <= 0 {
		c.FreshWindow = def.FreshWindow
	}
	if c.StaleWindow <= c.FreshWindow {
		c.StaleWindow = c.FreshWindow * 2
	}
	if c.RecencyFloor <= 0 || c.RecencyFloor >= 1 {
		c.RecencyFloor = def.RecencyFloor
	}
	return c
}

// Engine turns two feature aggregates into a PredictionOutcome. The scorer is
// selected once per call: a valid trained artifact wins, otherwise the
// heuristic. Scoring is pure; the engine is safe for concurrent use.
type Engine struct {
	cfg    Config
	store  *artifact.Store
	logger *logrus.Logger
}

// New creates a prediction engine. The artifact store is injected so its
// cache is owned by the composition root, not by package state.
func New(cfg Config, store *artifact.Store, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{cfg: cfg.withDefaults(), store: store, logger: logger}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Scorer resolves the scoring strategy for this call. Exposed so the
// backtest harness and trainer score through the exact same selection.
func (e *Engine) Scorer() scoring.Scorer {
	if e.store != nil && e.cfg.ModelPath != "" {
		if a := e.store.Load(e.cfg.ModelPath); a != nil {
			return scoring.NewTrainedScorer(a)
		}
	}
	return scoring.HeuristicScorer{}
}

// ModelVersion returns the active artifact version, or the heuristic label
// when no valid artifact is loaded. Used as a cache key component.
func (e *Engine) ModelVersion() string {
	if e.store != nil && e.cfg.ModelPath != "" {
		if a := e.store.Load(e.cfg.ModelPath); a != nil {
			return a.Version
		}
	}
	return scoring.ModelHeuristic
}

// Predict scores player A against player B with windows anchored at anchor.
// Returns nil when either aggregate is missing: insufficient data is a soft
// no-result, never an error.
func (e *Engine) Predict(statsA, statsB *models.PlayerFeatureStats, targetSample int, anchor time.Time) *models.PredictionOutcome {
	if statsA == nil || statsB == nil {
		return nil
	}
	if targetSample <= 0 {
		targetSample = e.cfg.TargetSample
	}
	if anchor.IsZero() {
		anchor = time.Now().UTC()
	}

	scorer := e.Scorer()
	probA := scorer.ProbabilityA(statsA, statsB)

	outcome := &models.PredictionOutcome{
		PlayerA:      statsA.Player,
		PlayerB:      statsB.Player,
		ProbabilityA: probA,
		ProbabilityB: 1 - probA,
		Confidence:   e.confidence(statsA, statsB, targetSample, anchor),
		Factors:      explanatoryFactors(statsA, statsB),
		Model:        scorer.Name(),
		PredictedAt:  time.Now().UTC(),
	}
	if probA >= 0.5 {
		outcome.Winner = models.WinnerA
		outcome.WinnerName = statsA.Player
		outcome.Probability = probA
	} else {
		outcome.Winner = models.WinnerB
		outcome.WinnerName = statsB.Player
		outcome.Probability = 1 - probA
	}

	e.logger.WithFields(logrus.Fields{
		"player_a":    statsA.Player,
		"player_b":    statsB.Player,
		"winner":      outcome.WinnerName,
		"probability": outcome.Probability,
		"confidence":  outcome.Confidence,
		"model":       outcome.Model,
	}).Debug("Prediction computed")
	return outcome
}

// confidence blends sample size, window freshness, and form separation into
// a single [0.1, 0.95] score.
func (e *Engine) confidence(a, b *models.PlayerFeatureStats, targetSample int, anchor time.Time) float64 {
	minSample := a.Sample
	if b.Sample < minSample {
		minSample = b.Sample
	}
	sampleFactor := scoring.Clamp(float64(minSample)/float64(targetSample), 0, 1)

	oldestAge := anchor.Sub(a.OldestMatchAt)
	if age := anchor.Sub(b.OldestMatchAt); age > oldestAge {
		oldestAge = age
	}
	recencyFactor := e.recencyFactor(oldestAge)

	varianceFactor := 0.6 + 0.4*scoring.Clamp(2*absFloat(a.FormRate()-b.FormRate()), 0, 1)

	return scoring.Clamp(0.35+0.65*sampleFactor*recencyFactor*varianceFactor, confidenceFloor, confidenceCeil)
}

// recencyFactor decays linearly from 1.0 to the configured floor as the
// older window's oldest match ages from FreshWindow toward StaleWindow.
func (e *Engine) recencyFactor(oldestAge time.Duration) float64 {
	if oldestAge <= e.cfg.FreshWindow {
		return 1.0
	}
	if oldestAge >= e.cfg.StaleWindow {
		return e.cfg.RecencyFloor
	}
	span := float64(e.cfg.StaleWindow - e.cfg.FreshWindow)
	progress := float64(oldestAge-e.cfg.FreshWindow) / span
	return 1.0 - (1.0-e.cfg.RecencyFloor)*progress
}

// explanatoryFactors builds up to four human-readable reasons, evaluated in
// fixed priority order and included only when their threshold is met.
func explanatoryFactors(a, b *models.PlayerFeatureStats) []string {
	factors := make([]string, 0, 4)

	formA, formB := a.FormRate(), b.FormRate()
	if gap := formA - formB; absFloat(gap) >= recencyGapThreshold {
		leader, trailer := a, b
		lead, trail := formA, formB
		if gap < 0 {
			leader, trailer = b, a
			lead, trail = formB, formA
		}
		factors = append(factors, fmt.Sprintf("%s has stronger recent form (%.0f%% vs %.0f%% for %s)",
			leader.Player, lead*100, trail*100, trailer.Player))
	}

	if a.AvgOpponentElo != nil && b.AvgOpponentElo != nil {
		if gap := *a.AvgOpponentElo - *b.AvgOpponentElo; absFloat(gap) >= opponentGapThreshold {
			leader := a
			lead, trail := *a.AvgOpponentElo, *b.AvgOpponentElo
			if gap < 0 {
				leader = b
				lead, trail = *b.AvgOpponentElo, *a.AvgOpponentElo
			}
			factors = append(factors, fmt.Sprintf("%s has faced stronger opposition (avg rating %.0f vs %.0f)",
				leader.Player, lead, trail))
		}
	}

	if a.AvgEloDelta != nil && b.AvgEloDelta != nil {
		if gap := *a.AvgEloDelta - *b.AvgEloDelta; absFloat(gap) >= momentumGapThreshold {
			leader := a
			lead := *a.AvgEloDelta
			if gap < 0 {
				leader = b
				lead = *b.AvgEloDelta
			}
			factors = append(factors, fmt.Sprintf("%s is gaining rating faster (%+.1f per race)",
				leader.Player, lead))
		}
	}

	if gap := a.Streak.Current - b.Streak.Current; gap > streakGapThreshold || gap < -streakGapThreshold {
		leader := a
		streak := a.Streak.Current
		if gap < 0 {
			leader = b
			streak = b.Streak.Current
		}
		factors = append(factors, fmt.Sprintf("%s is on a %d-race win streak", leader.Player, streak))
	}

	return factors
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
