// Package scoring computes win probabilities from player feature aggregates.
package scoring

import (
	"math"

	"github.com/yourusername/racecaller/internal/models"
)

// Canonical feature names of the delta vector. A model artifact may only
// declare weights for a subset of these.
const (
	FeatureWinRateDelta        = "win_rate_delta"
	FeatureRecencyWinRateDelta = "recency_win_rate_delta"
	FeatureAvgEloDelta         = "avg_elo_delta"
	FeatureAvgOpponentEloDelta = "avg_opponent_elo_delta"
	FeatureCurrentStreakDelta  = "current_streak_delta"
	FeatureBestStreakDelta     = "best_streak_delta"
	FeatureLogSampleRatio      = "log_sample_ratio"
)

// CanonicalFeatures lists every feature the delta vector carries, in order.
var CanonicalFeatures = []string{
	FeatureWinRateDelta,
	FeatureRecencyWinRateDelta,
	FeatureAvgEloDelta,
	FeatureAvgOpponentEloDelta,
	FeatureCurrentStreakDelta,
	FeatureBestStreakDelta,
	FeatureLogSampleRatio,
}

// IsCanonicalFeature reports whether name belongs to the canonical set.
func IsCanonicalFeature(name string) bool {
	for _, f := range CanonicalFeatures {
		if f == name {
			return true
		}
	}
	return false
}

// Normalization constants keeping the delta vector roughly within [-1, 1].
const (
	avgEloDeltaScale    = 20.0
	avgOpponentEloScale = 400.0
	currentStreakScale  = 8.0
	bestStreakScale     = 12.0
)

// DeltaVector builds the symmetric feature differences between two players.
// Components whose inputs are missing on either side contribute zero.
func DeltaVector(a, b *models.PlayerFeatureStats) map[string]float64 {
	vec := map[string]float64{
		FeatureWinRateDelta:        a.WinRate - b.WinRate,
		FeatureRecencyWinRateDelta: a.FormRate() - b.FormRate(),
		FeatureAvgEloDelta:         pairDelta(a.AvgEloDelta, b.AvgEloDelta) / avgEloDeltaScale,
		FeatureAvgOpponentEloDelta: pairDelta(a.AvgOpponentElo, b.AvgOpponentElo) / avgOpponentEloScale,
		FeatureCurrentStreakDelta:  float64(a.Streak.Current-b.Streak.Current) / currentStreakScale,
		FeatureBestStreakDelta:     float64(a.Streak.Best-b.Streak.Best) / bestStreakScale,
	}
	if a.Sample > 0 && b.Sample > 0 {
		vec[FeatureLogSampleRatio] = math.Log(float64(a.Sample) / float64(b.Sample))
	} else {
		vec[FeatureLogSampleRatio] = 0
	}
	return vec
}

func pairDelta(a, b *float64) float64 {
	if a == nil || b == nil {
		return 0
	}
	return *a - *b
}
