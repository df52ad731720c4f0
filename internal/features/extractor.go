// Package features turns raw match history into time-anchored aggregates.
package features

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/racecaller/internal/models"
)

// Defaults for feature extraction.
const (
	DefaultLimit         = 20
	DefaultDecayHalfLife = 48 * time.Hour
)

// Config controls the extraction window. Zero values fall back to defaults;
// a zero AnchorAt means "now".
type Config struct {
	Limit         int
	DecayHalfLife time.Duration
	AnchorAt      time.Time
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.DecayHalfLife <= 0 {
		c.DecayHalfLife = DefaultDecayHalfLife
	}
	if c.AnchorAt.IsZero() {
		c.AnchorAt = time.Now().UTC()
	}
	return c
}

// Compute aggregates the player's most recent matches into PlayerFeatureStats.
// Matches where the player is absent or the outcome cannot be resolved are
// dropped. Returns nil when nothing usable remains; insufficient data is not
// an error.
func Compute(records []models.RawMatchRecord, player string, cfg Config) *models.PlayerFeatureStats {
	cfg = cfg.withDefaults()

	views := make([]*models.PlayerMatchView, 0, len(records))
	for i := range records {
		if view := records[i].View(player); view != nil {
			views = append(views, view)
		}
	}
	if len(views) == 0 {
		return nil
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].PlayedAt.After(views[j].PlayedAt)
	})
	if len(views) > cfg.Limit {
		views = views[:cfg.Limit]
	}

	stats := &models.PlayerFeatureStats{
		Player:        player,
		AnchorAt:      cfg.AnchorAt,
		NewestMatchAt: views[0].PlayedAt,
		OldestMatchAt: views[len(views)-1].PlayedAt,
	}

	var (
		weightedWins, weightedTotal float64
		deltaSum                    float64
		deltaCount                  int
		oppEloSum                   float64
		oppEloCount                 int
		winDurSum                   float64
		winDurCount                 int
		bestWin                     float64
		run                         int
		currentFrozen               bool
	)

	// Single backward pass, most-recent first.
	for _, view := range views {
		if view.IsWin {
			stats.Wins++
			run++
			if run > stats.Streak.Best {
				stats.Streak.Best = run
			}
		} else {
			stats.Losses++
			if !currentFrozen {
				stats.Streak.Current = run
				currentFrozen = true
			}
			run = 0
		}

		weight := decayWeight(cfg.AnchorAt, view.PlayedAt, cfg.DecayHalfLife)
		weightedTotal += weight
		if view.IsWin {
			weightedWins += weight
		}

		if view.EloDelta != nil {
			deltaSum += *view.EloDelta
			deltaCount++
		}
		if view.OpponentEloAfter != nil {
			oppEloSum += *view.OpponentEloAfter
			oppEloCount++
		}
		if view.IsWin && view.DurationMs != nil {
			dur := float64(*view.DurationMs)
			winDurSum += dur
			winDurCount++
			if winDurCount == 1 || dur < bestWin {
				bestWin = dur
			}
		}
	}
	if !currentFrozen {
		stats.Streak.Current = run
	}

	stats.Sample = stats.Wins + stats.Losses
	stats.WinRate = float64(stats.Wins) / float64(stats.Sample)
	if weightedTotal > 0 {
		recency := weightedWins / weightedTotal
		stats.RecencyWinRate = &recency
	}
	stats.TotalEloDelta = deltaSum
	if deltaCount > 0 {
		avg := deltaSum / float64(deltaCount)
		stats.AvgEloDelta = &avg
	}
	if oppEloCount > 0 {
		avg := oppEloSum / float64(oppEloCount)
		stats.AvgOpponentElo = &avg
	}
	if winDurCount > 0 {
		avg := winDurSum / float64(winDurCount)
		best := bestWin
		stats.Durations.AverageWinMs = &avg
		stats.Durations.BestWinMs = &best
	}

	return stats
}

// decayWeight halves a match's contribution every halfLife of age relative
// to the anchor. Matches newer than the anchor count with full weight.
func decayWeight(anchor, playedAt time.Time, halfLife time.Duration) float64 {
	age := anchor.Sub(playedAt)
	if age <= 0 {
		return 1.0
	}
	return math.Pow(0.5, float64(age)/float64(halfLife))
}
