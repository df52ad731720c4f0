package models

import "time"

// StreakStats tracks win streaks inside the feature window.
// Current is the contiguous run of wins ending at the most recent match;
// Best is the longest contiguous run anywhere in the window.
type StreakStats struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

// WinDurations aggregates race durations over wins that carried a finite
// duration. Values are milliseconds.
type WinDurations struct {
	BestWinMs    *float64 `json:"best_win_ms,omitempty"`
	AverageWinMs *float64 `json:"average_win_ms,omitempty"`
}

// PlayerFeatureStats is the aggregate over a player's most recent matches,
// anchored at a reference time. It is recomputed per request and never
// persisted.
type PlayerFeatureStats struct {
	Player         string       `json:"player"`
	Sample         int          `json:"sample"`
	Wins           int          `json:"wins"`
	Losses         int          `json:"losses"`
	WinRate        float64      `json:"win_rate"`
	RecencyWinRate *float64     `json:"recency_win_rate,omitempty"`
	TotalEloDelta  float64      `json:"total_elo_delta"`
	AvgEloDelta    *float64     `json:"avg_elo_delta,omitempty"`
	AvgOpponentElo *float64     `json:"avg_opponent_elo,omitempty"`
	Durations      WinDurations `json:"durations"`
	Streak         StreakStats  `json:"streak"`
	NewestMatchAt  time.Time    `json:"newest_match_at"`
	OldestMatchAt  time.Time    `json:"oldest_match_at"`
	AnchorAt       time.Time    `json:"anchor_at"`
}

// FormRate returns the rate used for form scoring, preferring the
// recency-weighted win rate when present.
func (s *PlayerFeatureStats) FormRate() float64 {
	if s.RecencyWinRate != nil {
		return *s.RecencyWinRate
	}
	return s.WinRate
}
