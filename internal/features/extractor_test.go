package features

import (
	"math"
	"testing"
	"time"

	"github.com/yourusername/racecaller/internal/models"
)

var anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fp(v float64) *float64 { return &v }

// match builds a two-player record from the player's perspective: a positive
// delta means the player won.
func match(player string, age time.Duration, win bool, delta, oppElo float64) models.RawMatchRecord {
	playerDelta, oppDelta := delta, -delta
	winner := player
	if !win {
		winner = "rival"
	}
	return models.RawMatchRecord{
		PlayedAt: anchor.Add(-age),
		Participants: [2]models.MatchParticipant{
			{Name: player, RatingDelta: &playerDelta},
			{Name: "rival", RatingAfter: fp(oppElo), RatingDelta: &oppDelta},
		},
		WinnerName: winner,
	}
}

func TestComputeEmptyHistory(t *testing.T) {
	if stats := Compute(nil, "ayla", Config{AnchorAt: anchor}); stats != nil {
		t.Fatalf("expected nil stats for empty history")
	}
}

func TestComputeDropsUnresolvedMatches(t *testing.T) {
	records := []models.RawMatchRecord{
		{
			PlayedAt: anchor.Add(-time.Hour),
			Participants: [2]models.MatchParticipant{
				{Name: "ayla"}, {Name: "rival"},
			},
		},
	}
	if stats := Compute(records, "ayla", Config{AnchorAt: anchor}); stats != nil {
		t.Fatalf("expected nil stats when no match resolves a winner")
	}
}

func TestComputeCounts(t *testing.T) {
	records := []models.RawMatchRecord{
		match("ayla", 1*time.Hour, true, 12, 1520),
		match("ayla", 2*time.Hour, false, -9, 1480),
		match("ayla", 3*time.Hour, true, 15, 1600),
		match("ayla", 4*time.Hour, true, 10, 1540),
	}

	stats := Compute(records, "ayla", Config{AnchorAt: anchor})
	if stats == nil {
		t.Fatalf("expected stats")
	}
	if stats.Sample != 4 || stats.Wins != 3 || stats.Losses != 1 {
		t.Fatalf("unexpected counts: sample=%d wins=%d losses=%d", stats.Sample, stats.Wins, stats.Losses)
	}
	if stats.Wins+stats.Losses != stats.Sample {
		t.Fatalf("wins+losses must equal sample")
	}
	if stats.WinRate != 0.75 {
		t.Fatalf("expected win rate 0.75, got %f", stats.WinRate)
	}
	if stats.TotalEloDelta != 28 {
		t.Fatalf("expected total delta 28, got %f", stats.TotalEloDelta)
	}
	if stats.AvgEloDelta == nil || *stats.AvgEloDelta != 7 {
		t.Fatalf("expected avg delta 7")
	}
	if stats.AvgOpponentElo == nil || *stats.AvgOpponentElo != 1535 {
		t.Fatalf("expected avg opponent elo 1535")
	}
	if !stats.NewestMatchAt.Equal(anchor.Add(-1 * time.Hour)) {
		t.Fatalf("unexpected newest match time")
	}
	if !stats.OldestMatchAt.Equal(anchor.Add(-4 * time.Hour)) {
		t.Fatalf("unexpected oldest match time")
	}
}

func TestComputeLimitKeepsMostRecent(t *testing.T) {
	records := []models.RawMatchRecord{
		match("ayla", 1*time.Hour, true, 10, 1500),
		match("ayla", 2*time.Hour, true, 10, 1500),
		match("ayla", 3*time.Hour, false, -10, 1500),
		match("ayla", 4*time.Hour, false, -10, 1500),
	}

	stats := Compute(records, "ayla", Config{Limit: 2, AnchorAt: anchor})
	if stats.Sample != 2 {
		t.Fatalf("expected truncation to 2 matches, got %d", stats.Sample)
	}
	if stats.Losses != 0 {
		t.Fatalf("truncation must keep the most recent matches")
	}
}

func TestComputeRecencyWeighting(t *testing.T) {
	halfLife := time.Hour
	records := []models.RawMatchRecord{
		match("ayla", 0, true, 10, 1500),
		match("ayla", halfLife, false, -10, 1500),
		match("ayla", 2*halfLife, true, 10, 1500),
	}

	stats := Compute(records, "ayla", Config{DecayHalfLife: halfLife, AnchorAt: anchor})
	if stats.RecencyWinRate == nil {
		t.Fatalf("expected recency win rate")
	}

	// Weights 1, 0.5, 0.25: weighted rate = 1.25 / 1.75.
	want := 1.25 / 1.75
	if math.Abs(*stats.RecencyWinRate-want) > 1e-9 {
		t.Fatalf("expected recency rate %f, got %f", want, *stats.RecencyWinRate)
	}
	if *stats.RecencyWinRate <= stats.WinRate {
		t.Fatalf("a recent win should lift the weighted rate above the plain rate")
	}
}

func TestComputeStreaks(t *testing.T) {
	// Newest first: W W L W W W L.
	outcomes := []bool{true, true, false, true, true, true, false}
	records := make([]models.RawMatchRecord, 0, len(outcomes))
	for i, win := range outcomes {
		delta := 10.0
		if !win {
			delta = -10.0
		}
		records = append(records, match("ayla", time.Duration(i+1)*time.Hour, win, delta, 1500))
	}

	stats := Compute(records, "ayla", Config{AnchorAt: anchor})
	if stats.Streak.Current != 2 {
		t.Fatalf("expected current streak 2, got %d", stats.Streak.Current)
	}
	if stats.Streak.Best != 3 {
		t.Fatalf("expected best streak 3, got %d", stats.Streak.Best)
	}
	if stats.Streak.Current > stats.Streak.Best {
		t.Fatalf("current streak can never exceed best")
	}
}

func TestComputeStreakAllWins(t *testing.T) {
	records := []models.RawMatchRecord{
		match("ayla", 1*time.Hour, true, 10, 1500),
		match("ayla", 2*time.Hour, true, 10, 1500),
		match("ayla", 3*time.Hour, true, 10, 1500),
	}

	stats := Compute(records, "ayla", Config{AnchorAt: anchor})
	if stats.Streak.Current != 3 || stats.Streak.Best != 3 {
		t.Fatalf("all-win window should freeze current at the full run, got %+v", stats.Streak)
	}
}

func TestComputeWinDurations(t *testing.T) {
	fast, slow := int64(60000), int64(90000)
	win := match("ayla", 1*time.Hour, true, 10, 1500)
	win.DurationMs = &fast
	win2 := match("ayla", 2*time.Hour, true, 10, 1500)
	win2.DurationMs = &slow
	loss := match("ayla", 3*time.Hour, false, -10, 1500)
	loss.DurationMs = &fast

	stats := Compute([]models.RawMatchRecord{win, win2, loss}, "ayla", Config{AnchorAt: anchor})
	if stats.Durations.BestWinMs == nil || *stats.Durations.BestWinMs != 60000 {
		t.Fatalf("expected best win 60000ms")
	}
	if stats.Durations.AverageWinMs == nil || *stats.Durations.AverageWinMs != 75000 {
		t.Fatalf("expected average win 75000ms")
	}
}

func TestDecayWeightBounds(t *testing.T) {
	if w := decayWeight(anchor, anchor.Add(time.Hour), time.Hour); w != 1.0 {
		t.Fatalf("future matches must carry full weight, got %f", w)
	}
	if w := decayWeight(anchor, anchor.Add(-time.Hour), time.Hour); math.Abs(w-0.5) > 1e-12 {
		t.Fatalf("one half-life of age must halve the weight, got %f", w)
	}
}
