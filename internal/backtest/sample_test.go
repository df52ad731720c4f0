package backtest

import (
	"testing"
	"time"

	"github.com/yourusername/racecaller/internal/models"
)

func TestCanonicalMatchKeyFromSourceID(t *testing.T) {
	a := &models.RawMatchRecord{SourceID: "evt-42"}
	b := &models.RawMatchRecord{SourceID: "evt-42", PlayedAt: time.Now()}
	if canonicalMatchKey(a) != canonicalMatchKey(b) {
		t.Fatalf("same source id must derive the same key")
	}
	c := &models.RawMatchRecord{SourceID: "evt-43"}
	if canonicalMatchKey(a) == canonicalMatchKey(c) {
		t.Fatalf("distinct source ids must not collide")
	}
}

func TestCanonicalMatchKeyIgnoresParticipantOrder(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &models.RawMatchRecord{
		PlayedAt:     at,
		Participants: [2]models.MatchParticipant{{Name: "ann"}, {Name: "bob"}},
	}
	b := &models.RawMatchRecord{
		PlayedAt:     at,
		Participants: [2]models.MatchParticipant{{Name: "bob"}, {Name: "ann"}},
	}
	if canonicalMatchKey(a) != canonicalMatchKey(b) {
		t.Fatalf("the same event seen from either side must share a key")
	}
}

func TestSortChronologicalIsDeterministic(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	samples := []Sample{
		{PlayedAt: at.Add(time.Hour), PlayerA: "c"},
		{PlayedAt: at, PlayerA: "b", MatchKey: canonicalMatchKey(&models.RawMatchRecord{SourceID: "z"})},
		{PlayedAt: at, PlayerA: "a", MatchKey: canonicalMatchKey(&models.RawMatchRecord{SourceID: "y"})},
	}
	sortChronological(samples)

	if samples[2].PlayerA != "c" {
		t.Fatalf("newest sample must sort last")
	}
	first, second := samples[0], samples[1]

	samples[0], samples[1] = second, first
	sortChronological(samples)
	if samples[0] != first || samples[1] != second {
		t.Fatalf("equal timestamps must keep a stable key-based order")
	}
}

func TestSplitChronology(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]Sample, 10)
	for i := range samples {
		samples[i] = Sample{PlayedAt: at.Add(time.Duration(i) * time.Hour)}
	}

	train, test := Split(samples, 0.8)
	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("expected 8/2 split, got %d/%d", len(train), len(test))
	}
	if !train[len(train)-1].PlayedAt.Before(test[0].PlayedAt) {
		t.Fatalf("every training sample must precede the test split")
	}

	train, test = Split(samples, 1.5)
	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("out-of-range fractions must fall back to 0.8")
	}
}
