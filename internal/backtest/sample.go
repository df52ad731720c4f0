package backtest

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/racecaller/internal/models"
)

// Sample is one historical head-to-head event reduced to its label and the
// feature aggregates both sides had strictly before the event. Samples exist
// only within one backtest or training run.
type Sample struct {
	MatchKey   uuid.UUID                  `json:"match_key"`
	PlayedAt   time.Time                  `json:"played_at"`
	PlayerA    string                     `json:"player_a"`
	PlayerB    string                     `json:"player_b"`
	Label      float64                    `json:"label"` // 1 when player A won
	Prediction float64                    `json:"prediction"`
	StatsA     *models.PlayerFeatureStats `json:"-"`
	StatsB     *models.PlayerFeatureStats `json:"-"`
}

// canonicalMatchKey derives a stable identity for an event seen from either
// player's history: the provider's source id when present, otherwise a seed
// of the timestamp and the sorted participant names.
func canonicalMatchKey(record *models.RawMatchRecord) uuid.UUID {
	if record.SourceID != "" {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(record.SourceID))
	}
	names := []string{record.Participants[0].Name, record.Participants[1].Name}
	sort.Strings(names)
	seed := strconv.FormatInt(record.PlayedAt.UnixMilli(), 10) + ":" + names[0] + ":" + names[1]
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))
}

// sortChronological orders samples oldest first, breaking timestamp ties by
// match key so runs are deterministic.
func sortChronological(samples []Sample) {
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].PlayedAt.Equal(samples[j].PlayedAt) {
			return samples[i].MatchKey.String() < samples[j].MatchKey.String()
		}
		return samples[i].PlayedAt.Before(samples[j].PlayedAt)
	})
}

// Split divides chronologically sorted samples into train and test by
// fraction. The split is positional: training always precedes testing in
// time, so calibration never sees the future.
func Split(samples []Sample, trainFraction float64) (train, test []Sample) {
	if trainFraction <= 0 || trainFraction >= 1 {
		trainFraction = 0.8
	}
	cut := int(float64(len(samples)) * trainFraction)
	if cut < 0 {
		cut = 0
	}
	if cut > len(samples) {
		cut = len(samples)
	}
	return samples[:cut], samples[cut:]
}

func (s *Sample) String() string {
	return fmt.Sprintf("%s vs %s @ %s", s.PlayerA, s.PlayerB, s.PlayedAt.Format(time.RFC3339))
}
