package trainer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racecaller/internal/artifact"
	"github.com/yourusername/racecaller/internal/backtest"
	"github.com/yourusername/racecaller/internal/engine"
	"github.com/yourusername/racecaller/internal/models"
	"github.com/yourusername/racecaller/internal/provider"
	"github.com/yourusername/racecaller/internal/scoring"
)

var baseTime = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

type stubProvider struct {
	histories map[string][]models.RawMatchRecord
}

func (s *stubProvider) FetchMatches(_ context.Context, player string, _ provider.FetchOptions) ([]models.RawMatchRecord, error) {
	return s.histories[player], nil
}

func headToHead(id int, winner string) models.RawMatchRecord {
	return models.RawMatchRecord{
		SourceID: fmt.Sprintf("evt-%d", id),
		PlayedAt: baseTime.Add(time.Duration(id) * time.Hour),
		Participants: [2]models.MatchParticipant{
			{Name: "ann"}, {Name: "bob"},
		},
		WinnerName: winner,
	}
}

// alternation is a rivalry where whoever lost the previous race wins the
// next. Form-based heuristics are systematically wrong on it, so a trained
// model that picks up the pattern clears the save gate.
func alternation(n int) map[string][]models.RawMatchRecord {
	records := make([]models.RawMatchRecord, 0, n)
	for i := 0; i < n; i++ {
		winner := "ann"
		if i%2 == 1 {
			winner = "bob"
		}
		records = append(records, headToHead(i, winner))
	}
	return map[string][]models.RawMatchRecord{"ann": records, "bob": records}
}

// regimeFlip has ann winning every race during the training period, then an
// alternating test period. Whatever was fitted on the streak is confidently
// wrong afterward, so the artifact must be rejected.
func regimeFlip(n, flipAt int) map[string][]models.RawMatchRecord {
	records := make([]models.RawMatchRecord, 0, n)
	for i := 0; i < n; i++ {
		winner := "ann"
		if i >= flipAt && (i-flipAt)%2 == 0 {
			winner = "bob"
		}
		records = append(records, headToHead(i, winner))
	}
	return map[string][]models.RawMatchRecord{"ann": records, "bob": records}
}

func newTestTrainer(t *testing.T, histories map[string][]models.RawMatchRecord) (*Trainer, *artifact.Store) {
	t.Helper()
	harness, err := backtest.NewHarness(&stubProvider{histories: histories}, engine.New(engine.DefaultConfig(), nil, nil), nil)
	require.NoError(t, err)
	store := artifact.NewStore(nil)
	tr, err := New(harness, store, nil)
	require.NoError(t, err)
	return tr, store
}

func backtestConfig() backtest.Config {
	return backtest.Config{
		Players:       []string{"ann", "bob"},
		MinHistory:    1,
		TrainFraction: 0.8,
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, artifact.NewStore(nil), nil)
	assert.Error(t, err)

	harness, err := backtest.NewHarness(&stubProvider{}, engine.New(engine.DefaultConfig(), nil, nil), nil)
	require.NoError(t, err)
	_, err = New(harness, nil, nil)
	assert.Error(t, err)
}

func TestFitLearnsSeparableData(t *testing.T) {
	features := len(scoring.CanonicalFeatures)
	vectors := make([][]float64, 0, 80)
	labels := make([]float64, 0, 80)
	for i := 0; i < 40; i++ {
		pos := make([]float64, features)
		pos[0] = 1.0
		vectors = append(vectors, pos)
		labels = append(labels, 1)

		neg := make([]float64, features)
		neg[0] = -1.0
		vectors = append(vectors, neg)
		labels = append(labels, 0)
	}

	intercept, weights := fit(vectors, labels, Config{}.withDefaults())
	if weights[0] <= 0 {
		t.Fatalf("expected a positive weight on the separating feature, got %f", weights[0])
	}

	preds := score(vectors, intercept, weights)
	summary := backtest.Evaluate(preds, labels)
	if summary.Accuracy != 1.0 {
		t.Fatalf("separable data must be classified perfectly, got accuracy %f", summary.Accuracy)
	}
	if summary.Brier >= 0.25 {
		t.Fatalf("expected confident predictions, got brier %f", summary.Brier)
	}
}

func TestFitEmptyInput(t *testing.T) {
	intercept, weights := fit(nil, nil, Config{}.withDefaults())
	assert.Zero(t, intercept)
	for _, w := range weights {
		assert.Zero(t, w)
	}
}

func TestTrainRequiresMinimumSamples(t *testing.T) {
	tr, _ := newTestTrainer(t, alternation(10))

	_, err := tr.Train(context.Background(), backtestConfig(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "training samples")
}

func TestTrainSavesWhenBeatingBaseline(t *testing.T) {
	tr, store := newTestTrainer(t, alternation(120))
	path := filepath.Join(t.TempDir(), "model.json")

	result, err := tr.Train(context.Background(), backtestConfig(), Config{ModelPath: path})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Saved)
	assert.Equal(t, "beats heuristic baseline", result.Reason)
	assert.Less(t, result.Test.Brier, result.HeuristicTest.Brier)
	assert.Less(t, result.Test.LogLoss, result.HeuristicTest.LogLoss)

	loaded := store.Load(path)
	require.NotNil(t, loaded, "saved artifact must load back through the store")
	assert.Equal(t, result.Artifact.Version, loaded.Version)
	assert.Equal(t, scoring.CanonicalFeatures, loaded.Features)
	require.NotNil(t, loaded.Training)
	assert.Equal(t, result.Train.Samples, loaded.Training.TrainSize)
	assert.Equal(t, result.Test.Samples, loaded.Training.TestSize)
}

func TestTrainRejectsWhenBaselineWins(t *testing.T) {
	// 80 events, 79 samples, positional cut at 63: the entire training split
	// is ann's win streak, the test split is the alternating regime.
	tr, _ := newTestTrainer(t, regimeFlip(80, 64))
	path := filepath.Join(t.TempDir(), "model.json")

	result, err := tr.Train(context.Background(), backtestConfig(), Config{ModelPath: path})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.False(t, result.Saved)
	assert.Equal(t, "does not beat heuristic baseline", result.Reason)
	assert.NotNil(t, result.Artifact, "the rejected artifact is still reported")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "rejected artifacts must not be written")
}

func TestTrainForceSaves(t *testing.T) {
	tr, store := newTestTrainer(t, regimeFlip(80, 64))
	path := filepath.Join(t.TempDir(), "model.json")

	result, err := tr.Train(context.Background(), backtestConfig(), Config{ModelPath: path, Force: true})
	require.NoError(t, err)

	assert.True(t, result.Saved)
	assert.Equal(t, "forced save despite baseline", result.Reason)
	assert.NotNil(t, store.Load(path))
}
