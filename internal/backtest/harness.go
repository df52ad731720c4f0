package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecaller/internal/engine"
	"github.com/yourusername/racecaller/internal/features"
	"github.com/yourusername/racecaller/internal/metrics"
	"github.com/yourusername/racecaller/internal/models"
	"github.com/yourusername/racecaller/internal/provider"
	"github.com/yourusername/racecaller/internal/scoring"
)

// MinTrainSamples is the hard floor of usable chronological training
// samples; below it a run fails instead of reporting noise.
const MinTrainSamples = 40

// Config controls a backtest run.
type Config struct {
	Players          []string
	MatchesPerPlayer int
	FeatureLimit     int
	MinHistory       int
	CalibrationBins  int
	TrainFraction    float64
	DecayHalfLife    time.Duration
}

func (c Config) withDefaults() Config {
	if c.MatchesPerPlayer <= 0 {
		c.MatchesPerPlayer = 200
	}
	if c.FeatureLimit <= 0 {
		c.FeatureLimit = features.DefaultLimit
	}
	if c.MinHistory <= 0 {
		c.MinHistory = 5
	}
	if c.CalibrationBins <= 0 {
		c.CalibrationBins = 10
	}
	if c.TrainFraction <= 0 || c.TrainFraction >= 1 {
		c.TrainFraction = 0.8
	}
	if c.DecayHalfLife <= 0 {
		c.DecayHalfLife = features.DefaultDecayHalfLife
	}
	return c
}

// SkipCounters accumulates the reasons events were excluded from a run.
type SkipCounters struct {
	MissingParticipants int `json:"missing_participants"`
	MissingWinner       int `json:"missing_winner"`
	MissingHistory      int `json:"missing_history"`
	ModelUnavailable    int `json:"model_unavailable"`
}

// Report summarizes one backtest run.
type Report struct {
	StartedAt         time.Time          `json:"started_at"`
	FinishedAt        time.Time          `json:"finished_at"`
	Players           int                `json:"players"`
	ConsideredMatches int                `json:"considered_matches"`
	Skips             SkipCounters       `json:"skips"`
	Model             string             `json:"model"`
	TrainSize         int                `json:"train_size"`
	TestSize          int                `json:"test_size"`
	Train             MetricsSummary     `json:"train"`
	Test              MetricsSummary     `json:"test"`
	TestCalibrated    *MetricsSummary    `json:"test_calibrated,omitempty"`
	Calibration       *models.PlattModel `json:"calibration,omitempty"`
	Bins              []CalibrationBin   `json:"bins,omitempty"`
}

// Harness replays historical head-to-head events through the prediction
// engine with no lookahead.
type Harness struct {
	provider provider.HistoryProvider
	engine   *engine.Engine
	logger   *logrus.Logger
}

// NewHarness creates a backtest harness.
func NewHarness(historyProvider provider.HistoryProvider, eng *engine.Engine, logger *logrus.Logger) (*Harness, error) {
	if historyProvider == nil {
		return nil, fmt.Errorf("history provider is required")
	}
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Harness{provider: historyProvider, engine: eng, logger: logger}, nil
}

// playerHistory keeps one player's fetched records sorted oldest first, with
// parallel timestamps for binary search.
type playerHistory struct {
	records []models.RawMatchRecord
	times   []time.Time
}

// countBefore returns how many of the player's matches ended strictly
// before t.
func (h *playerHistory) countBefore(t time.Time) int {
	return sort.Search(len(h.times), func(i int) bool {
		return !h.times[i].Before(t)
	})
}

// BuildSamples fetches each pool player's history, reconstructs head-to-head
// events between pool members, and reduces them to labeled samples whose
// feature windows contain only matches strictly before the event.
func (h *Harness) BuildSamples(ctx context.Context, cfg Config) ([]Sample, SkipCounters, error) {
	cfg = cfg.withDefaults()
	skips := SkipCounters{}

	pool := normalizePool(cfg.Players)
	if len(pool) < 2 {
		return nil, skips, fmt.Errorf("player pool needs at least 2 distinct names, got %d", len(pool))
	}

	// Histories are fetched sequentially on purpose: the provider rate
	// limits aggressively and per-player fetches are cheap.
	histories := make(map[string]*playerHistory, len(pool))
	for _, player := range pool {
		records, err := h.provider.FetchMatches(ctx, player, provider.FetchOptions{
			Limit:      cfg.MatchesPerPlayer,
			RankedOnly: true,
		})
		if err != nil {
			return nil, skips, fmt.Errorf("failed to fetch history for %s: %w", player, err)
		}
		histories[strings.ToLower(player)] = newPlayerHistory(records)
	}

	inPool := make(map[string]bool, len(pool))
	for _, player := range pool {
		inPool[strings.ToLower(player)] = true
	}

	seen := make(map[string]bool)
	samples := make([]Sample, 0)

	for _, player := range pool {
		history := histories[strings.ToLower(player)]
		for i := range history.records {
			record := &history.records[i]
			key := canonicalMatchKey(record)
			if seen[key.String()] {
				continue
			}
			seen[key.String()] = true

			nameA := record.Participants[0].Name
			nameB := record.Participants[1].Name
			if !inPool[strings.ToLower(nameA)] || !inPool[strings.ToLower(nameB)] {
				skips.MissingParticipants++
				continue
			}

			winner, ok := record.ResolveWinner()
			if !ok {
				skips.MissingWinner++
				continue
			}

			histA := histories[strings.ToLower(nameA)]
			histB := histories[strings.ToLower(nameB)]
			if histA.countBefore(record.PlayedAt) < cfg.MinHistory ||
				histB.countBefore(record.PlayedAt) < cfg.MinHistory {
				skips.MissingHistory++
				continue
			}

			featureCfg := features.Config{
				Limit:         cfg.FeatureLimit,
				DecayHalfLife: cfg.DecayHalfLife,
				AnchorAt:      record.PlayedAt,
			}
			statsA := features.Compute(histA.before(record.PlayedAt), nameA, featureCfg)
			statsB := features.Compute(histB.before(record.PlayedAt), nameB, featureCfg)
			if statsA == nil || statsB == nil {
				skips.MissingHistory++
				continue
			}

			label := 0.0
			if winner == 0 {
				label = 1.0
			}
			samples = append(samples, Sample{
				MatchKey: key,
				PlayedAt: record.PlayedAt,
				PlayerA:  nameA,
				PlayerB:  nameB,
				Label:    label,
				StatsA:   statsA,
				StatsB:   statsB,
			})
		}
	}

	sortChronological(samples)
	h.logger.WithFields(logrus.Fields{
		"players":              len(pool),
		"samples":              len(samples),
		"skipped_participants": skips.MissingParticipants,
		"skipped_winner":       skips.MissingWinner,
		"skipped_history":      skips.MissingHistory,
	}).Info("Built backtest samples")
	return samples, skips, nil
}

// Run scores every sample, splits train/test chronologically, fits Platt
// scaling on train, and reports raw plus calibrated test metrics with a
// reliability table.
func (h *Harness) Run(ctx context.Context, cfg Config) (*Report, []Sample, error) {
	cfg = cfg.withDefaults()
	start := time.Now()

	samples, skips, err := h.BuildSamples(ctx, cfg)
	if err != nil {
		metrics.BacktestRunsTotal.WithLabelValues("failure").Inc()
		return nil, nil, err
	}

	scorer := h.engine.Scorer()
	samples = scoreSamples(scorer, samples, &skips)

	train, test := Split(samples, cfg.TrainFraction)
	if len(train) < MinTrainSamples {
		metrics.BacktestRunsTotal.WithLabelValues("failure").Inc()
		return nil, nil, fmt.Errorf("need at least %d training samples, got %d", MinTrainSamples, len(train))
	}

	trainPreds, trainLabels := predictionsAndLabels(train)
	testPreds, testLabels := predictionsAndLabels(test)

	report := &Report{
		StartedAt:         start,
		Players:           len(normalizePool(cfg.Players)),
		ConsideredMatches: len(samples),
		Skips:             skips,
		Model:             scorer.Name(),
		TrainSize:         len(train),
		TestSize:          len(test),
		Train:             Evaluate(trainPreds, trainLabels),
		Test:              Evaluate(testPreds, testLabels),
	}

	if cal := FitPlatt(trainPreds, trainLabels); cal != nil {
		report.Calibration = cal
		calibrated := make([]float64, len(testPreds))
		for i, p := range testPreds {
			calibrated[i] = ApplyPlatt(cal, p)
		}
		summary := Evaluate(calibrated, testLabels)
		report.TestCalibrated = &summary
		report.Bins = BuildCalibrationBins(calibrated, testLabels, cfg.CalibrationBins)
	} else {
		report.Bins = BuildCalibrationBins(testPreds, testLabels, cfg.CalibrationBins)
	}

	report.FinishedAt = time.Now()
	metrics.BacktestRunsTotal.WithLabelValues("success").Inc()
	metrics.BacktestDuration.Observe(report.FinishedAt.Sub(start).Seconds())
	return report, samples, nil
}

// scoreSamples assigns each sample the active scorer's probability for
// player A. Samples the scorer cannot price (non-finite output) are dropped
// and counted as ModelUnavailable.
func scoreSamples(scorer scoring.Scorer, samples []Sample, skips *SkipCounters) []Sample {
	scored := samples[:0]
	for _, sample := range samples {
		p := scorer.ProbabilityA(sample.StatsA, sample.StatsB)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			skips.ModelUnavailable++
			continue
		}
		sample.Prediction = p
		scored = append(scored, sample)
	}
	return scored
}

func newPlayerHistory(records []models.RawMatchRecord) *playerHistory {
	sorted := make([]models.RawMatchRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PlayedAt.Before(sorted[j].PlayedAt)
	})
	times := make([]time.Time, len(sorted))
	for i := range sorted {
		times[i] = sorted[i].PlayedAt
	}
	return &playerHistory{records: sorted, times: times}
}

// before returns the records strictly before t. The slice shares backing
// storage with the history; callers must not mutate it.
func (h *playerHistory) before(t time.Time) []models.RawMatchRecord {
	return h.records[:h.countBefore(t)]
}

func normalizePool(players []string) []string {
	seen := make(map[string]bool, len(players))
	pool := make([]string, 0, len(players))
	for _, p := range players {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		pool = append(pool, trimmed)
	}
	return pool
}

func predictionsAndLabels(samples []Sample) (predictions, labels []float64) {
	predictions = make([]float64, len(samples))
	labels = make([]float64, len(samples))
	for i := range samples {
		predictions[i] = samples[i].Prediction
		labels[i] = samples[i].Label
	}
	return predictions, labels
}
