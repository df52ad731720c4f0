package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecaller/internal/features"
	"github.com/yourusername/racecaller/internal/metrics"
	"github.com/yourusername/racecaller/internal/models"
	"github.com/yourusername/racecaller/internal/provider"
)

// Predictor composes the history provider, feature extraction, and the
// engine into a name-based predict call. This is the surface the chat
// command consumes.
type Predictor struct {
	provider   provider.HistoryProvider
	engine     *Engine
	cache      *PredictionCache
	featureCfg features.Config
	logger     *logrus.Logger
}

// NewPredictor creates a predictor. The cache may be nil to disable caching.
func NewPredictor(historyProvider provider.HistoryProvider, eng *Engine, predCache *PredictionCache, featureCfg features.Config, logger *logrus.Logger) (*Predictor, error) {
	if historyProvider == nil {
		return nil, fmt.Errorf("history provider is required")
	}
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Predictor{
		provider:   historyProvider,
		engine:     eng,
		cache:      predCache,
		featureCfg: featureCfg,
		logger:     logger,
	}, nil
}

// Predict fetches both players' recent history and scores the matchup over
// their last matchCount matches. Returns (nil, nil) when either player lacks
// usable history; provider failures (including rate limits) are returned as
// errors for the caller to surface.
func (p *Predictor) Predict(ctx context.Context, playerA, playerB string, matchCount int) (*models.PredictionOutcome, error) {
	start := time.Now()
	defer func() {
		metrics.PredictionLatency.Observe(time.Since(start).Seconds())
	}()

	if playerA == "" || playerB == "" {
		return nil, models.ErrPlayerNameRequired
	}
	if matchCount <= 0 {
		matchCount = p.featureCfg.Limit
	}

	key := CacheKey{
		PlayerA:      playerA,
		PlayerB:      playerB,
		MatchCount:   matchCount,
		ModelVersion: p.engine.ModelVersion(),
	}
	if p.cache != nil {
		if cached := p.cache.Get(key); cached != nil {
			metrics.PredictionsTotal.WithLabelValues(cached.Model, "true").Inc()
			return cached, nil
		}
	}

	anchor := time.Now().UTC()
	statsA, err := p.playerStats(ctx, playerA, matchCount, anchor)
	if err != nil {
		return nil, err
	}
	statsB, err := p.playerStats(ctx, playerB, matchCount, anchor)
	if err != nil {
		return nil, err
	}

	outcome := p.engine.Predict(statsA, statsB, matchCount, anchor)
	if outcome == nil {
		p.logger.WithFields(logrus.Fields{
			"player_a": playerA,
			"player_b": playerB,
		}).Info("Insufficient history for prediction")
		return nil, nil
	}

	if p.cache != nil {
		p.cache.Set(key, outcome)
	}
	metrics.PredictionsTotal.WithLabelValues(outcome.Model, "false").Inc()
	return outcome, nil
}

func (p *Predictor) playerStats(ctx context.Context, player string, matchCount int, anchor time.Time) (*models.PlayerFeatureStats, error) {
	records, err := p.provider.FetchMatches(ctx, player, provider.FetchOptions{
		Limit:      matchCount,
		RankedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", player, err)
	}

	cfg := p.featureCfg
	cfg.Limit = matchCount
	cfg.AnchorAt = anchor
	return features.Compute(records, player, cfg), nil
}
