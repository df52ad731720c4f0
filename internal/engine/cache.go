package engine

import (
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/racecaller/internal/metrics"
	"github.com/yourusername/racecaller/internal/models"
)

// CacheKey identifies a cached prediction. Keys carry the model version so a
// newly trained artifact never serves stale outcomes.
type CacheKey struct {
	PlayerA      string
	PlayerB      string
	MatchCount   int
	ModelVersion string
}

// String returns string representation of cache key.
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%d:%s", k.PlayerA, k.PlayerB, k.MatchCount, k.ModelVersion)
}

// PredictionCache provides in-memory TTL caching for prediction outcomes.
type PredictionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewPredictionCache creates a new prediction cache.
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached prediction, or nil on a miss.
func (pc *PredictionCache) Get(key CacheKey) *models.PredictionOutcome {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if result, found := pc.cache.Get(key.String()); found {
		pc.hitCount++
		pc.updateMetrics()
		if outcome, ok := result.(*models.PredictionOutcome); ok {
			return outcome
		}
	}

	pc.missCount++
	pc.updateMetrics()
	return nil
}

// Set stores a prediction outcome.
func (pc *PredictionCache) Set(key CacheKey, outcome *models.PredictionOutcome) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.cache.ItemCount() >= pc.maxSize {
		pc.cache.DeleteExpired()
	}
	pc.cache.Set(key.String(), outcome, pc.ttl)
}

// Clear flushes the entire cache. Called after a model artifact reload so
// outcomes from the previous model cannot be served.
func (pc *PredictionCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.cache.Flush()
	pc.hitCount = 0
	pc.missCount = 0
}

// Stats returns cache statistics.
func (pc *PredictionCache) Stats() (hits, misses uint64, ratio float64) {
	hits = pc.hitCount
	misses = pc.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache.
func (pc *PredictionCache) ItemCount() int {
	return pc.cache.ItemCount()
}

func (pc *PredictionCache) updateMetrics() {
	_, _, ratio := pc.Stats()
	metrics.PredictionCacheHitRatio.Set(ratio)
}
