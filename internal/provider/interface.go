// Package provider fetches ranked match history from the ladder API and
// normalizes it into canonical match records.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/racecaller/internal/models"
)

// FetchOptions controls a history fetch.
type FetchOptions struct {
	Limit      int
	RankedOnly bool
	PageSize   int
}

// HistoryProvider fetches a player's match history ordered most recent first.
type HistoryProvider interface {
	FetchMatches(ctx context.Context, player string, opts FetchOptions) ([]models.RawMatchRecord, error)
}

// Common provider errors.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrServerError    = errors.New("provider server error")
	ErrInvalidPayload = errors.New("invalid provider payload")
)

// RateLimitError signals that the provider refused the request and when it
// may be retried. Callers are expected to handle it distinctly from other
// failures rather than hammering the API.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by provider, retry after %s", e.RetryAfter)
}

// IsRateLimited reports whether err carries a rate-limit signal and returns
// the suggested retry delay.
func IsRateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
