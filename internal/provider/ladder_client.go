package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecaller/internal/metrics"
	"github.com/yourusername/racecaller/internal/models"
)

const defaultPageSize = 50

// LadderClient implements HistoryProvider against the ranked ladder API.
type LadderClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiToken   string
	pageSize   int
	logger     *logrus.Logger
}

// NewLadderClient creates a ladder API client. pageSize is the page size used
// when a fetch does not specify one.
func NewLadderClient(httpClient *RateLimitedHTTPClient, baseURL, apiToken string, pageSize int, logger *logrus.Logger) *LadderClient {
	if logger == nil {
		logger = logrus.New()
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &LadderClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiToken:   apiToken,
		pageSize:   pageSize,
		logger:     logger,
	}
}

// ladderMatch is the provider wire format. The API has grown several
// near-synonym fields over time; picking among them happens here so the core
// only ever sees canonical records.
type ladderMatch struct {
	ID         string          `json:"id"`
	EndedAt    *time.Time      `json:"ended_at"`
	RecordedAt *time.Time      `json:"recorded_at"`
	Ranked     bool            `json:"ranked"`
	Winner     string          `json:"winner"`
	DurationMs *int64          `json:"duration_ms"`
	Entrants   []ladderEntrant `json:"entrants"`
}

type ladderUser struct {
	Name string `json:"name"`
}

type ladderEntrant struct {
	Name         string      `json:"name"`
	User         *ladderUser `json:"user"`
	Place        *int        `json:"place"`
	RatingAfter  *float64    `json:"rating_after"`
	Rating       *float64    `json:"rating"`
	RatingChange *float64    `json:"rating_change"`
	RatingDelta  *float64    `json:"rating_delta"`
	FinishTimeMs *int64      `json:"finish_time_ms"`
}

type ladderPage struct {
	Matches  []ladderMatch `json:"matches"`
	NumPages int           `json:"num_pages"`
}

// FetchMatches retrieves up to opts.Limit matches for a player, paging
// through the API most recent first.
func (c *LadderClient) FetchMatches(ctx context.Context, player string, opts FetchOptions) ([]models.RawMatchRecord, error) {
	if player == "" {
		return nil, models.ErrPlayerNameRequired
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = c.pageSize
	}

	records := make([]models.RawMatchRecord, 0, opts.Limit)
	for page := 1; ; page++ {
		body, err := c.fetchPage(ctx, player, page, pageSize, opts.RankedOnly)
		if err != nil {
			return nil, err
		}
		for i := range body.Matches {
			record, ok := normalizeMatch(&body.Matches[i])
			if !ok {
				continue
			}
			records = append(records, record)
			if opts.Limit > 0 && len(records) >= opts.Limit {
				return records, nil
			}
		}
		if page >= body.NumPages || len(body.Matches) == 0 {
			break
		}
	}

	c.logger.WithFields(logrus.Fields{
		"player":  player,
		"matches": len(records),
	}).Debug("Fetched match history")
	return records, nil
}

func (c *LadderClient) fetchPage(ctx context.Context, player string, page, pageSize int, rankedOnly bool) (*ladderPage, error) {
	endpoint := fmt.Sprintf("%s/api/players/%s/matches?page=%d&per_page=%d&ranked=%t",
		c.baseURL, url.PathEscape(player), page, pageSize, rankedOnly)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch match history: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		drainBody(resp.Body)
		metrics.ProviderRequestsTotal.WithLabelValues("rate_limited").Inc()
		metrics.ProviderRateLimitedTotal.Inc()
		return nil, &RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode == http.StatusNotFound:
		drainBody(resp.Body)
		metrics.ProviderRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, player)
	case resp.StatusCode != http.StatusOK:
		drainBody(resp.Body)
		metrics.ProviderRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: unexpected status %d", ErrServerError, resp.StatusCode)
	}

	body := &ladderPage{}
	if err := json.NewDecoder(resp.Body).Decode(body); err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	metrics.ProviderRequestsTotal.WithLabelValues("ok").Inc()
	return body, nil
}

// normalizeMatch maps a wire match onto the canonical record, resolving
// near-synonym fields. Matches without exactly two entrants or a usable
// timestamp are dropped.
func normalizeMatch(m *ladderMatch) (models.RawMatchRecord, bool) {
	if len(m.Entrants) != 2 {
		return models.RawMatchRecord{}, false
	}
	playedAt := m.EndedAt
	if playedAt == nil {
		playedAt = m.RecordedAt
	}
	if playedAt == nil {
		return models.RawMatchRecord{}, false
	}

	record := models.RawMatchRecord{
		SourceID:   m.ID,
		PlayedAt:   playedAt.UTC(),
		WinnerName: m.Winner,
		DurationMs: m.DurationMs,
	}
	for i := 0; i < 2; i++ {
		e := &m.Entrants[i]
		record.Participants[i] = models.MatchParticipant{
			Name:        entrantName(e),
			RatingAfter: firstDefined(e.RatingAfter, e.Rating),
			RatingDelta: firstDefined(e.RatingChange, e.RatingDelta),
		}
		if record.WinnerName == "" && e.Place != nil && *e.Place == 1 {
			record.WinnerName = entrantName(e)
		}
	}
	if record.DurationMs == nil && record.WinnerName != "" {
		for i := 0; i < 2; i++ {
			e := &m.Entrants[i]
			if entrantName(e) == record.WinnerName && e.FinishTimeMs != nil {
				record.DurationMs = e.FinishTimeMs
			}
		}
	}
	return record, true
}

func entrantName(e *ladderEntrant) string {
	if e.User != nil && e.User.Name != "" {
		return e.User.Name
	}
	return e.Name
}

func firstDefined(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 30 * time.Second
}
