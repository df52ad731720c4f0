package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHTTPClient() *RateLimitedHTTPClient {
	cfg := DefaultHTTPClientConfig()
	cfg.RateLimit = 1000
	cfg.MaxRetries = 1
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 2 * time.Millisecond
	return NewRateLimitedHTTPClient(cfg)
}

func fp(v float64) *float64 { return &v }

func ip(v int) *int { return &v }

func wireMatch(id int, at time.Time, winner string) ladderMatch {
	return ladderMatch{
		ID:      fmt.Sprintf("m-%d", id),
		EndedAt: &at,
		Ranked:  true,
		Winner:  winner,
		Entrants: []ladderEntrant{
			{Name: "ann", RatingAfter: fp(1520), RatingChange: fp(12)},
			{Name: "bob", RatingAfter: fp(1480), RatingChange: fp(-12)},
		},
	}
}

func TestFetchMatchesPagination(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pages := map[string]ladderPage{
		"1": {Matches: []ladderMatch{wireMatch(1, at, "ann"), wireMatch(2, at.Add(-time.Hour), "bob")}, NumPages: 2},
		"2": {Matches: []ladderMatch{wireMatch(3, at.Add(-2*time.Hour), "ann")}, NumPages: 2},
	}

	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(pages[r.URL.Query().Get("page")])
	}))
	defer server.Close()

	client := NewLadderClient(testHTTPClient(), server.URL, "token123", 2, nil)
	records, err := client.FetchMatches(context.Background(), "ann", FetchOptions{Limit: 10, RankedOnly: true})
	require.NoError(t, err)

	assert.Len(t, records, 3)
	assert.Len(t, requests, 2)
	assert.Contains(t, requests[0], "page=1")
	assert.Contains(t, requests[0], "per_page=2")
	assert.Contains(t, requests[0], "ranked=true")
	assert.Equal(t, "m-1", records[0].SourceID)
	assert.Equal(t, "ann", records[0].WinnerName)
}

func TestFetchMatchesStopsAtLimit(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var pagesServed int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		json.NewEncoder(w).Encode(ladderPage{
			Matches:  []ladderMatch{wireMatch(pagesServed*2-1, at, "ann"), wireMatch(pagesServed*2, at, "bob")},
			NumPages: 100,
		})
	}))
	defer server.Close()

	client := NewLadderClient(testHTTPClient(), server.URL, "", 2, nil)
	records, err := client.FetchMatches(context.Background(), "ann", FetchOptions{Limit: 3})
	require.NoError(t, err)

	assert.Len(t, records, 3)
	assert.Equal(t, 2, pagesServed, "fetch must stop once the limit is reached")
}

func TestFetchMatchesRequiresPlayer(t *testing.T) {
	client := NewLadderClient(testHTTPClient(), "http://unused", "", 0, nil)
	_, err := client.FetchMatches(context.Background(), "", FetchOptions{Limit: 5})
	assert.Error(t, err)
}

func TestFetchMatchesRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "17")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewLadderClient(testHTTPClient(), server.URL, "", 0, nil)
	_, err := client.FetchMatches(context.Background(), "ann", FetchOptions{Limit: 5})
	require.Error(t, err)

	delay, ok := IsRateLimited(err)
	require.True(t, ok, "expected a typed rate limit error, got %v", err)
	assert.Equal(t, 17*time.Second, delay)
}

func TestFetchMatchesRateLimitedDefaultDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewLadderClient(testHTTPClient(), server.URL, "", 0, nil)
	_, err := client.FetchMatches(context.Background(), "ann", FetchOptions{Limit: 5})

	delay, ok := IsRateLimited(err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, delay)
}

func TestFetchMatchesPlayerNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewLadderClient(testHTTPClient(), server.URL, "", 0, nil)
	_, err := client.FetchMatches(context.Background(), "ghost", FetchOptions{Limit: 5})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestFetchMatchesMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{broken")
	}))
	defer server.Close()

	client := NewLadderClient(testHTTPClient(), server.URL, "", 0, nil)
	_, err := client.FetchMatches(context.Background(), "ann", FetchOptions{Limit: 5})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestNormalizeMatchSynonymFields(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	finish := int64(732000)
	m := ladderMatch{
		ID:         "m-9",
		RecordedAt: &at, // no ended_at, falls back
		Entrants: []ladderEntrant{
			{
				User:         &ladderUser{Name: "ann"},
				Place:        ip(1),
				Rating:       fp(1520), // rating_after absent
				RatingDelta:  fp(12),   // rating_change absent
				FinishTimeMs: &finish,
			},
			{Name: "bob", RatingAfter: fp(1480), RatingChange: fp(-12), Place: ip(2)},
		},
	}

	record, ok := normalizeMatch(&m)
	require.True(t, ok)

	assert.Equal(t, at, record.PlayedAt)
	assert.Equal(t, "ann", record.WinnerName, "place 1 resolves the winner when the field is absent")
	assert.Equal(t, "ann", record.Participants[0].Name, "user name takes precedence over entrant name")
	require.NotNil(t, record.Participants[0].RatingAfter)
	assert.Equal(t, 1520.0, *record.Participants[0].RatingAfter)
	require.NotNil(t, record.Participants[0].RatingDelta)
	assert.Equal(t, 12.0, *record.Participants[0].RatingDelta)
	require.NotNil(t, record.DurationMs, "winner finish time backfills the match duration")
	assert.Equal(t, finish, *record.DurationMs)
}

func TestNormalizeMatchPrefersPrimaryFields(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := wireMatch(1, at, "ann")
	m.Entrants[0].Rating = fp(999)
	m.Entrants[0].RatingDelta = fp(999)

	record, ok := normalizeMatch(&m)
	require.True(t, ok)
	assert.Equal(t, 1520.0, *record.Participants[0].RatingAfter)
	assert.Equal(t, 12.0, *record.Participants[0].RatingDelta)
}

func TestNormalizeMatchDropsUnusable(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	m := wireMatch(1, at, "ann")
	m.Entrants = m.Entrants[:1]
	if _, ok := normalizeMatch(&m); ok {
		t.Fatalf("matches without exactly two entrants must be dropped")
	}

	m = wireMatch(2, at, "ann")
	m.EndedAt = nil
	m.RecordedAt = nil
	if _, ok := normalizeMatch(&m); ok {
		t.Fatalf("matches without a timestamp must be dropped")
	}
}

func TestCustomRetryPolicyDoesNotRetry429(t *testing.T) {
	policy := customRetryPolicy()
	ctx := context.Background()

	retry, err := policy(ctx, &http.Response{StatusCode: http.StatusTooManyRequests}, nil)
	require.NoError(t, err)
	assert.False(t, retry, "429 must surface to the caller, not be retried")

	retry, _ = policy(ctx, &http.Response{StatusCode: http.StatusServiceUnavailable}, nil)
	assert.True(t, retry)

	retry, _ = policy(ctx, &http.Response{StatusCode: http.StatusOK}, nil)
	assert.False(t, retry)
}

func TestFetchMatchesRetriesServerErrors(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(ladderPage{Matches: []ladderMatch{wireMatch(1, at, "ann")}, NumPages: 1})
	}))
	defer server.Close()

	client := NewLadderClient(testHTTPClient(), server.URL, "", 0, nil)
	records, err := client.FetchMatches(context.Background(), "ann", FetchOptions{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, attempts)
}
