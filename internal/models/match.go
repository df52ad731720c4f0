// Package models defines the domain types shared across the prediction engine.
package models

import (
	"math"
	"strings"
	"time"
)

// MatchParticipant is one side of a ranked race as reported by the provider.
type MatchParticipant struct {
	Name        string   `json:"name"`
	RatingAfter *float64 `json:"rating_after,omitempty"`
	RatingDelta *float64 `json:"rating_delta,omitempty"`
}

// RawMatchRecord is the canonical per-match record handed to the engine by
// the history provider. Payload-specific field picking happens in the
// provider; the core only ever sees this shape.
type RawMatchRecord struct {
	SourceID     string              `json:"source_id,omitempty"`
	PlayedAt     time.Time           `json:"played_at"`
	Participants [2]MatchParticipant `json:"participants"`
	WinnerName   string              `json:"winner_name,omitempty"`
	DurationMs   *int64              `json:"duration_ms,omitempty"`
}

// ParticipantIndex returns the index of the named participant, or -1 when the
// player did not take part in the match. Names compare case-insensitively.
func (r *RawMatchRecord) ParticipantIndex(player string) int {
	for i, p := range r.Participants {
		if strings.EqualFold(p.Name, player) {
			return i
		}
	}
	return -1
}

// ResolveWinner returns the index of the winning participant.
// Explicit winner identity takes precedence. Otherwise a winner is inferred
// from rating deltas: with both deltas known, one must be strictly greater
// than the other; with a single known delta, its sign decides. Returns
// (-1, false) when no winner can be resolved.
func (r *RawMatchRecord) ResolveWinner() (int, bool) {
	if r.WinnerName != "" {
		if idx := r.ParticipantIndex(r.WinnerName); idx >= 0 {
			return idx, true
		}
	}

	d0 := finiteDelta(r.Participants[0].RatingDelta)
	d1 := finiteDelta(r.Participants[1].RatingDelta)

	switch {
	case d0 != nil && d1 != nil:
		if *d0 > *d1 {
			return 0, true
		}
		if *d1 > *d0 {
			return 1, true
		}
	case d0 != nil && *d0 != 0:
		if *d0 > 0 {
			return 0, true
		}
		return 1, true
	case d1 != nil && *d1 != 0:
		if *d1 > 0 {
			return 1, true
		}
		return 0, true
	}
	return -1, false
}

// View projects the match onto the named player's perspective. Returns nil
// when the player is absent or the outcome cannot be resolved.
func (r *RawMatchRecord) View(player string) *PlayerMatchView {
	idx := r.ParticipantIndex(player)
	if idx < 0 {
		return nil
	}
	winner, ok := r.ResolveWinner()
	if !ok {
		return nil
	}

	view := &PlayerMatchView{
		PlayedAt: r.PlayedAt,
		IsWin:    winner == idx,
		EloDelta: finiteDelta(r.Participants[idx].RatingDelta),
	}
	opponent := r.Participants[1-idx]
	view.OpponentEloAfter = finiteDelta(opponent.RatingAfter)
	if view.IsWin && r.DurationMs != nil && *r.DurationMs > 0 {
		view.DurationMs = r.DurationMs
	}
	return view
}

// PlayerMatchView is a per-player normalization of a raw match record.
type PlayerMatchView struct {
	PlayedAt         time.Time
	IsWin            bool
	EloDelta         *float64
	OpponentEloAfter *float64
	DurationMs       *int64
}

func finiteDelta(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
