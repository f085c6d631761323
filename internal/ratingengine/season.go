package ratingengine

import (
	"context"

	"github.com/ironspire/pvpcore/internal/config"
)

// SeasonEndEvent is emitted once per player soft-reset and returned by
// StartSeason to its caller, used in place of assignable callback members.
type SeasonEndEvent struct {
	PlayerID      string
	Mode          string
	PreviousRating int32
	NewRating     int32
	PeakRating    int32
}

// StartSeason soft-resets the given roster's ratings toward the configured
// baseline, resets match counts, and preserves peak rating. Returns one
// event per player for reward-distribution
// collaborators to consume.
func (e *Engine) StartSeason(ctx context.Context, mode string, playerIDs []string) ([]SeasonEndEvent, error) {
	baseline := config.Get().SeasonBaselineRating
	events := make([]SeasonEndEvent, 0, len(playerIDs))
	for _, pid := range playerIDs {
		rec, err := e.Get(ctx, pid, mode)
		if err != nil {
			return nil, err
		}
		previous := rec.Current
		rec.Current = (rec.Current + baseline) / 2
		rec.Matches = 0
		rec.Wins = 0
		rec.Losses = 0
		rec.Draws = 0
		// Peak is intentionally left untouched so players can see their
		// historical high across the reset.
		if err := e.put(ctx, rec); err != nil {
			return nil, err
		}
		events = append(events, SeasonEndEvent{
			PlayerID:       pid,
			Mode:           mode,
			PreviousRating: previous,
			NewRating:      rec.Current,
			PeakRating:     rec.Peak,
		})
	}
	return events, nil
}
