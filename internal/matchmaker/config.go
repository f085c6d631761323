// Package matchmaker implements the rating-aware matchmaking queue:
// per-mode queues, a time-expanding compatibility window, snake-seeded
// team formation, and a match-quality gate.
package matchmaker

import (
	"github.com/ironspire/pvpcore/internal/config"
)

// Entry is one queued player.
// The acceptable rating window is deliberately not stored on Entry — it is
// a pure function of EnqueuedAtUnix and the mode config, recomputed by
// Window() on every tick.
type Entry struct {
	PlayerID      string
	Mode          string
	Rating        int32
	PingMs        int32
	Region        string
	PremadeGroup  string // empty if solo; entries sharing a group queue/pop together
	EnqueuedAtUnix int64
	RecentOpponents []string // bounded ring, damps repeat matchups
	Blocked         []string
}

// Window returns the acceptable rating window for this entry at time `now`,
// min(initial + elapsed*growth, max).
func Window(mode config.ModeConfig, enqueuedAtUnix, now int64) int32 {
	elapsed := float64(now - enqueuedAtUnix)
	if elapsed < 0 {
		elapsed = 0
	}
	grown := float64(mode.InitialRatingWindow) + elapsed*mode.WindowGrowthPerSecond
	if grown > float64(mode.MaxRatingWindow) {
		grown = float64(mode.MaxRatingWindow)
	}
	return int32(grown)
}

// RelaxationThreshold is the wait time (seconds) past which a formed group's
// quality gate is ignored so queues do not starve: half of the mode's max
// queue time.
func RelaxationThreshold(mode config.ModeConfig) int64 {
	return mode.MaxQueueTimeSeconds / 2
}
