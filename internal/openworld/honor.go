package openworld

import "github.com/ironspire/pvpcore/internal/config"

// killRecord tracks one (killer, victim) pair's recent kill timestamps
// inside the sliding DR window.
type killRecord struct {
	timestampsUnix []int64
}

// recentKillCount prunes timestamps outside the DR window and returns the
// remaining count, including the kill currently being scored.
func (k *killRecord) recentKillCount(now, windowSeconds int64) int {
	cutoff := now - windowSeconds
	kept := k.timestampsUnix[:0]
	for _, ts := range k.timestampsUnix {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	k.timestampsUnix = kept
	return len(k.timestampsUnix)
}

// Honor computes the diminishing-returns honor award for one kill:
// honor = base / max(1, recent_kill_count), with a
// multiplier for killing inside enemy-controlled territory. recentKillCount
// counts kills of this victim by this killer within the DR window,
// including the kill just scored. DR only kicks in once recentKillCount
// passes the configured threshold ("DR kicking in past the 5th kill");
// kills at or below it award the full base honor.
func Honor(base int32, recentKillCount int, inEnemyTerritory bool) int32 {
	divisor := 1
	if recentKillCount > config.Get().HonorDRKicksInAfterKill {
		divisor = recentKillCount
	}
	honor := float64(base) / float64(divisor)
	if inEnemyTerritory {
		honor *= config.Get().EnemyTerritoryMultiplier
	}
	rounded := int32(honor)
	if honor-float64(rounded) >= 0.5 {
		rounded++
	}
	return rounded
}
