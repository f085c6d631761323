package guildwar

import "github.com/ironspire/pvpcore/internal/config"

// AddKillPoints credits the killer's guild points_per_kill. No-op
// outside the Active phase.
func AddKillPoints(w *War, killerGuild string, wc config.WarConfig) {
	if w.Phase != PhaseActive {
		return
	}
	addScore(w, killerGuild, wc.PointsPerKill)
}

// AddObjectiveCapturePoints credits a flipped objective's point value to
// the capturing guild.
func AddObjectiveCapturePoints(w *War, guild string, points int32) {
	if w.Phase != PhaseActive {
		return
	}
	addScore(w, guild, points)
}

func addScore(w *War, guild string, delta int32) {
	switch guild {
	case w.GuildA:
		w.ScoreA += delta
	case w.GuildB:
		w.ScoreB += delta
	}
}

func scoreOf(w *War, guild string) int32 {
	if guild == w.GuildA {
		return w.ScoreA
	}
	return w.ScoreB
}

// checkVictory implements the war's victory conditions: score cap
// reached, all objectives held by one side, or timer elapsed with higher
// score (tie => draw). Returns true once a winner or draw is decided.
func checkVictory(w *War, now int64, wc config.WarConfig) bool {
	if w.Phase != PhaseActive {
		return false
	}
	if wc.ScoreCap > 0 {
		if w.ScoreA >= wc.ScoreCap {
			w.Winner = w.GuildA
			return true
		}
		if w.ScoreB >= wc.ScoreCap {
			w.Winner = w.GuildB
			return true
		}
	}
	if w.allObjectivesHeldBy(w.GuildA) {
		w.Winner = w.GuildA
		return true
	}
	if w.allObjectivesHeldBy(w.GuildB) {
		w.Winner = w.GuildB
		return true
	}
	if now >= w.ActiveEndUnix {
		switch {
		case w.ScoreA > w.ScoreB:
			w.Winner = w.GuildA
		case w.ScoreB > w.ScoreA:
			w.Winner = w.GuildB
		default:
			w.Draw = true
		}
		return true
	}
	return false
}
