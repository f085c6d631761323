package arena

import "github.com/ironspire/pvpcore/internal/ratingengine"

// HandleKill applies a kill event to match state: victim death/respawn
// timer, killer/assister stat credit. Events are processed in arrival
// order, which this function assumes of its caller — it does
// not reorder or buffer.
func HandleKill(s *State, now int64, killerID, victimID string, assisterID string) {
	killer, ok := s.Players[killerID]
	if ok {
		killer.Stats.Kills++
	}
	if assisterID != "" {
		if assister, ok := s.Players[assisterID]; ok {
			assister.Stats.Assists++
		}
	}
	victim, ok := s.Players[victimID]
	if !ok {
		return
	}
	victim.Stats.Deaths++
	victim.Alive = false
	victim.RespawnAtUnix = now + s.Config.RespawnSeconds
}

// ApplyDamage credits a damage-dealt/damage-taken pair.
func ApplyDamage(s *State, attackerID, targetID string, amount int64) {
	if p, ok := s.Players[attackerID]; ok {
		p.Stats.DamageDealt += amount
	}
	if p, ok := s.Players[targetID]; ok {
		p.Stats.DamageTaken += amount
	}
}

// ApplyHeal credits healing done.
func ApplyHeal(s *State, healerID string, amount int64) {
	if p, ok := s.Players[healerID]; ok {
		p.Stats.Healing += amount
	}
}

// processRespawns revives any player whose respawn timer has elapsed,
// provided the match is not terminal.
func processRespawns(s *State, now int64) {
	if s.Phase.Terminal() {
		return
	}
	for _, p := range s.Players {
		if !p.Alive && !p.Disconnected && p.RespawnAtUnix != 0 && now >= p.RespawnAtUnix {
			p.Alive = true
			p.RespawnAtUnix = 0
		}
	}
}

// anyAbandonedByTolerance reports whether any player has been disconnected
// for at least AbandonToleranceSeconds, the "any non-terminal -> Abandoned"
// transition that fires regardless of which phase the match is in.
func anyAbandonedByTolerance(s *State, now int64) bool {
	for _, p := range s.Players {
		if p.Disconnected && p.DisconnectedAtUnix > 0 && now-p.DisconnectedAtUnix >= s.Config.AbandonToleranceSeconds {
			return true
		}
	}
	return false
}

// aliveConnectedCountByTeam counts alive, connected, non-disconnected
// players per team — the effective size used for elimination checks
// in the face of disconnects.
func aliveConnectedCountByTeam(s *State) map[int]int {
	counts := make(map[int]int, len(s.Teams))
	for _, p := range s.Players {
		if p.Alive && p.Connected && !p.Disconnected {
			counts[p.TeamID]++
		}
	}
	return counts
}

// checkVictory evaluates the three victory conditions in order,
// returning the terminal outcome if one applies. Called at every stat
// mutation and on every tick.
func checkVictory(s *State, now int64) (shouldFinish bool, winnerTeam int, draw bool) {
	// 1. Score limit.
	for _, t := range s.Teams {
		if s.Config.ScoreLimit > 0 && t.Score >= s.Config.ScoreLimit {
			return true, t.ID, false
		}
	}

	// 2. Elimination: exactly one team has an alive, connected player.
	counts := aliveConnectedCountByTeam(s)
	aliveTeams := 0
	lastAlive := -1
	for id := range s.Teams {
		if counts[id] > 0 {
			aliveTeams++
			lastAlive = id
		}
	}
	if aliveTeams == 1 {
		return true, lastAlive, false
	}
	if aliveTeams == 0 {
		// Every team wiped simultaneously: treat as a draw rather than
		// leaving the match to hang with no victor.
		return true, -1, true
	}

	// 3. Time limit.
	deadline := s.StartedAtUnix + s.Config.TimeLimitSeconds
	inPlay := s.Phase == PhaseInProgress || s.Phase == PhaseSuddenDeath
	if inPlay && now >= deadline {
		winner := highestScoreTeam(s)
		if winner == -1 {
			if s.Config.SuddenDeathEnabled && s.Phase != PhaseSuddenDeath {
				s.Phase = PhaseSuddenDeath
				return false, 0, false
			}
			return true, -1, true
		}
		return true, winner, false
	}

	return false, 0, false
}

// highestScoreTeam returns the unique highest-scoring team id, or -1 on a
// tie.
func highestScoreTeam(s *State) int {
	best := int32(-1)
	bestID := -1
	tie := false
	for id, t := range s.Teams {
		if t.Score > best {
			best = t.Score
			bestID = id
			tie = false
		} else if t.Score == best {
			tie = true
		}
	}
	if tie {
		return -1
	}
	return bestID
}

// finalize computes MVP and rating deltas and marks the match Finished.
// Rating deltas are assigned exactly once here, the single call site for
// the transition into Finished.
func finalize(s *State, now int64, winnerTeam int, draw bool, deltas []ratingengine.Delta) {
	s.Phase = PhaseFinished
	s.EndedAtUnix = now

	result := &Result{MatchID: s.MatchID, WinnerTeam: winnerTeam, Draw: draw}
	if !draw {
		mvpID, reason := selectMVP(s.Players)
		result.MVPPlayerID = mvpID
		result.MVPReason = reason
	}
	result.RatingDeltas = make(map[string]int32, len(deltas))
	for _, d := range deltas {
		result.RatingDeltas[d.PlayerID] = d.Change
	}
	s.Result = result
}

// abandon marks a match Abandoned with no rating change, the outcome for
// a fatal internal error mid-match.
func abandon(s *State, now int64) {
	s.Phase = PhaseAbandoned
	s.EndedAtUnix = now
	s.Result = &Result{MatchID: s.MatchID, WinnerTeam: -1, Draw: true, RatingDeltas: map[string]int32{}}
}

// ratingParticipants builds the ratingengine.ParticipantResult slice for a
// terminal (non-draw) match: each player's opponent reference is the
// average rating of the opposing team.
func ratingParticipants(s *State, winnerTeam int, draw bool) []ratingengine.ParticipantResult {
	teamAvg := make(map[int]int32, len(s.Teams))
	teamCount := make(map[int]int32, len(s.Teams))
	for _, p := range s.Players {
		teamAvg[p.TeamID] += p.Rating
		teamCount[p.TeamID]++
	}
	for id := range teamAvg {
		if teamCount[id] > 0 {
			teamAvg[id] /= teamCount[id]
		}
	}

	out := make([]ratingengine.ParticipantResult, 0, len(s.Players))
	for _, p := range s.Players {
		var outcome ratingengine.Outcome
		switch {
		case draw:
			outcome = ratingengine.OutcomeDraw
		case p.TeamID == winnerTeam:
			outcome = ratingengine.OutcomeWin
		default:
			outcome = ratingengine.OutcomeLoss
		}
		var opponentAvg int32
		for id, avg := range teamAvg {
			if id != p.TeamID {
				opponentAvg = avg
				break
			}
		}
		out = append(out, ratingengine.ParticipantResult{
			PlayerID:          p.PlayerID,
			Outcome:           outcome,
			OpponentAvgRating: opponentAvg,
		})
	}
	return out
}
