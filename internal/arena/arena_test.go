package arena

import (
	"testing"

	"github.com/ironspire/pvpcore/internal/config"
)

func mustLoadConfig(t *testing.T) config.ModeConfig {
	t.Helper()
	if err := config.Load(); err != nil {
		t.Fatalf("config.Load() error: %v", err)
	}
	mode, ok := config.Mode("1v1")
	if !ok {
		t.Fatalf("1v1 mode not found in embedded config")
	}
	return mode
}

// TestEliminationVictory covers a kill that leaves the
// victim's team with no alive member transitions the match to Finished
// with the killer's team as winner, within one tick.
func TestEliminationVictory(t *testing.T) {
	mode := mustLoadConfig(t)
	s := newState("m1", "1v1", mode, 0)
	s.Players["a"] = &Player{PlayerID: "a", TeamID: 0, Rating: 1500, Alive: true, Connected: true}
	s.Players["b"] = &Player{PlayerID: "b", TeamID: 1, Rating: 1500, Alive: true, Connected: true}
	s.Phase = PhaseInProgress
	s.StartedAtUnix = 0

	HandleKill(s, 1, "a", "b", "")

	finish, winner, draw := checkVictory(s, 1)
	if !finish {
		t.Fatalf("expected victory after elimination")
	}
	if draw {
		t.Fatalf("expected a decisive winner, not a draw")
	}
	if winner != 0 {
		t.Fatalf("expected team 0 to win, got team %d", winner)
	}
}

// TestDrawOnTimeLimit covers a tied score at the time limit
// with sudden death disabled yields Finished with no winner.
func TestDrawOnTimeLimit(t *testing.T) {
	mode := mustLoadConfig(t)
	mode.SuddenDeathEnabled = false
	mode.TimeLimitSeconds = 600
	mode.ScoreLimit = 0
	s := newState("m2", "3v3", mode, 0)
	for i := 0; i < 3; i++ {
		s.Players[letter(i)] = &Player{PlayerID: letter(i), TeamID: 0, Alive: true, Connected: true}
		s.Players[letter(i+3)] = &Player{PlayerID: letter(i + 3), TeamID: 1, Alive: true, Connected: true}
	}
	s.Teams[0].Score = 7
	s.Teams[1].Score = 7
	s.Phase = PhaseInProgress
	s.StartedAtUnix = 0

	finish, winner, draw := checkVictory(s, 600)
	if !finish || !draw || winner != -1 {
		t.Fatalf("expected a draw at the time limit, got finish=%v winner=%d draw=%v", finish, winner, draw)
	}
}

// TestEloDelta covers the opponent reference fed into the ELO delta for a
// 1600 vs 1400 pairing: each side's opponent average is the other's rating.
func TestEloDelta(t *testing.T) {
	mode := mustLoadConfig(t)
	s := newState("m3", "1v1", mode, 0)
	s.Players["winner"] = &Player{PlayerID: "winner", TeamID: 0, Rating: 1600}
	s.Players["loser"] = &Player{PlayerID: "loser", TeamID: 1, Rating: 1400}

	participants := ratingParticipants(s, 0, false)
	var winnerOpp, loserOpp int32
	for _, p := range participants {
		if p.PlayerID == "winner" {
			winnerOpp = p.OpponentAvgRating
		} else {
			loserOpp = p.OpponentAvgRating
		}
	}
	if winnerOpp != 1400 {
		t.Fatalf("winner opponent avg = %d, want 1400", winnerOpp)
	}
	if loserOpp != 1600 {
		t.Fatalf("loser opponent avg = %d, want 1600", loserOpp)
	}
}

func TestMVPTieBreak(t *testing.T) {
	players := map[string]*Player{
		"a": {PlayerID: "a", Stats: CombatStats{Kills: 5, Deaths: 2, Assists: 2}},
		"b": {PlayerID: "b", Stats: CombatStats{Kills: 5, Deaths: 1}},
	}
	id, _ := selectMVP(players)
	if id != "b" {
		t.Fatalf("expected lower-deaths tie-break to pick b, got %s", id)
	}
}

func letter(i int) string {
	return string(rune('a' + i))
}
