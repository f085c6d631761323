// Package arena implements the per-match authoritative arena state machine
// as a Nakama runtime.Match: WaitingForPlayers -> Countdown -> InProgress
// -> (SuddenDeath?) -> Finished | Abandoned.
package arena

import (
	"time"

	"github.com/ironspire/pvpcore/internal/config"
)

// Phase is the arena match state.
// State transitions are monotonically forward except Finished/Abandoned,
// which are terminal.
type Phase string

const (
	PhaseWaitingForPlayers Phase = "waiting_for_players"
	PhaseCountdown         Phase = "countdown"
	PhaseInProgress        Phase = "in_progress"
	PhaseSuddenDeath       Phase = "sudden_death"
	PhaseFinished          Phase = "finished"
	PhaseAbandoned         Phase = "abandoned"
)

// Terminal reports whether a phase is sticky.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseAbandoned
}

// CombatStats are the per-player append-only combat statistics. They
// only grow during InProgress/SuddenDeath.
type CombatStats struct {
	Kills        int32
	Deaths       int32
	Assists      int32
	DamageDealt  int64
	DamageTaken  int64
	Healing      int64
	CCScore      int32
}

// MVPScore is the weighted MVP scoring formula.
func (c CombatStats) MVPScore() float64 {
	return float64(c.Kills) + 0.5*float64(c.Assists) - float64(c.Deaths) +
		float64(c.DamageDealt)/1000 + float64(c.Healing)/2000 + float64(c.CCScore)/100
}

// Player is one match participant.
type Player struct {
	PlayerID           string
	TeamID             int
	Rating             int32
	Stats              CombatStats
	Connected          bool
	Alive              bool
	RespawnAtUnix      int64
	Disconnected       bool
	DisconnectedAtUnix int64
}

// Team aggregates per-team state.
type Team struct {
	ID    int
	Score int32
}

// Result is the terminal outcome of a match, returned by result(match).
type Result struct {
	MatchID      string
	WinnerTeam   int // -1 for a draw
	Draw         bool
	MVPPlayerID  string
	MVPReason    string
	RatingDeltas map[string]int32
}

// State is the full snapshot of one arena match: the `interface{}` Nakama's
// Match handlers pass around as match state. Broadcast snapshots carry only
// its labelView projection, not the whole State.
type State struct {
	MatchID         string
	Mode            string
	Config          config.ModeConfig
	Phase           Phase
	Players         map[string]*Player
	Teams           map[int]*Team
	CreatedAtUnix   int64
	CountdownEndUnix int64
	StartedAtUnix    int64
	SuddenDeathAtUnix int64
	EndedAtUnix       int64
	Result            *Result
}

func newState(matchID, mode string, cfg config.ModeConfig, now int64) *State {
	teams := make(map[int]*Team, cfg.TeamCount)
	for i := 0; i < cfg.TeamCount; i++ {
		teams[i] = &Team{ID: i}
	}
	return &State{
		MatchID:       matchID,
		Mode:          mode,
		Config:        cfg,
		Phase:         PhaseWaitingForPlayers,
		Players:       make(map[string]*Player),
		Teams:         teams,
		CreatedAtUnix: now,
	}
}

func nowUnix() int64 { return time.Now().Unix() }
