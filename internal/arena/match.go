package arena

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/corelog"
	"github.com/ironspire/pvpcore/internal/leaderboard"
	"github.com/ironspire/pvpcore/notify"
	"github.com/ironspire/pvpcore/internal/ratingengine"
)

// Opcodes for client<->match data messages.
const (
	OpCodeStateSnapshot int64 = iota
	OpCodeStatDelta
)

// CreateParams describes the "mode" and "teams" keys of the params map that
// main.go's arena adapter passes to nk.MatchCreate; MatchInit reads those
// keys from the map, and this struct itself is not used to build it.
type CreateParams struct {
	Mode    string            `json:"mode"`
	Teams   [][]TeamMember    `json:"teams"`
}

// TeamMember seeds one player's starting rating into the match.
type TeamMember struct {
	PlayerID string `json:"player_id"`
	Rating   int32  `json:"rating"`
}

// ResultReporter lets a dispatched arena match report its terminal outcome
// back to whatever system launched it. Only the tournament engine's bracket
// dispatch supplies one today (via the "reporter" param key); a
// matchmaker-formed match leaves it nil. Kept as an interface so this
// package never imports tournament directly.
type ResultReporter interface {
	ReportArenaResult(ctx context.Context, arenaMatchID, winnerPlayerID string) error
}

// InMatchTracker marks players in and out of a live arena match. The
// matchmaker consults the same tracker through its own InMatchChecker
// interface to enforce in_queue + in_match <= 1.
type InMatchTracker interface {
	Enter(playerID string)
	Exit(playerID string)
}

// Match is the runtime.Match implementation for one arena match. Besides
// its dependencies it holds only the per-instance reporter/tracker wired in
// at MatchInit — all gameplay state lives in *State, which Nakama threads
// through every handler call: a near-stateless receiver plus threaded state.
type Match struct {
	ratingEngine *ratingengine.Engine
	lbStore      *leaderboard.Store
	tracker      InMatchTracker

	reporter ResultReporter
}

// NewMatchFactory returns the func Nakama's RegisterMatch expects, closing
// over the shared rating engine, leaderboard store, and in-match tracker
// InitModule builds once as explicitly-owned services rather than implicit
// process-wide state.
func NewMatchFactory(ratingEngine *ratingengine.Engine, lbStore *leaderboard.Store, tracker InMatchTracker) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule) (runtime.Match, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return &Match{ratingEngine: ratingEngine, lbStore: lbStore, tracker: tracker}, nil
	}
}

func (m *Match) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	modeName, _ := params["mode"].(string)
	modeCfg, ok := config.Mode(modeName)
	if !ok {
		logger.Error("arena match init with unknown mode %q", modeName)
		return nil, 0, ""
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	state := newState(matchID, modeName, modeCfg, nowUnix())

	if rawTeams, ok := params["teams"]; ok {
		if teams, ok := rawTeams.([][]TeamMember); ok {
			for teamID, members := range teams {
				for _, mem := range members {
					state.Players[mem.PlayerID] = &Player{
						PlayerID: mem.PlayerID,
						TeamID:   teamID,
						Rating:   mem.Rating,
						Alive:    true,
					}
				}
			}
		}
	}
	if reporter, ok := params["reporter"].(ResultReporter); ok {
		m.reporter = reporter
	}
	if m.tracker != nil {
		for pid := range state.Players {
			m.tracker.Enter(pid)
		}
	}

	label, err := json.Marshal(toLabel(state))
	if err != nil {
		logger.Error("arena match label marshal error: %v", err)
		return nil, 0, ""
	}
	return state, config.Get().TickRateHz, string(label)
}

// labelView is the small public match-listing label; it is also the
// payload broadcastSnapshot sends, rather than the full State.
type labelView struct {
	MatchID string `json:"match_id"`
	Mode    string `json:"mode"`
	Phase   Phase  `json:"phase"`
}

func toLabel(s *State) labelView {
	return labelView{MatchID: s.MatchID, Mode: s.Mode, Phase: s.Phase}
}

func (m *Match) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	s, ok := state_.(*State)
	if !ok {
		return state_, false, "invalid match state"
	}
	if s.Phase.Terminal() {
		return s, false, "match already finished"
	}
	p, expected := s.Players[presence.GetUserId()]
	if !expected {
		return s, false, "player not assigned to this match"
	}
	if p.Connected {
		return s, false, "duplicate join"
	}
	return s, true, ""
}

func (m *Match) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, presences []runtime.Presence) interface{} {
	s := state_.(*State)
	for _, presence := range presences {
		if p, ok := s.Players[presence.GetUserId()]; ok {
			p.Connected = true
			p.Disconnected = false
			p.DisconnectedAtUnix = 0
		}
	}
	if allJoined(s) && s.Phase == PhaseWaitingForPlayers {
		startCountdown(s, nowUnix())
		broadcastSnapshot(ctx, logger, dispatcher, s)
	}
	return s
}

func allJoined(s *State) bool {
	for _, p := range s.Players {
		if !p.Connected {
			return false
		}
	}
	return len(s.Players) > 0
}

func startCountdown(s *State, now int64) {
	s.Phase = PhaseCountdown
	s.CountdownEndUnix = now + s.Config.CountdownSeconds
}

func (m *Match) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, presences []runtime.Presence) interface{} {
	s := state_.(*State)
	now := nowUnix()
	for _, presence := range presences {
		if p, ok := s.Players[presence.GetUserId()]; ok {
			p.Connected = false
			p.Disconnected = true
			p.DisconnectedAtUnix = now
		}
	}
	return s
}

func (m *Match) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, messages []runtime.MatchData) interface{} {
	s := state_.(*State)
	now := nowUnix()

	for _, msg := range messages {
		m.handleData(s, now, msg)
	}

	if s.Phase.Terminal() {
		return s
	}

	if anyAbandonedByTolerance(s, now) {
		abandon(s, now)
		m.onTerminal(ctx, logger, s)
		broadcastSnapshot(ctx, logger, dispatcher, s)
		return s
	}

	switch s.Phase {
	case PhaseCountdown:
		if now >= s.CountdownEndUnix {
			s.Phase = PhaseInProgress
			s.StartedAtUnix = now
			if s.Config.SuddenDeathEnabled {
				s.SuddenDeathAtUnix = now + s.Config.SuddenDeathAfterSeconds
			}
		}
	case PhaseInProgress, PhaseSuddenDeath:
		processRespawns(s, now)
		if s.Phase == PhaseInProgress && s.Config.SuddenDeathEnabled && s.SuddenDeathAtUnix > 0 && now >= s.SuddenDeathAtUnix {
			s.Phase = PhaseSuddenDeath
		}
		m.evaluateVictory(ctx, logger, nk, s, now)
	}

	broadcastSnapshot(ctx, logger, dispatcher, s)
	return s
}

func (m *Match) handleData(s *State, now int64, msg runtime.MatchData) {
	if s.Phase != PhaseInProgress && s.Phase != PhaseSuddenDeath {
		return
	}
	switch msg.GetOpCode() {
	case OpCodeStatDelta:
		var delta struct {
			Kind       string `json:"kind"`
			KillerID   string `json:"killer_id"`
			VictimID   string `json:"victim_id"`
			AssisterID string `json:"assister_id"`
			TargetID   string `json:"target_id"`
			Amount     int64  `json:"amount"`
			TeamID     int    `json:"team_id"`
			ScoreDelta int32  `json:"score_delta"`
		}
		if err := json.Unmarshal(msg.GetData(), &delta); err != nil {
			return
		}
		switch delta.Kind {
		case "kill":
			HandleKill(s, now, delta.KillerID, delta.VictimID, delta.AssisterID)
		case "damage":
			ApplyDamage(s, delta.KillerID, delta.TargetID, delta.Amount)
		case "heal":
			ApplyHeal(s, delta.KillerID, delta.Amount)
		case "score":
			if t, ok := s.Teams[delta.TeamID]; ok {
				t.Score += delta.ScoreDelta
			}
		}
	}
}

func (m *Match) evaluateVictory(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, s *State, now int64) {
	finish, winnerTeam, draw := checkVictory(s, now)
	if !finish {
		return
	}

	var deltas []ratingengine.Delta
	if !draw {
		participants := ratingParticipants(s, winnerTeam, draw)
		d, err := m.ratingEngine.SubmitResult(ctx, s.Mode, s.Config.KFactor, participants)
		if err != nil {
			corelog.Error(ctx, logger, "rating submission failed", err, map[string]interface{}{"match": s.MatchID})
			abandon(s, now)
			m.onTerminal(ctx, logger, s)
			return
		}
		deltas = d
	}

	finalize(s, now, winnerTeam, draw, deltas)
	m.publishResult(ctx, logger, nk, s)
	m.onTerminal(ctx, logger, s)
}

// onTerminal runs the bookkeeping common to every path that ends a match:
// releasing participants from the in-match tracker and, for matches
// dispatched by a reporter (currently only the tournament engine's bracket
// dispatch), reporting the outcome back so the caller can progress.
func (m *Match) onTerminal(ctx context.Context, logger runtime.Logger, s *State) {
	if m.tracker != nil {
		for pid := range s.Players {
			m.tracker.Exit(pid)
		}
	}
	if m.reporter == nil {
		return
	}
	winner := resultWinnerPlayerID(s)
	if err := m.reporter.ReportArenaResult(ctx, s.MatchID, winner); err != nil {
		corelog.Error(ctx, logger, "arena result report failed", err, map[string]interface{}{"match": s.MatchID})
	}
}

// resultWinnerPlayerID resolves the terminal Result's winning team to a
// single player id, the shape a tournament bracket slot needs. Draws and
// abandonments fall back to forfeitWinner.
func resultWinnerPlayerID(s *State) string {
	if s.Result != nil && !s.Result.Draw && s.Result.WinnerTeam >= 0 {
		for _, p := range s.Players {
			if p.TeamID == s.Result.WinnerTeam {
				return p.PlayerID
			}
		}
	}
	return forfeitWinner(s)
}

// forfeitWinner returns the single connected player's id when exactly one
// side still has one, so an abandoned tournament-dispatched match can still
// record a forfeit; otherwise "".
func forfeitWinner(s *State) string {
	connectedTeams := map[int]int{}
	for _, p := range s.Players {
		if p.Connected && !p.Disconnected {
			connectedTeams[p.TeamID]++
		}
	}
	teamsWithPlayers, survivingTeam := 0, -1
	for id, count := range connectedTeams {
		if count > 0 {
			teamsWithPlayers++
			survivingTeam = id
		}
	}
	if teamsWithPlayers != 1 {
		return ""
	}
	for _, p := range s.Players {
		if p.TeamID == survivingTeam {
			return p.PlayerID
		}
	}
	return ""
}

func (m *Match) publishResult(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, s *State) {
	category := leaderboard.Category(s.Mode, "current")
	for _, p := range s.Players {
		won := s.Result.WinnerTeam == p.TeamID && !s.Result.Draw
		delta := s.Result.RatingDeltas[p.PlayerID]
		newRating := p.Rating + delta

		if err := m.lbStore.RecordResult(ctx, category, p.PlayerID, "", int64(newRating), 0, 0); err != nil {
			corelog.Error(ctx, logger, "leaderboard record write failed", err, map[string]interface{}{"match": s.MatchID, "player": p.PlayerID})
		}
		if err := notify.SendMatchResult(ctx, nk, p.PlayerID, notify.MatchResultPayload{
			MatchID:     s.MatchID,
			Won:         won,
			Draw:        s.Result.Draw,
			RatingDelta: delta,
			NewRating:   newRating,
			WasMVP:      s.Result.MVPPlayerID == p.PlayerID,
		}); err != nil {
			corelog.Error(ctx, logger, "match result notification failed", err, map[string]interface{}{"match": s.MatchID, "player": p.PlayerID})
		}
	}
}

func (m *Match) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, graceSeconds int) interface{} {
	s := state_.(*State)
	if !s.Phase.Terminal() {
		abandon(s, nowUnix())
		m.onTerminal(ctx, logger, s)
	}
	return s
}

func (m *Match) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, data string) (interface{}, string) {
	s := state_.(*State)
	return s, fmt.Sprintf("phase=%s", s.Phase)
}

func broadcastSnapshot(ctx context.Context, logger runtime.Logger, dispatcher runtime.MatchDispatcher, s *State) {
	raw, err := json.Marshal(toLabel(s))
	if err != nil {
		return
	}
	if err := dispatcher.BroadcastMessage(OpCodeStateSnapshot, raw, nil, nil, true); err != nil {
		corelog.Error(ctx, logger, "arena snapshot broadcast failed", err, map[string]interface{}{"match": s.MatchID})
	}
}
