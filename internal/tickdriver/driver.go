// Package tickdriver implements the coordination loop: a fixed-cadence loop that
// invokes Matchmaker, Arena dispatch, Tournament, Open-World PvP, and Guild
// War in a defined order, then schedules rating decay and leaderboard
// refresh by absolute timestamp. It is the idiomatic Nakama reading of that
// requirement: a singleton runtime.Match whose MatchLoop already ticks at a
// fixed rate, the same primitive an authoritative match-driven game loop
// uses for its own tick processing.
package tickdriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/corelog"
	"github.com/ironspire/pvpcore/internal/guildwar"
	"github.com/ironspire/pvpcore/internal/leaderboard"
	"github.com/ironspire/pvpcore/internal/matchmaker"
	"github.com/ironspire/pvpcore/internal/openworld"
	"github.com/ironspire/pvpcore/internal/ratingengine"
	"github.com/ironspire/pvpcore/internal/tournament"
	"github.com/ironspire/pvpcore/notify"
)

// ModuleName is the registered match handler name for the coordinator
// singleton InitModule creates exactly once.
const ModuleName = "pvpcore_coordinator"

// Decay and leaderboard refresh run on their own schedule, not every tick,
// scheduled by absolute timestamps rather than tick count.
const (
	decayIntervalSeconds              = 3600
	leaderboardRefreshIntervalSeconds = 30
)

// ArenaLauncher turns a matchmaker.FormedMatch into a live arena match.
// Implemented in main.go by a thin adapter around nk.MatchCreate, keeping
// this package free of a direct arena import — the tick driver dispatches
// work, it does not own matches.
type ArenaLauncher interface {
	LaunchArenaMatch(ctx context.Context, mode string, teams [][]matchmaker.Entry) (matchID string, err error)
}

// RosterSource supplies the player ids a scheduled job should sweep, e.g.
// "every player with a record in this mode's leaderboard." Backed by
// leaderboard.Store in main.go; kept as an interface so this package need
// not assume how large a roster read is acceptable.
type RosterSource interface {
	ModeRoster(ctx context.Context, mode string, limit int) ([]string, error)
}

// State is the coordinator match's threaded state, holding only the
// absolute deadlines for scheduled jobs: monotonic for intervals and
// timeouts, wall-clock only for schedule anchors.
type State struct {
	StartedAtUnix              int64
	NextDecayUnix              int64
	NextLeaderboardRefreshUnix int64
}

// Match is the runtime.Match implementation for the single coordinator
// instance. It holds references to every component service InitModule
// built, each an explicitly-owned service rather than implicit
// process-wide state.
type Match struct {
	mm     *matchmaker.Service
	tour   *tournament.Service
	ow     *openworld.Service
	gw     *guildwar.Service
	rating *ratingengine.Engine
	lb     *leaderboard.Store
	arena  ArenaLauncher
	roster RosterSource
	modes  []string
}

// New constructs the coordinator match type. modes lists every matchmaking
// mode to sweep for scheduled decay/leaderboard-refresh jobs.
func New(mm *matchmaker.Service, tour *tournament.Service, ow *openworld.Service, gw *guildwar.Service, rating *ratingengine.Engine, lb *leaderboard.Store, arena ArenaLauncher, roster RosterSource, modes []string) *Match {
	return &Match{mm: mm, tour: tour, ow: ow, gw: gw, rating: rating, lb: lb, arena: arena, roster: roster, modes: modes}
}

// NewMatchFactory returns the func Nakama's RegisterMatch expects.
func (d *Match) NewMatchFactory() func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule) (runtime.Match, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return d, nil
	}
}

type label struct {
	Role string `json:"role"`
}

func (d *Match) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	rate := config.Get().TickRateHz
	if rate <= 0 {
		rate = 10
	}
	now := time.Now().Unix()
	st := &State{
		StartedAtUnix:              now,
		NextDecayUnix:              now + decayIntervalSeconds,
		NextLeaderboardRefreshUnix: now + leaderboardRefreshIntervalSeconds,
	}
	raw, err := json.Marshal(label{Role: "coordinator"})
	if err != nil {
		logger.Error("tickdriver: label marshal error: %v", err)
		return nil, 0, ""
	}
	return st, rate, string(raw)
}

// MatchJoinAttempt rejects every join: the coordinator is not a player-
// facing match, following the common pattern of using runtime.Match for
// non-gameplay singleton loops (e.g. a matchmaking registry match).
func (d *Match) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	return state_, false, "coordinator match accepts no players"
}

func (d *Match) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, presences []runtime.Presence) interface{} {
	return state_
}

func (d *Match) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, presences []runtime.Presence) interface{} {
	return state_
}

// MatchLoop is the fixed-cadence driver, invoking every
// tickable component in the documented order.
func (d *Match) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, messages []runtime.MatchData) interface{} {
	st, ok := state_.(*State)
	if !ok {
		logger.Error("tickdriver: state not a valid coordinator state object")
		return state_
	}
	now := time.Now().Unix()

	d.runMatchmaker(ctx, logger, nk, now)
	d.tour.Tick(ctx, now)
	d.ow.Tick(ctx, now)
	d.gw.Tick(ctx, now)

	if now >= st.NextDecayUnix {
		d.runScheduledDecay(ctx, logger)
		st.NextDecayUnix = now + decayIntervalSeconds
	}
	if now >= st.NextLeaderboardRefreshUnix {
		d.runScheduledLeaderboardRefresh(ctx, logger)
		st.NextLeaderboardRefreshUnix = now + leaderboardRefreshIntervalSeconds
	}

	return st
}

// runMatchmaker advances the queue and turns every MatchFound event into a
// live arena match, notifying participants of both match-found and
// queue-timeout transitions.
func (d *Match) runMatchmaker(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, now int64) {
	for _, ev := range d.mm.Tick(ctx, now) {
		switch ev.Kind {
		case "match_found":
			matchID, err := d.arena.LaunchArenaMatch(ctx, ev.Match.Mode, ev.Match.Teams)
			if err != nil {
				corelog.Error(ctx, logger, "tickdriver: arena launch failed", err, map[string]interface{}{"mode": ev.Match.Mode})
				continue
			}
			for _, pid := range ev.PlayerIDs {
				_ = notify.SendQueueEvent(ctx, nk, pid, notify.QueueEventPayload{
					Mode: ev.Match.Mode, Event: "match_found", MatchID: matchID,
				})
			}
		case "queue_timeout":
			for _, pid := range ev.PlayerIDs {
				_ = notify.SendQueueEvent(ctx, nk, pid, notify.QueueEventPayload{
					Mode: "", Event: "timeout",
				})
			}
		}
	}
}

// runScheduledDecay sweeps every configured mode's top roster for inactive
// players due a tier-floor decay tick.
func (d *Match) runScheduledDecay(ctx context.Context, logger runtime.Logger) {
	const decaySweepSize = 500
	for _, mode := range d.modes {
		ids, err := d.roster.ModeRoster(ctx, mode, decaySweepSize)
		if err != nil {
			corelog.Error(ctx, logger, "tickdriver: decay roster read failed", err, map[string]interface{}{"mode": mode})
			continue
		}
		if _, err := d.rating.ApplyDecay(ctx, mode, ids); err != nil {
			corelog.Error(ctx, logger, "tickdriver: decay apply failed", err, map[string]interface{}{"mode": mode})
		}
	}
}

// runScheduledLeaderboardRefresh warms the leaderboard page cache for every
// mode's current-season category, bounding the staleness any reader can
// observe even absent a direct submit_result trigger.
func (d *Match) runScheduledLeaderboardRefresh(ctx context.Context, logger runtime.Logger) {
	const refreshPageSize = 100
	for _, mode := range d.modes {
		category := leaderboard.Category(mode, "current")
		if _, err := d.lb.Page(ctx, category, "", refreshPageSize); err != nil {
			corelog.Error(ctx, logger, "tickdriver: leaderboard refresh failed", err, map[string]interface{}{"category": category})
		}
	}
}

func (d *Match) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, graceSeconds int) interface{} {
	return state_
}

func (d *Match) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state_ interface{}, data string) (interface{}, string) {
	return state_, "ok"
}
