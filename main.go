package main

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/ironspire/pvpcore/internal/arena"
	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/guildwar"
	"github.com/ironspire/pvpcore/internal/inmatch"
	"github.com/ironspire/pvpcore/internal/leaderboard"
	"github.com/ironspire/pvpcore/internal/matchmaker"
	"github.com/ironspire/pvpcore/internal/openworld"
	"github.com/ironspire/pvpcore/internal/ratingengine"
	"github.com/ironspire/pvpcore/internal/rpc"
	"github.com/ironspire/pvpcore/internal/tickdriver"
	"github.com/ironspire/pvpcore/internal/tournament"
	"github.com/ironspire/pvpcore/internal/worldstub"
)

// arenaAdapter is the one place the arena match-construction API is
// exercised from both the matchmaker's MatchFound handoff and the
// tournament engine's bracket dispatch, so neither of those packages needs
// to import arena directly: only the owner imports the concrete type;
// everyone else holds a MatchId handle.
type arenaAdapter struct {
	nk     runtime.NakamaModule
	rating *ratingengine.Engine
	tour   *tournament.Service
}

// ReportArenaResult implements arena.ResultReporter: a tournament-dispatched
// arena match's terminal outcome feeds straight back into the bracket slot
// it was created for.
func (a *arenaAdapter) ReportArenaResult(ctx context.Context, arenaMatchID, winnerPlayerID string) error {
	return a.tour.ProcessArenaCompletion(arenaMatchID, winnerPlayerID)
}

func (a *arenaAdapter) LaunchArenaMatch(ctx context.Context, mode string, teams [][]matchmaker.Entry) (string, error) {
	converted := make([][]arena.TeamMember, len(teams))
	for i, team := range teams {
		members := make([]arena.TeamMember, len(team))
		for j, e := range team {
			members[j] = arena.TeamMember{PlayerID: e.PlayerID, Rating: e.Rating}
		}
		converted[i] = members
	}
	return a.nk.MatchCreate(ctx, "arena", map[string]interface{}{
		"mode":  mode,
		"teams": converted,
	})
}

// CreateArenaMatch implements tournament.ArenaDispatcher: a bracket slot
// becoming Ready is a 1v1 handoff to the same arena module the matchmaker
// uses, constructing a match with the two participants.
func (a *arenaAdapter) CreateArenaMatch(ctx context.Context, mode string, p1, p2 string) (string, error) {
	r1, err := a.rating.Rating(ctx, p1, mode)
	if err != nil {
		return "", err
	}
	r2, err := a.rating.Rating(ctx, p2, mode)
	if err != nil {
		return "", err
	}
	teams := [][]arena.TeamMember{
		{{PlayerID: p1, Rating: r1}},
		{{PlayerID: p2, Rating: r2}},
	}
	return a.nk.MatchCreate(ctx, "arena", map[string]interface{}{
		"mode":     mode,
		"teams":    teams,
		"reporter": a,
	})
}

func sortedModeNames() []string {
	c := config.Get()
	names := make([]string, 0, len(c.Modes))
	for name := range c.Modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InitModule wires one instance of every coordination-core component and
// closes over them in the registered RPC/match handlers — the Go-native
// reading of "no implicit process-wide state."
// No package here keeps package-level mutable service state; config is the
// sole process-wide singleton, and it is read-only after Load().
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	initStart := time.Now()

	if err := config.Load(); err != nil {
		logger.Error("Failed to load coordination core config: %v", err)
		return err
	}
	modes := sortedModeNames()
	logger.Info("Loaded pvpcore config: %d modes, %d tiers, %d zones", len(modes), len(config.Get().Tiers), len(config.Get().Zones))

	ratingEngine := ratingengine.New(nk, logger)
	lbStore := leaderboard.New(nk, logger)
	for _, mode := range modes {
		if err := lbStore.EnsureCategory(ctx, leaderboard.Category(mode, "current")); err != nil {
			logger.Warn("leaderboard category ensure failed for mode %q: %v", mode, err)
		}
	}

	matchTracker := inmatch.New()
	mmService := matchmaker.New(matchTracker)
	owService := openworld.New(nk, logger)
	worldAdapter := worldstub.New(nk)
	gwService := guildwar.New(nk, worldAdapter, logger)
	arenaDispatch := &arenaAdapter{nk: nk, rating: ratingEngine}
	tourService := tournament.New(nk, arenaDispatch, logger)
	arenaDispatch.tour = tourService

	if err := initializer.RegisterMatch("arena", arena.NewMatchFactory(ratingEngine, lbStore, matchTracker)); err != nil {
		logger.Error("Unable to register arena match handler: %v", err)
		return err
	}

	driver := tickdriver.New(mmService, tourService, owService, gwService, ratingEngine, lbStore, arenaDispatch, lbStore, modes)
	if err := initializer.RegisterMatch(tickdriver.ModuleName, driver.NewMatchFactory()); err != nil {
		logger.Error("Unable to register coordinator match handler: %v", err)
		return err
	}
	if _, err := nk.MatchCreate(ctx, tickdriver.ModuleName, map[string]interface{}{}); err != nil {
		logger.Error("Unable to start coordinator match: %v", err)
		return err
	}

	handlers := &rpc.Handlers{
		Matchmaker:  mmService,
		Tournament:  tourService,
		OpenWorld:   owService,
		GuildWar:    gwService,
		Rating:      ratingEngine,
		Leaderboard: lbStore,
	}

	rpcs := []struct {
		name string
		fn   func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error)
	}{
		{"queue_join", handlers.QueueJoin},
		{"queue_leave", handlers.QueueLeave},
		{"queue_status", handlers.QueueStatus},
		{"tournament_create", handlers.TournamentCreate},
		{"tournament_register", handlers.TournamentRegister},
		{"tournament_check_in", handlers.TournamentCheckIn},
		{"tournament_standings", handlers.TournamentStandings},
		{"war_declare", handlers.WarDeclare},
		{"war_accept", handlers.WarAccept},
		{"war_join", handlers.WarJoin},
		{"war_leave", handlers.WarLeave},
		{"war_status", handlers.WarStatus},
		{"war_territories", handlers.WarTerritories},
		{"zone_set_faction", handlers.SetFaction},
		{"zone_update_position", handlers.ZoneUpdatePosition},
		{"zone_can_attack", handlers.ZoneCanAttack},
		{"zone_report_kill", handlers.ZoneReportKill},
		{"war_report_kill", handlers.WarReportKill},
		{"leaderboard_page", handlers.LeaderboardPage},
		{"leaderboard_position", handlers.LeaderboardPosition},
		{"leaderboard_stats", handlers.LeaderboardStats},
		{"leaderboard_search", handlers.LeaderboardSearch},
		{"rating_get", handlers.RatingGet},
		{"rating_trend", handlers.RatingTrend},
		{"rating_start_season", handlers.RatingStartSeason},
	}
	for _, r := range rpcs {
		if err := initializer.RegisterRpc(r.name, r.fn); err != nil {
			logger.Error("Unable to register RPC %q: %v", r.name, err)
			return err
		}
	}

	logger.Info("pvpcore coordination core loaded in %d msec.", time.Since(initStart).Milliseconds())
	return nil
}
