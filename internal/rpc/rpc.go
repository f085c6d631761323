// Package rpc wires the coordination core's component services to Nakama
// RPC handlers: plain functions closing over shared state (here, the
// Handlers receiver instead of a package-level global), parsing a JSON
// payload, and returning a JSON response or a coreerrors sentinel.
package rpc

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/ironspire/pvpcore/internal/coreerrors"
	"github.com/ironspire/pvpcore/internal/guildwar"
	"github.com/ironspire/pvpcore/internal/leaderboard"
	"github.com/ironspire/pvpcore/internal/matchmaker"
	"github.com/ironspire/pvpcore/internal/openworld"
	"github.com/ironspire/pvpcore/internal/ratingengine"
	"github.com/ironspire/pvpcore/internal/tournament"
)

// Handlers holds every component service an RPC might need. InitModule
// builds one Handlers value and registers its methods, never a
// process-wide singleton.
type Handlers struct {
	Matchmaker *matchmaker.Service
	Tournament *tournament.Service
	OpenWorld  *openworld.Service
	GuildWar   *guildwar.Service
	Rating     *ratingengine.Engine
	Leaderboard *leaderboard.Store
}

func userID(ctx context.Context) (string, error) {
	uid, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || uid == "" {
		return "", coreerrors.ErrInvalidInput
	}
	return uid, nil
}

func decode(payload string, v interface{}) error {
	if payload == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return coreerrors.ErrUnmarshal
	}
	return nil
}

func encode(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", coreerrors.ErrMarshal
	}
	return string(raw), nil
}

func nowUnix() int64 {
	return time.Now().Unix()
}

// --- Matchmaker API: queue/leave/status ---

type queueJoinRequest struct {
	Mode         string   `json:"mode"`
	PingMs       int32    `json:"ping_ms"`
	Region       string   `json:"region"`
	PremadeGroup string   `json:"premade_group"`
	Blocked      []string `json:"blocked"`
}

// QueueJoin implements the `queue <mode>` command surface.
func (h *Handlers) QueueJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req queueJoinRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	rating, err := h.Rating.Rating(ctx, uid, req.Mode)
	if err != nil {
		return "", err
	}
	e := matchmaker.Entry{PlayerID: uid, Rating: rating, PingMs: req.PingMs, Region: req.Region, PremadeGroup: req.PremadeGroup, Blocked: req.Blocked}
	if err := h.Matchmaker.Enqueue(req.Mode, e, nowUnix()); err != nil {
		return "", err
	}
	return encode(map[string]string{"status": "queued"})
}

// QueueLeave implements the `leave(player)` contract, idempotent on a
// repeat call.
func (h *Handlers) QueueLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	if err := h.Matchmaker.Leave(uid); err != nil {
		return "", err
	}
	return encode(map[string]string{"status": "left"})
}

type queueStatusRequest struct {
	Mode string `json:"mode"`
}

// QueueStatus implements the `status(mode)` contract.
func (h *Handlers) QueueStatus(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req queueStatusRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	return encode(h.Matchmaker.Status(req.Mode, nowUnix()))
}

// --- Tournament API ---

type tournamentCreateRequest struct {
	Mode                      string `json:"mode"`
	Format                    string `json:"format"`
	MinParticipants           int    `json:"min_participants"`
	MaxParticipants           int    `json:"max_participants"`
	RegistrationWindowSeconds int64  `json:"registration_window_seconds"`
	CheckInWindowSeconds      int64  `json:"check_in_window_seconds"`
}

func (h *Handlers) TournamentCreate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req tournamentCreateRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	t, err := h.Tournament.Create(tournament.Config{
		Mode:                      req.Mode,
		Format:                    tournament.Format(req.Format),
		MinParticipants:           req.MinParticipants,
		MaxParticipants:           req.MaxParticipants,
		RegistrationWindowSeconds: req.RegistrationWindowSeconds,
		CheckInWindowSeconds:      req.CheckInWindowSeconds,
	}, nowUnix())
	if err != nil {
		return "", err
	}
	return encode(t)
}

type tournamentIDRequest struct {
	TournamentID string `json:"tournament_id"`
}

func (h *Handlers) TournamentRegister(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req tournamentIDRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	t, err := h.Tournament.Standings(req.TournamentID)
	if err != nil {
		return "", err
	}
	rating, err := h.Rating.Rating(ctx, uid, t.Config.Mode)
	if err != nil {
		return "", err
	}
	if err := h.Tournament.Register(req.TournamentID, uid, rating); err != nil {
		return "", err
	}
	return encode(map[string]string{"status": "registered"})
}

func (h *Handlers) TournamentCheckIn(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req tournamentIDRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	if err := h.Tournament.CheckIn(req.TournamentID, uid); err != nil {
		return "", err
	}
	return encode(map[string]string{"status": "checked_in"})
}

func (h *Handlers) TournamentStandings(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req tournamentIDRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	t, err := h.Tournament.Standings(req.TournamentID)
	if err != nil {
		return "", err
	}
	return encode(t)
}

// --- Guild war API: declare/accept/join/leave ---

type warDeclareRequest struct {
	GuildA       string   `json:"guild_a"`
	GuildB       string   `json:"guild_b"`
	Flavor       string   `json:"flavor"`
	TerritoryIDs []string `json:"territory_ids"`
}

func (h *Handlers) WarDeclare(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req warDeclareRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	w, err := h.GuildWar.Declare(guildwar.Config{
		GuildA:       req.GuildA,
		GuildB:       req.GuildB,
		Flavor:       guildwar.Flavor(req.Flavor),
		TerritoryIDs: req.TerritoryIDs,
	}, nowUnix())
	if err != nil {
		return "", err
	}
	return encode(w)
}

type warIDRequest struct {
	WarID string `json:"war_id"`
}

func (h *Handlers) WarAccept(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req warIDRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	if err := h.GuildWar.Accept(req.WarID); err != nil {
		return "", err
	}
	return encode(map[string]string{"status": "accepted"})
}

type warJoinRequest struct {
	WarID   string `json:"war_id"`
	GuildID string `json:"guild_id"`
}

func (h *Handlers) WarJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req warJoinRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	if err := h.GuildWar.Join(ctx, req.WarID, uid, req.GuildID); err != nil {
		return "", err
	}
	return encode(map[string]string{"status": "joined"})
}

func (h *Handlers) WarLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req warIDRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	if err := h.GuildWar.Leave(ctx, req.WarID, uid); err != nil {
		return "", err
	}
	return encode(map[string]string{"status": "left"})
}

// WarStatus returns a war's live phase, scores, and outcome.
func (h *Handlers) WarStatus(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req warIDRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	w, err := h.GuildWar.War(req.WarID)
	if err != nil {
		return "", err
	}
	return encode(w)
}

// WarTerritories returns the territory registry snapshot: ownership,
// contested flags, and banked resource yields.
func (h *Handlers) WarTerritories(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return encode(h.GuildWar.Territories())
}

// WarReportKill credits a guild-war kill toward the killer's guild score.
func (h *Handlers) WarReportKill(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req warIDRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	if err := h.GuildWar.OnKill(req.WarID, uid); err != nil {
		return "", err
	}
	return encode(map[string]string{"status": "ok"})
}

// --- Open-world PvP API ---

type setFactionRequest struct {
	Faction string `json:"faction"`
}

func (h *Handlers) SetFaction(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req setFactionRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	h.OpenWorld.SetFaction(uid, req.Faction)
	return encode(map[string]string{"status": "ok"})
}

type updatePositionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ZoneUpdatePosition feeds a client's position into zone-membership
// resolution: entering/leaving PvP zones flags/unflags the player.
func (h *Handlers) ZoneUpdatePosition(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req updatePositionRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	h.OpenWorld.UpdatePosition(ctx, uid, openworld.Vec3{X: req.X, Y: req.Y, Z: req.Z}, nowUnix())
	return encode(map[string]string{"status": "ok"})
}

type canAttackRequest struct {
	TargetID string `json:"target_id"`
}

// ZoneCanAttack exposes the hostility gate so a client can check before
// swinging.
func (h *Handlers) ZoneCanAttack(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req canAttackRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	return encode(map[string]bool{"can_attack": h.OpenWorld.CanAttack(uid, req.TargetID)})
}

type reportKillRequest struct {
	VictimID string `json:"victim_id"`
}

// ZoneReportKill credits an open-world kill, re-checking the hostility
// gate server-side rather than trusting the caller's earlier CanAttack
// check.
func (h *Handlers) ZoneReportKill(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req reportKillRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	if !h.OpenWorld.CanAttack(uid, req.VictimID) {
		return "", coreerrors.ErrIneligible
	}
	honor, err := h.OpenWorld.OnPlayerKilled(ctx, nowUnix(), uid, req.VictimID)
	if err != nil {
		return "", err
	}
	return encode(map[string]int32{"honor": honor})
}

// --- Leaderboard / Ranking API ---

type leaderboardPageRequest struct {
	Mode   string `json:"mode"`
	Period string `json:"period"`
	Cursor string `json:"cursor"`
	Limit  int    `json:"limit"`
}

func (h *Handlers) LeaderboardPage(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req leaderboardPageRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	if req.Period == "" {
		req.Period = "current"
	}
	if req.Limit <= 0 {
		req.Limit = 50
	}
	page, err := h.Leaderboard.Page(ctx, leaderboard.Category(req.Mode, req.Period), req.Cursor, req.Limit)
	if err != nil {
		return "", err
	}
	return encode(page)
}

func (h *Handlers) LeaderboardPosition(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req leaderboardPageRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	if req.Period == "" {
		req.Period = "current"
	}
	pos, err := h.Leaderboard.Position(ctx, leaderboard.Category(req.Mode, req.Period), uid, 5)
	if err != nil {
		return "", err
	}
	return encode(pos)
}

// LeaderboardStats serves the derived-metrics read: tier distribution and
// rating averages over the top of a category.
func (h *Handlers) LeaderboardStats(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req leaderboardPageRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	if req.Period == "" {
		req.Period = "current"
	}
	if req.Limit <= 0 {
		req.Limit = 500
	}
	dist, err := h.Leaderboard.Stats(ctx, leaderboard.Category(req.Mode, req.Period), req.Limit)
	if err != nil {
		return "", err
	}
	return encode(dist)
}

type leaderboardSearchRequest struct {
	Mode     string `json:"mode"`
	Period   string `json:"period"`
	Username string `json:"username"`
}

// LeaderboardSearch resolves a username to its ranked row and neighborhood.
// Usernames are resolved through the account directory; players with no
// record in the category come back as unknown.
func (h *Handlers) LeaderboardSearch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req leaderboardSearchRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	if req.Username == "" {
		return "", coreerrors.ErrInvalidInput
	}
	if req.Period == "" {
		req.Period = "current"
	}
	users, err := nk.UsersGetUsername(ctx, []string{req.Username})
	if err != nil {
		return "", coreerrors.ErrCollaboratorCall
	}
	if len(users) == 0 {
		return "", coreerrors.ErrUnknownPlayer
	}
	pos, err := h.Leaderboard.Position(ctx, leaderboard.Category(req.Mode, req.Period), users[0].Id, 5)
	if err != nil {
		return "", err
	}
	return encode(pos)
}

type ratingGetRequest struct {
	Mode string `json:"mode"`
}

func (h *Handlers) RatingGet(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req ratingGetRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	rec, err := h.Rating.Get(ctx, uid, req.Mode)
	if err != nil {
		return "", err
	}
	return encode(map[string]interface{}{
		"rating":  rec.Current,
		"peak":    rec.Peak,
		"tier":    ratingengine.Tier(rec.Current),
		"matches": rec.Matches,
		"wins":    rec.Wins,
		"losses":  rec.Losses,
	})
}

// RatingTrend serves the progression analytics read: a regression slope
// over the caller's recent rating history.
func (h *Handlers) RatingTrend(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, err := userID(ctx)
	if err != nil {
		return "", err
	}
	var req ratingGetRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	trend, err := h.Rating.Trend(ctx, uid, req.Mode)
	if err != nil {
		return "", err
	}
	return encode(trend)
}

type startSeasonRequest struct {
	Mode string `json:"mode"`
}

// seasonRosterLimit bounds the roster pulled from the leaderboard for a
// season rollover; a mode with more concurrent ranked players than this
// needs a paginated rollover, not a bigger constant.
const seasonRosterLimit = 10000

// RatingStartSeason is an admin-invoked rollover: soft-reset every ranked
// player's rating toward the season baseline.
func (h *Handlers) RatingStartSeason(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req startSeasonRequest
	if err := decode(payload, &req); err != nil {
		return "", err
	}
	ids, err := h.Leaderboard.ModeRoster(ctx, req.Mode, seasonRosterLimit)
	if err != nil {
		return "", err
	}
	events, err := h.Rating.StartSeason(ctx, req.Mode, ids)
	if err != nil {
		return "", err
	}
	return encode(events)
}
