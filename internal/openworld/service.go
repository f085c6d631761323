package openworld

import (
	"context"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/coreerrors"
	"github.com/ironspire/pvpcore/notify"
)

// hostilityTable names which factions are mutually hostile in a
// faction-based zone. A nil/missing entry defaults to hostile (the common
// case for a two-faction PvP server); same-faction is always non-hostile.
var hostilityTable = map[[2]string]bool{}

// PlayerStatus is one player's open-world PvP state.
type PlayerStatus struct {
	PlayerID       string
	Faction        string
	ZoneID         string
	lastZoneID     string
	Flagged        bool
	FlaggedAtUnix  int64
	LastActionUnix int64
	Kills          int32
	Streak         int32
	Honor          int64
	lastRefreshUnix int64
}

// Service owns the zone registry and per-player open-world PvP state
// exclusively: zones are shared read-mostly registries, but mutation is
// funneled through this component.
type Service struct {
	nk     runtime.NakamaModule
	logger runtime.Logger

	mu                  sync.Mutex
	order               []string
	zones               map[string]*Zone
	players             map[string]*PlayerStatus
	killHistory         map[string]*killRecord // key: killerID + "|" + victimID
	lastCaptureTickUnix int64
}

// New constructs the open-world service, seeding the zone registry from
// the embedded configuration.
func New(nk runtime.NakamaModule, logger runtime.Logger) *Service {
	s := &Service{
		nk:          nk,
		logger:      logger,
		zones:       make(map[string]*Zone),
		players:     make(map[string]*PlayerStatus),
		killHistory: make(map[string]*killRecord),
	}
	for _, zc := range config.Get().Zones {
		s.order = append(s.order, zc.ID)
		s.zones[zc.ID] = newZoneFromConfig(zc)
	}
	return s
}

// RegisterZone adds or replaces a zone at runtime.
func (s *Service) RegisterZone(z *Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.zones[z.ID]; !exists {
		s.order = append(s.order, z.ID)
	}
	s.zones[z.ID] = z
}

// SetFaction assigns a player's faction.
func (s *Service) SetFaction(playerID, faction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerLocked(playerID)
	p.Faction = faction
}

func (s *Service) playerLocked(playerID string) *PlayerStatus {
	p, ok := s.players[playerID]
	if !ok {
		p = &PlayerStatus{PlayerID: playerID}
		s.players[playerID] = p
	}
	return p
}

// CanAttack implements the hostility rule: both flagged, in a
// PvP zone, and (different factions hostile per faction table) or the zone
// is free-for-all. Same-faction attacks in standard zones are denied.
func (s *Service) CanAttack(a, b string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pa, okA := s.players[a]
	pb, okB := s.players[b]
	if !okA || !okB || !pa.Flagged || !pb.Flagged {
		return false
	}
	if pa.ZoneID == "" || pa.ZoneID != pb.ZoneID {
		return false
	}
	zone := s.zones[pa.ZoneID]
	if zone == nil || !zone.PvPEnabled {
		return false
	}
	if zone.FreeForAll {
		return true
	}
	if pa.Faction == pb.Faction {
		return false
	}
	if hostile, ok := hostilityTable[[2]string{pa.Faction, pb.Faction}]; ok {
		return hostile
	}
	return true
}

// OnPlayerKilled updates kill statistics and awards diminishing-returns
// honor. Kill statistics update unconditionally on
// sanctioned kills (the caller is expected to have already gated the kill
// through CanAttack).
func (s *Service) OnPlayerKilled(ctx context.Context, now int64, killerID, victimID string) (int32, error) {
	s.mu.Lock()
	killer := s.playerLocked(killerID)
	killer.Kills++
	killer.Streak++
	killer.LastActionUnix = now
	if victim, ok := s.players[victimID]; ok {
		victim.Streak = 0
	}

	key := killerID + "|" + victimID
	rec, ok := s.killHistory[key]
	if !ok {
		rec = &killRecord{}
		s.killHistory[key] = rec
	}
	rec.timestampsUnix = append(rec.timestampsUnix, now)
	count := rec.recentKillCount(now, config.Get().HonorDRWindowSeconds)

	inEnemyTerritory := false
	if zone := s.zones[killer.ZoneID]; zone != nil {
		inEnemyTerritory = zone.ControllingFaction != "" && zone.ControllingFaction != killer.Faction
	}
	honor := Honor(config.Get().HonorBaseValue, count, inEnemyTerritory)
	killer.Honor += int64(honor)
	s.mu.Unlock()

	if err := notify.SendHonorGain(ctx, s.nk, killerID, notify.HonorGainPayload{VictimID: victimID, Honor: honor}); err != nil {
		return honor, coreerrors.ErrNotifyFailed
	}
	return honor, nil
}

// Tick advances flag expiry every call and capture progress on its own
// tick interval. A player who has left every
// zone keeps their flag for FlagExpirySeconds (read off their last known
// zone), counted from leaving or from their latest kill, whichever is
// later, before it drops.
func (s *Service) Tick(ctx context.Context, now int64) {
	s.mu.Lock()

	cfg := config.Get()
	var unflagged []string
	for _, p := range s.players {
		if p.Flagged && p.ZoneID == "" {
			var expiry int64 = defaultFlagExpirySeconds
			if z := s.zones[p.lastZoneID]; z != nil && z.FlagExpirySeconds > 0 {
				expiry = z.FlagExpirySeconds
			}
			since := p.FlaggedAtUnix
			if p.LastActionUnix > since {
				since = p.LastActionUnix
			}
			if now-since >= expiry {
				p.Flagged = false
				unflagged = append(unflagged, p.PlayerID)
			}
		}
	}

	if now-s.lastCaptureTickUnix >= cfg.CaptureTickSeconds {
		dt := float64(cfg.CaptureTickSeconds)
		if s.lastCaptureTickUnix != 0 {
			dt = float64(now - s.lastCaptureTickUnix)
		}
		s.lastCaptureTickUnix = now
		for _, z := range s.zones {
			advanceCapture(z, dt)
		}
	}
	s.mu.Unlock()

	for _, pid := range unflagged {
		_ = notify.SendZoneFlag(ctx, s.nk, pid, notify.ZoneFlagPayload{Flagged: false})
	}
}

const defaultFlagExpirySeconds = 300

// UpdatePosition resolves a player's current zone from their world
// position and applies enter/leave flagging transitions: entering a PvP
// zone flags the player; leaving starts the flag expiry timer. Throttled
// to at most once per ZoneMembershipRefreshSeconds per player, since
// clients stream position far more often than zone membership needs
// re-resolving.
func (s *Service) UpdatePosition(ctx context.Context, playerID string, pos Vec3, now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerLocked(playerID)
	if p.lastRefreshUnix != 0 && now-p.lastRefreshUnix < config.Get().ZoneMembershipRefreshSeconds {
		return
	}
	p.lastRefreshUnix = now
	zone := resolveZone(s.order, s.zones, pos)

	prevZoneID := p.ZoneID
	if zone == nil {
		if prevZoneID != "" {
			p.ZoneID = ""
			p.lastZoneID = prevZoneID
			p.LastActionUnix = now
			if z := s.zones[prevZoneID]; z != nil {
				delete(z.CapturingPlayers, playerID)
			}
		}
		return
	}

	if prevZoneID != "" && prevZoneID != zone.ID {
		if z := s.zones[prevZoneID]; z != nil {
			delete(z.CapturingPlayers, playerID)
		}
	}
	p.ZoneID = zone.ID
	p.lastZoneID = zone.ID
	if zone.PvPEnabled && !p.Flagged {
		p.Flagged = true
		p.FlaggedAtUnix = now
		_ = notify.SendZoneFlag(ctx, s.nk, playerID, notify.ZoneFlagPayload{ZoneID: zone.ID, Flagged: true})
	}
	p.LastActionUnix = now
	if p.Faction != "" {
		zone.CapturingPlayers[playerID] = p.Faction
	}
}
