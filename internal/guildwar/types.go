// Package guildwar implements instanced and seamless guild-vs-guild war
// matches: declaration, phase timers, objective/territory scoring, and
// cleanup.
package guildwar

import "github.com/ironspire/pvpcore/internal/config"

// Flavor distinguishes the two guild war varieties.
// They share the declaration model and scoring but differ in location.
type Flavor string

const (
	FlavorInstanced Flavor = "instanced"
	FlavorSeamless  Flavor = "seamless"
)

// Phase is a guild war's position in its lifecycle.
type Phase string

const (
	PhaseDeclaration Phase = "declaration"
	PhasePreparation Phase = "preparation"
	PhaseActive      Phase = "active"
	PhaseResolution  Phase = "resolution"
	PhaseCleanup     Phase = "cleanup"
)

// Terminal reports whether the phase admits no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseCleanup
}

// Objective is a fixed capturable node in an instanced war's bounded
// arena. Proximity capture (AdvanceObjectiveCapture) runs only for
// instanced wars; seamless wars score through territory control instead.
type Objective struct {
	ID                string
	Position          config.Vec3
	PointValue        int32
	CaptureRadius     float64
	CaptureSeconds    float64 // proximity time required to flip control
	ControllingGuild  string
	ProximityProgress float64 // seconds of uncontested proximity accrued by the contesting guild
	ContestingGuild   string
}

// Participant is one player's membership in a war.
type Participant struct {
	PlayerID    string
	GuildID     string
	OriginalPos config.Vec3 // instanced wars only: position to restore on exit
	InInstance  bool
}

// War is one declared guild-vs-guild contest. Score and objective state
// are owned exclusively by this struct;
// external systems hold only the war's ID.
type War struct {
	ID     string
	Flavor Flavor

	GuildA string
	GuildB string

	Phase Phase

	DeclaredAtUnix     int64
	PreparationEndUnix int64
	ActiveEndUnix      int64
	ResolutionEndUnix  int64

	ScoreA int32
	ScoreB int32

	Objectives []*Objective

	// Participants keyed by playerID, populated at Join time for both
	// flavors. For seamless wars, only participants inside a claimed
	// territory count toward control on a given tick.
	Participants map[string]*Participant

	// territoryAccrualSeconds holds, per guild, the control-seconds accrued
	// under a strict headcount majority in contested territory and not yet
	// converted into points_per_territory_minute (seamless only).
	territoryAccrualSeconds map[string]float64

	// TerritoryIDs carried from the declaration config (seamless only).
	TerritoryIDs []string

	Winner   string // guildID, or "" for a draw
	Draw     bool
	Accepted bool
}

// Config seeds a new war declaration.
type Config struct {
	GuildA     string
	GuildB     string
	Flavor     Flavor
	Objectives []*Objective

	// TerritoryIDs names the territories a seamless war contests. Ignored
	// for instanced wars.
	TerritoryIDs []string
}

func newWar(id string, cfg Config, now int64, wc config.WarConfig) *War {
	return &War{
		ID:                      id,
		Flavor:                  cfg.Flavor,
		GuildA:                  cfg.GuildA,
		GuildB:                  cfg.GuildB,
		Phase:                   PhaseDeclaration,
		DeclaredAtUnix:          now,
		Objectives:              cfg.Objectives,
		TerritoryIDs:            cfg.TerritoryIDs,
		Participants:            make(map[string]*Participant),
		territoryAccrualSeconds: make(map[string]float64),
	}
}

// declarationDeadline is when an unaccepted declaration expires.
func declarationDeadline(w *War, wc config.WarConfig) int64 {
	return w.DeclaredAtUnix + wc.DeclarationWindowSeconds
}

func opposingGuild(w *War, guild string) string {
	if guild == w.GuildA {
		return w.GuildB
	}
	return w.GuildA
}

func (w *War) allObjectivesHeldBy(guild string) bool {
	if len(w.Objectives) == 0 {
		return false
	}
	for _, o := range w.Objectives {
		if o.ControllingGuild != guild {
			return false
		}
	}
	return true
}
