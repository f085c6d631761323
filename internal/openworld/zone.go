// Package openworld implements zone-based territorial PvP: membership,
// flagging, capture progress, and honor accounting.
package openworld

import (
	"github.com/ironspire/pvpcore/internal/config"
)

// Vec3 mirrors config.Vec3 so callers needn't import the config package
// just to supply a player position.
type Vec3 = config.Vec3

// Zone is the live, mutable runtime view of a configured zone, matching
// the live Zone entity. Only one controlling_faction is active at a
// time; capture_progress sign encodes which side is making headway.
type Zone struct {
	ID                 string
	Name               string
	Min, Max           Vec3
	PvPEnabled         bool
	FactionBased       bool
	FreeForAll         bool
	ControllingFaction string
	CaptureProgress    float64 // clamped to [-100, 100]
	CapturingPlayers   map[string]string // playerID -> faction
	CaptureRate        float64
	CaptureThreshold   float64
	FlagExpirySeconds  int64
}

func newZoneFromConfig(c config.ZoneConfig) *Zone {
	return &Zone{
		ID:                c.ID,
		Name:              c.Name,
		Min:               c.Min,
		Max:               c.Max,
		PvPEnabled:        c.PvPEnabled,
		FactionBased:      c.FactionBased,
		FreeForAll:        c.FreeForAll,
		CapturingPlayers:  make(map[string]string),
		CaptureRate:       c.CaptureRatePerSecondPerPlayer,
		CaptureThreshold:  c.CaptureThreshold,
		FlagExpirySeconds: c.FlagExpirySeconds,
	}
}

func contains(z *Zone, pos Vec3) bool {
	return pos.X >= z.Min.X && pos.X <= z.Max.X &&
		pos.Y >= z.Min.Y && pos.Y <= z.Max.Y &&
		pos.Z >= z.Min.Z && pos.Z <= z.Max.Z
}

// resolveZone returns the first registered zone (in registration order)
// whose AABB contains pos, following the "resolved by first-match
// against registered AABBs" rule. A player is in at most one zone.
func resolveZone(order []string, zones map[string]*Zone, pos Vec3) *Zone {
	for _, id := range order {
		z := zones[id]
		if z != nil && contains(z, pos) {
			return z
		}
	}
	return nil
}
