package guildwar

import "github.com/ironspire/pvpcore/internal/config"

// Territory is one world region a seamless war can contest. Territories are
// a shared read-mostly registry owned by the guild war service; mutation
// (ownership change, claims, payout) funnels through it.
type Territory struct {
	ID                   string
	Name                 string
	Center               config.Vec3
	Radius               float64
	Owner                string // guildID; "" while unowned
	ResourceYieldPerHour int64

	// AccruedResources is the owner's banked, not-yet-collected yield.
	// Accrual is skipped entirely while the territory is contested.
	AccruedResources int64

	lastYieldUnix     int64
	yieldClockStarted bool

	// claims holds the IDs of wars currently contesting this territory.
	// A territory with a non-empty claim set is contested.
	claims map[string]bool
}

func newTerritoryFromConfig(c config.TerritoryConfig) *Territory {
	return &Territory{
		ID:                   c.ID,
		Name:                 c.Name,
		Center:               c.Center,
		Radius:               c.Radius,
		Owner:                c.Owner,
		ResourceYieldPerHour: c.ResourceYieldPerHour,
		claims:               make(map[string]bool),
	}
}

// Contested reports whether any active war claims this territory.
func (t *Territory) Contested() bool {
	return len(t.claims) > 0
}

func (t *Territory) containsPos(pos config.Vec3) bool {
	return distance(pos, t.Center) <= t.Radius
}

const resourcePayoutIntervalSeconds = 3600

// accrueYield banks one payout interval's resources for the owner. No-op
// while contested or unowned; the interval clock still advances so a
// contested hour is forfeited, not deferred.
func (t *Territory) accrueYield(now int64) {
	if !t.yieldClockStarted {
		t.lastYieldUnix = now
		t.yieldClockStarted = true
		return
	}
	for now-t.lastYieldUnix >= resourcePayoutIntervalSeconds {
		t.lastYieldUnix += resourcePayoutIntervalSeconds
		if t.Owner == "" || t.Contested() {
			continue
		}
		t.AccruedResources += t.ResourceYieldPerHour
	}
}
