package guildwar

import "github.com/ironspire/pvpcore/internal/config"

// IntegrateTerritoryControl implements the seamless-war half of guild war
// scoring: territory control integrates per second based on net-presence
// headcount. presentGuilds lists, for the current tick, the guildID of
// every participant of either warring guild physically inside a
// contested territory (only members of the two warring guilds inside
// contested territories participate). The guild with a
// strict headcount majority accrues control-seconds; ties accrue nothing.
// Every full minute of accrued control awards points_per_territory_minute.
func IntegrateTerritoryControl(w *War, presentGuilds []string, dt float64, wc config.WarConfig) {
	if w.Phase != PhaseActive {
		return
	}
	countA, countB := 0, 0
	for _, g := range presentGuilds {
		switch g {
		case w.GuildA:
			countA++
		case w.GuildB:
			countB++
		}
	}

	var controller string
	switch {
	case countA > countB:
		controller = w.GuildA
	case countB > countA:
		controller = w.GuildB
	default:
		return
	}

	w.territoryAccrualSeconds[controller] += dt
	for w.territoryAccrualSeconds[controller] >= 60 {
		w.territoryAccrualSeconds[controller] -= 60
		addScore(w, controller, wc.PointsPerTerritoryMinute)
	}
}
