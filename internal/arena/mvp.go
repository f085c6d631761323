package arena

// selectMVP picks the match MVP deterministically:
// maximize CombatStats.MVPScore(), ties broken by higher kills, then lower
// deaths, then lower PlayerId (lexicographic, since PlayerId is opaque).
func selectMVP(players map[string]*Player) (playerID, reason string) {
	var best *Player
	for _, p := range players {
		if best == nil || better(p, best) {
			best = p
		}
	}
	if best == nil {
		return "", ""
	}
	return best.PlayerID, mvpReason(best.Stats)
}

func better(a, b *Player) bool {
	sa, sb := a.Stats.MVPScore(), b.Stats.MVPScore()
	if sa != sb {
		return sa > sb
	}
	if a.Stats.Kills != b.Stats.Kills {
		return a.Stats.Kills > b.Stats.Kills
	}
	if a.Stats.Deaths != b.Stats.Deaths {
		return a.Stats.Deaths < b.Stats.Deaths
	}
	return a.PlayerID < b.PlayerID
}

// mvpReason derives the dominant contributor label: most-kills / top-healer
// / best-overall, a label the scoring formula alone does not carry.
func mvpReason(s CombatStats) string {
	killComponent := float64(s.Kills)
	healComponent := float64(s.Healing) / 2000
	switch {
	case s.Kills > 0 && killComponent >= healComponent:
		return "most_kills"
	case s.Healing > 0 && healComponent > killComponent:
		return "top_healer"
	default:
		return "best_overall"
	}
}
