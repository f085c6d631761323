package matchmaker

import (
	"sort"

	"github.com/samber/lo"

	"github.com/ironspire/pvpcore/internal/config"
)

// compatible implements the pairwise compatibility predicate:
// rating windows overlap, neither blocks the other, neither is in the
// other's recent-opponent window, and ping/region constraints hold.
func compatible(mode config.ModeConfig, a, b Entry, now int64) bool {
	wa := Window(mode, a.EnqueuedAtUnix, now)
	wb := Window(mode, b.EnqueuedAtUnix, now)
	limit := wa
	if wb < limit {
		limit = wb
	}
	diff := a.Rating - b.Rating
	if diff < 0 {
		diff = -diff
	}
	if diff > limit {
		return false
	}
	if lo.Contains(a.Blocked, b.PlayerID) || lo.Contains(b.Blocked, a.PlayerID) {
		return false
	}
	if lo.Contains(a.RecentOpponents, b.PlayerID) || lo.Contains(b.RecentOpponents, a.PlayerID) {
		return false
	}
	if !mode.CrossRegion && a.Region != "" && b.Region != "" && a.Region != b.Region {
		return false
	}
	if a.PingMs > mode.MaxLatencyMs || b.PingMs > mode.MaxLatencyMs {
		return false
	}
	return true
}

// collectCandidates anchors on queue[anchor] and grows a compatible
// candidate set from the rest of the queue in FIFO order until it has
// enough entries to fill every team slot. A failed anchor is never
// retried this tick; the caller advances to the next one.
func collectCandidates(mode config.ModeConfig, queue []Entry, anchor int, now int64) ([]Entry, bool) {
	need := mode.TeamSize * mode.TeamCount
	if anchor >= len(queue) {
		return nil, false
	}
	candidates := []Entry{queue[anchor]}
	for i, e := range queue {
		if i == anchor {
			continue
		}
		if len(candidates) >= need {
			break
		}
		allCompatible := true
		for _, c := range candidates {
			if !compatible(mode, c, e, now) {
				allCompatible = false
				break
			}
		}
		if allCompatible {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) < need {
		return nil, false
	}
	return candidates[:need], true
}

// snakeSeed distributes a rating-sorted candidate list across teamCount
// teams in a 1-2-...-N-N-...-2-1 snake-seeding pattern,
// minimizing the team-average rating gap.
func snakeSeed(candidates []Entry, teamSize, teamCount int) [][]Entry {
	sorted := append([]Entry(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rating > sorted[j].Rating })

	teams := make([][]Entry, teamCount)
	idx := 0
	forward := true
	for len(sorted) > 0 && idx < len(sorted) {
		order := make([]int, teamCount)
		for i := range order {
			order[i] = i
		}
		if !forward {
			for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
				order[i], order[j] = order[j], order[i]
			}
		}
		for _, t := range order {
			if idx >= len(sorted) {
				break
			}
			if len(teams[t]) < teamSize {
				teams[t] = append(teams[t], sorted[idx])
				idx++
			}
		}
		forward = !forward
	}
	return teams
}

// teamAverage returns the mean rating of a team.
func teamAverage(team []Entry) float64 {
	if len(team) == 0 {
		return 0
	}
	sum := int64(0)
	for _, e := range team {
		sum += int64(e.Rating)
	}
	return float64(sum) / float64(len(team))
}
