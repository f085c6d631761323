package tournament

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// seedOrder returns the standard single-elimination seed pairing order for
// a bracket of size `size` (a power of two): seed 1 meets seed size, 2
// meets size-1, and so on, with top seeds only meeting in late rounds
// Implemented by recursively mirroring the
// previous round's pairing order, the standard construction.
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		total := len(order)*2 + 1
		for _, s := range order {
			next = append(next, s, total-s)
		}
		order = next
	}
	return order
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Pow(2, math.Ceil(math.Log2(float64(n)))))
}

// seedParticipants returns participants sorted by rating descending, with
// seed numbers 1..N assigned in that order.
func seedParticipants(participants []*Participant) []*Participant {
	sorted := append([]*Participant(nil), participants...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Rating != sorted[j].Rating {
			return sorted[i].Rating > sorted[j].Rating
		}
		return sorted[i].PlayerID < sorted[j].PlayerID
	})
	for i, p := range sorted {
		p.Seed = i + 1
	}
	return sorted
}

// generateSingleElimination builds every round's bracket slots up front,
// padding with byes if N is not a power of 2, and wires each match's
// winner-feeds-forward pointer, so a winner is pushed into exactly one
// downstream bracket slot.
func generateSingleElimination(participants []*Participant) []*BracketMatch {
	seeded := seedParticipants(participants)
	size := nextPowerOfTwo(len(seeded))
	order := seedOrder(size)

	bySeed := make(map[int]*Participant, len(seeded))
	for _, p := range seeded {
		bySeed[p.Seed] = p
	}

	rounds := int(math.Ceil(math.Log2(float64(size))))
	if size == 1 {
		rounds = 0
	}

	var matches []*BracketMatch
	firstRoundCount := size / 2
	for pos := 0; pos < firstRoundCount; pos++ {
		s1, s2 := order[pos*2], order[pos*2+1]
		m := &BracketMatch{Round: 1, Position: pos, State: MatchScheduled}
		if p, ok := bySeed[s1]; ok {
			m.P1 = p.PlayerID
		}
		if p, ok := bySeed[s2]; ok {
			m.P2 = p.PlayerID
		}
		resolveBye(m)
		matches = append(matches, m)
	}

	perRound := firstRoundCount
	for round := 2; round <= rounds; round++ {
		perRound /= 2
		for pos := 0; pos < perRound; pos++ {
			matches = append(matches, &BracketMatch{Round: round, Position: pos, State: MatchScheduled})
		}
	}

	propagateByeWinners(matches, rounds)
	return matches
}

// resolveBye auto-completes a match with only one real participant,
// padding any unpaired seed with a bye.
func resolveBye(m *BracketMatch) {
	switch {
	case m.P1 != "" && m.P2 == "":
		m.Winner = m.P1
		m.State = MatchCompleted
	case m.P1 == "" && m.P2 != "":
		m.Winner = m.P2
		m.State = MatchCompleted
	case m.P1 == "" && m.P2 == "":
		m.State = MatchCompleted
	default:
		m.State = MatchReady
	}
}

// propagateByeWinners pushes a first-round bye's automatic winner into
// round 2 immediately so a round-2 match does not wait on a match that will
// never be played.
func propagateByeWinners(matches []*BracketMatch, rounds int) {
	byRoundPos := make(map[[2]int]*BracketMatch, len(matches))
	for _, m := range matches {
		byRoundPos[[2]int{m.Round, m.Position}] = m
	}
	for round := 1; round < rounds; round++ {
		perRound := 0
		for _, m := range matches {
			if m.Round == round {
				perRound++
			}
		}
		for pos := 0; pos < perRound; pos++ {
			m := byRoundPos[[2]int{round, pos}]
			if m == nil || m.State != MatchCompleted || m.Winner == "" {
				continue
			}
			next := byRoundPos[[2]int{round + 1, pos / 2}]
			if next == nil {
				continue
			}
			if pos%2 == 0 {
				next.P1 = m.Winner
			} else {
				next.P2 = m.Winner
			}
			resolveBye(next)
		}
	}
}

// AdvanceSingleElimination pushes a completed match's winner into its single
// downstream slot (round+1, position/2) of an elimination tree; round-robin
// and Swiss slots have no such slot. Loser routing for double elimination is
// done by advanceDoubleElimination, not here. Returns the matches that
// became Ready as a result.
func AdvanceSingleElimination(matches []*BracketMatch, completed *BracketMatch) []*BracketMatch {
	if completed.Winner == "" {
		return nil
	}
	nextPos := completed.Position / 2
	var newlyReady []*BracketMatch
	for _, m := range matches {
		if m.Round == completed.Round+1 && m.Position == nextPos {
			if completed.Position%2 == 0 {
				m.P1 = completed.Winner
			} else {
				m.P2 = completed.Winner
			}
			if m.P1 != "" && m.P2 != "" {
				m.State = MatchReady
				newlyReady = append(newlyReady, m)
			}
		}
	}
	return newlyReady
}

// generateDoubleElimination seeds a winners bracket identical to single
// elimination. The losers bracket itself is not laid out
// structurally up front: pairing losers-bracket survivors round by round
// ahead of time requires knowing which winners-round losers will arrive in
// what order, which is exactly what advanceDoubleElimination discovers as
// winners matches complete. Instead losers are routed through a FIFO
// (Tournament.LosersQueue) as their winners-bracket match finishes, and a
// losers-bracket match slot is appended to Bracket as soon as two losers are
// waiting — "each winner-bracket round's losers fall into the corresponding
// losers-bracket round" is satisfied because a round's losers only ever
// arrive after the previous round's have already been paired off.
func generateDoubleElimination(participants []*Participant) []*BracketMatch {
	winners := generateSingleElimination(participants)
	for _, m := range winners {
		m.Bracket = "winners"
	}
	return winners
}

// generateRoundRobin schedules every unordered pair via the circle method
// into N-1 rounds (N rounds with a bye slot if N is odd), guaranteeing
// round-robin completeness: every unordered pair meets exactly once.
func generateRoundRobin(participants []*Participant) []*BracketMatch {
	ids := make([]string, 0, len(participants))
	for _, p := range seedParticipants(participants) {
		ids = append(ids, p.PlayerID)
	}
	if len(ids)%2 == 1 {
		ids = append(ids, "") // bye slot
	}
	n := len(ids)
	rounds := n - 1
	if rounds < 1 {
		rounds = 1
	}

	var matches []*BracketMatch
	fixed := ids[0]
	rotating := append([]string(nil), ids[1:]...)

	for round := 0; round < rounds; round++ {
		roundIDs := append([]string{fixed}, rotating...)
		for i := 0; i < n/2; i++ {
			p1 := roundIDs[i]
			p2 := roundIDs[n-1-i]
			m := &BracketMatch{Round: round + 1, Position: i, State: MatchScheduled}
			if p1 != "" {
				m.P1 = p1
			}
			if p2 != "" {
				m.P2 = p2
			}
			resolveBye(m)
			matches = append(matches, m)
		}
		// Rotate all but the fixed first element.
		rotating = append(rotating[len(rotating)-1:], rotating[:len(rotating)-1]...)
	}
	return matches
}

// generateSwissRound generates only the next round: participants are
// ordered score-descending (seed breaks ties within a score group) and
// paired greedily with the first lower-ordered opponent they have not
// already faced. An unpairable player falls through to the next score
// group automatically, which subsumes the odd-group carry-down; a rematch
// is only produced when every remaining opponent has been played. The
// final unpaired player of an odd field receives a bye. `scores` maps
// participant id to current score; `played` is the set of pairs already
// played, keyed "a|b" with a<b.
func generateSwissRound(participants []*Participant, scores map[string]int, played map[string]bool, round int) []*BracketMatch {
	sorted := append([]*Participant(nil), participants...)
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := scores[sorted[i].PlayerID], scores[sorted[j].PlayerID]
		if si != sj {
			return si > sj
		}
		return sorted[i].Seed < sorted[j].Seed
	})

	used := make(map[string]bool, len(sorted))
	var matches []*BracketMatch
	pos := 0
	for i, a := range sorted {
		if used[a.PlayerID] {
			continue
		}
		opp := lo.FindOrElse(sorted[i+1:], nil, func(b *Participant) bool {
			return !used[b.PlayerID] && !alreadyPlayed(played, a.PlayerID, b.PlayerID)
		})
		if opp == nil {
			// No-rematch preference could not be honored; take the next
			// available opponent anyway rather than stall the round.
			opp = lo.FindOrElse(sorted[i+1:], nil, func(b *Participant) bool { return !used[b.PlayerID] })
		}
		if opp == nil {
			// Odd field: the last player standing receives a bye.
			matches = append(matches, &BracketMatch{Round: round, Position: pos, P1: a.PlayerID, State: MatchCompleted, Winner: a.PlayerID})
			break
		}
		used[a.PlayerID] = true
		used[opp.PlayerID] = true
		matches = append(matches, &BracketMatch{Round: round, Position: pos, P1: a.PlayerID, P2: opp.PlayerID, State: MatchReady})
		pos++
	}
	return matches
}

// swissRoundCount is the standard Swiss round count for N participants:
// enough rounds to separate a unique leader, ceil(log2(N)).
func swissRoundCount(n int) int {
	if n <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(n))))
}

func alreadyPlayed(played map[string]bool, a, b string) bool {
	if a > b {
		a, b = b, a
	}
	return played[a+"|"+b]
}

// PairKey returns the canonical key used in the `played` set.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
