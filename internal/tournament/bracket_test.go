package tournament

import "testing"

func participantsWithRatings(ratings []int32) []*Participant {
	out := make([]*Participant, len(ratings))
	for i, r := range ratings {
		out[i] = &Participant{PlayerID: letter(i), Rating: r}
	}
	return out
}

func letter(i int) string {
	return string(rune('a' + i))
}

// TestSingleEliminationEight covers 8 seeded entries
// produce 3 rounds with 4+2+1 = 7 matches; seed 1 meets 8, 4 meets 5,
// 3 meets 6, 2 meets 7 in round 1.
func TestSingleEliminationEight(t *testing.T) {
	ratings := []int32{2400, 2300, 2200, 2100, 2000, 1900, 1800, 1700}
	matches := generateSingleElimination(participantsWithRatings(ratings))

	if len(matches) != 7 {
		t.Fatalf("expected 7 matches, got %d", len(matches))
	}
	round1 := 0
	for _, m := range matches {
		if m.Round == 1 {
			round1++
		}
	}
	if round1 != 4 {
		t.Fatalf("expected 4 round-1 matches, got %d", round1)
	}

	bySeedPair := map[[2]string]bool{}
	for _, m := range matches {
		if m.Round == 1 {
			bySeedPair[[2]string{m.P1, m.P2}] = true
		}
	}
	want := [][2]string{{"a", "h"}, {"d", "e"}, {"c", "f"}, {"b", "g"}}
	for _, pair := range want {
		if !bySeedPair[pair] {
			t.Fatalf("expected round-1 pairing %v not found among %v", pair, bySeedPair)
		}
	}
}

func TestSingleEliminationWithByes(t *testing.T) {
	ratings := []int32{2000, 1900, 1800, 1700, 1600}
	matches := generateSingleElimination(participantsWithRatings(ratings))
	var round1Byes int
	for _, m := range matches {
		if m.Round == 1 && (m.P1 == "" || m.P2 == "") {
			round1Byes++
		}
	}
	if round1Byes == 0 {
		t.Fatalf("expected at least one bye for 5 participants padded to 8")
	}
}

// TestRoundRobinCompleteness checks that every unordered pair
// appears in exactly one match and that all N*(N-1)/2 pairs are present.
func TestRoundRobinCompleteness(t *testing.T) {
	ratings := []int32{2000, 1900, 1800, 1700, 1600}
	participants := participantsWithRatings(ratings)
	matches := generateRoundRobin(participants)

	seen := map[string]int{}
	for _, m := range matches {
		if m.P1 == "" || m.P2 == "" {
			continue
		}
		seen[PairKey(m.P1, m.P2)]++
	}
	n := len(ratings)
	wantPairs := n * (n - 1) / 2
	if len(seen) != wantPairs {
		t.Fatalf("expected %d distinct pairs, got %d", wantPairs, len(seen))
	}
	for pair, count := range seen {
		if count != 1 {
			t.Fatalf("pair %s played %d times, want 1", pair, count)
		}
	}
}

func TestPairKeyCanonical(t *testing.T) {
	if PairKey("a", "b") != PairKey("b", "a") {
		t.Fatalf("PairKey should be order-independent")
	}
}

func TestSwissRoundCount(t *testing.T) {
	cases := []struct{ n, want int }{
		{1, 0}, {2, 1}, {4, 2}, {5, 3}, {8, 3}, {16, 4},
	}
	for _, c := range cases {
		if got := swissRoundCount(c.n); got != c.want {
			t.Fatalf("swissRoundCount(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

// TestSwissPairingAvoidsRematch checks the no-rematch preference: with a
// prior a-b game recorded, the next round pairs across that history.
func TestSwissPairingAvoidsRematch(t *testing.T) {
	participants := participantsWithRatings([]int32{2000, 1900, 1800, 1700})
	scores := map[string]int{"a": 1, "b": 1, "c": 0, "d": 0}
	played := map[string]bool{PairKey("a", "b"): true, PairKey("c", "d"): true}

	matches := generateSwissRound(participants, scores, played, 2)
	if len(matches) != 2 {
		t.Fatalf("expected 2 round-2 matches, got %d", len(matches))
	}
	for _, m := range matches {
		if played[PairKey(m.P1, m.P2)] {
			t.Fatalf("rematch %s vs %s despite available alternatives", m.P1, m.P2)
		}
	}
}

// TestSwissOddGroupCarryDown checks that an odd score group carries its
// unpaired player down into the next group rather than handing out a bye
// while lower groups still have players.
func TestSwissOddGroupCarryDown(t *testing.T) {
	participants := participantsWithRatings([]int32{2000, 1900, 1800, 1700, 1600, 1500})
	scores := map[string]int{"a": 1, "b": 1, "c": 1, "d": 0, "e": 0, "f": 0}

	matches := generateSwissRound(participants, scores, map[string]bool{}, 2)
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches for 6 players, got %d", len(matches))
	}
	for _, m := range matches {
		if m.P2 == "" {
			t.Fatalf("unexpected bye with an even participant count: %+v", m)
		}
	}
}
