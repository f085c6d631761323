package matchmaker

import (
	"context"
	"testing"

	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/coreerrors"
)

func mustLoadConfig(t *testing.T) {
	t.Helper()
	if err := config.Load(); err != nil {
		t.Fatalf("config.Load() error: %v", err)
	}
}

// TestThreeVThreeFormation covers six players at ratings
// [1500,1520,1480,1510,1495,1505] for 3v3 should form a match within one
// tick with team averages differing by <= 15.
func TestThreeVThreeFormation(t *testing.T) {
	mustLoadConfig(t)
	s := New(nil)
	ratings := []int32{1500, 1520, 1480, 1510, 1495, 1505}
	for i, r := range ratings {
		err := s.Enqueue("3v3", Entry{PlayerID: playerID(i), Rating: r}, 0)
		if err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}
	}
	events := s.Tick(context.Background(), 0)
	var found *FormedMatch
	for _, e := range events {
		if e.Kind == "match_found" {
			found = e.Match
		}
	}
	if found == nil {
		t.Fatalf("expected a match_found event, got none: %+v", events)
	}
	if len(found.Teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(found.Teams))
	}
	a, b := teamAverage(found.Teams[0]), teamAverage(found.Teams[1])
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if diff > 15 {
		t.Fatalf("team average gap %v exceeds 15", diff)
	}
}

// TestWindowExpansion covers 1500 vs 2000 in 1v1 with
// initial=100, growth=50/s, max=500 should not match at t=0, and should
// become compatible at t>=8s.
func TestWindowExpansion(t *testing.T) {
	mustLoadConfig(t)
	mode, _ := config.Mode("1v1")
	mode.InitialRatingWindow = 100
	mode.MaxRatingWindow = 500
	mode.WindowGrowthPerSecond = 50

	a := Entry{PlayerID: "a", Rating: 1500, EnqueuedAtUnix: 0}
	b := Entry{PlayerID: "b", Rating: 2000, EnqueuedAtUnix: 0}

	if compatible(mode, a, b, 0) {
		t.Fatalf("expected entries incompatible at t=0")
	}
	if compatible(mode, a, b, 7) {
		t.Fatalf("expected entries still incompatible at t=7")
	}
	if !compatible(mode, a, b, 8) {
		t.Fatalf("expected entries compatible at t=8")
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	mustLoadConfig(t)
	s := New(nil)
	if err := s.Enqueue("1v1", Entry{PlayerID: "p1", Rating: 1500}, 0); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}
	if err := s.Leave("p1"); err != nil {
		t.Fatalf("first Leave() error: %v", err)
	}
	if err := s.Leave("p1"); err != coreerrors.ErrNotQueued {
		t.Fatalf("second Leave() = %v, want NotQueued", err)
	}
}

type fakeInMatch map[string]bool

func (f fakeInMatch) InMatch(playerID string) bool { return f[playerID] }

func TestEnqueueRejectsPlayerAlreadyInMatch(t *testing.T) {
	mustLoadConfig(t)
	s := New(fakeInMatch{"p1": true})
	if err := s.Enqueue("1v1", Entry{PlayerID: "p1", Rating: 1500}, 0); err != coreerrors.ErrAlreadyInMatch {
		t.Fatalf("Enqueue() = %v, want ErrAlreadyInMatch", err)
	}
}

// TestAnchorScanSkipsIncompatibleHead covers the FIFO anchor scan: a head
// entry with no compatible partners must not block a match forming among
// the entries behind it in the same tick.
func TestAnchorScanSkipsIncompatibleHead(t *testing.T) {
	mustLoadConfig(t)
	s := New(nil)
	if err := s.Enqueue("1v1", Entry{PlayerID: "outlier", Rating: 9000}, 0); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}
	if err := s.Enqueue("1v1", Entry{PlayerID: "x", Rating: 1500}, 0); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}
	if err := s.Enqueue("1v1", Entry{PlayerID: "y", Rating: 1510}, 0); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}

	events := s.Tick(context.Background(), 30)
	var found *FormedMatch
	for _, e := range events {
		if e.Kind == "match_found" {
			found = e.Match
		}
	}
	if found == nil {
		t.Fatalf("expected x and y to match past the incompatible head, got %+v", events)
	}
	for _, team := range found.Teams {
		for _, e := range team {
			if e.PlayerID == "outlier" {
				t.Fatalf("outlier should not have been matched")
			}
		}
	}
	if st := s.Status("1v1", 30); st.Waiting != 1 {
		t.Fatalf("expected the outlier still waiting, got %d", st.Waiting)
	}
}

func TestEnqueueRejectsPremadeWhereDisallowed(t *testing.T) {
	mustLoadConfig(t)
	s := New(nil)
	err := s.Enqueue("1v1", Entry{PlayerID: "p1", Rating: 1500, PremadeGroup: "g1"}, 0)
	if err != coreerrors.ErrIneligible {
		t.Fatalf("Enqueue() = %v, want ErrIneligible for premade in a solo-only mode", err)
	}
}

func TestEnqueueEnforcesMaxPremadeSize(t *testing.T) {
	mustLoadConfig(t)
	s := New(nil)
	if err := s.Enqueue("2v2", Entry{PlayerID: "p1", Rating: 1500, PremadeGroup: "g1"}, 0); err != nil {
		t.Fatalf("first premade member: %v", err)
	}
	if err := s.Enqueue("2v2", Entry{PlayerID: "p2", Rating: 1500, PremadeGroup: "g1"}, 0); err != nil {
		t.Fatalf("second premade member: %v", err)
	}
	if err := s.Enqueue("2v2", Entry{PlayerID: "p3", Rating: 1500, PremadeGroup: "g1"}, 0); err != coreerrors.ErrIneligible {
		t.Fatalf("third premade member = %v, want ErrIneligible past max_premade_size", err)
	}
}

// TestRecentOpponentDamping covers the anti-repeat ring: two players who
// just matched do not re-pair while the matchup is in either ring.
func TestRecentOpponentDamping(t *testing.T) {
	mustLoadConfig(t)
	s := New(nil)
	if err := s.Enqueue("1v1", Entry{PlayerID: "a", Rating: 1500}, 0); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}
	if err := s.Enqueue("1v1", Entry{PlayerID: "b", Rating: 1500}, 0); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}
	if events := s.Tick(context.Background(), 30); len(events) != 1 {
		t.Fatalf("expected the first pairing to form, got %+v", events)
	}

	if err := s.Enqueue("1v1", Entry{PlayerID: "a", Rating: 1500}, 31); err != nil {
		t.Fatalf("re-Enqueue() error: %v", err)
	}
	if err := s.Enqueue("1v1", Entry{PlayerID: "b", Rating: 1500}, 31); err != nil {
		t.Fatalf("re-Enqueue() error: %v", err)
	}
	for _, e := range s.Tick(context.Background(), 60) {
		if e.Kind == "match_found" {
			t.Fatalf("expected the rematch damped by the recent-opponent ring, got %+v", e)
		}
	}
}

func playerID(i int) string {
	letters := "abcdefghijklmnopqrstuvwxyz"
	return string(letters[i%len(letters)])
}
