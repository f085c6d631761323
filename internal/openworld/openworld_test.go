package openworld

import (
	"testing"

	"github.com/ironspire/pvpcore/internal/config"
)

func mustLoadConfig(t *testing.T) {
	t.Helper()
	if err := config.Load(); err != nil {
		t.Fatalf("config.Load() error: %v", err)
	}
}

// TestCaptureFlip covers three faction-B players capturing
// against faction-A's control, capture_rate=1, threshold=60, should flip
// control to B after 20 one-second ticks (3 * 1 * 20 = 60).
func TestCaptureFlip(t *testing.T) {
	z := &Zone{
		ID:               "z1",
		ControllingFaction: "A",
		CaptureRate:      1,
		CaptureThreshold: 60,
		CapturingPlayers: map[string]string{
			"p1": "B",
			"p2": "B",
			"p3": "B",
		},
	}
	for i := 0; i < 20; i++ {
		advanceCapture(z, 1)
	}
	if z.ControllingFaction != "B" {
		t.Fatalf("expected control to flip to B, got %q (progress=%v)", z.ControllingFaction, z.CaptureProgress)
	}
	if z.CaptureProgress != 0 {
		t.Fatalf("expected progress reset to 0 after flip, got %v", z.CaptureProgress)
	}
}

func TestCaptureReinforcement(t *testing.T) {
	z := &Zone{
		ID:               "z1",
		ControllingFaction: "A",
		CaptureRate:      1,
		CaptureThreshold: 60,
		CapturingPlayers: map[string]string{
			"p1": "A",
		},
	}
	advanceCapture(z, 10)
	if z.ControllingFaction != "A" {
		t.Fatalf("control should not change when dominant faction reinforces itself")
	}
	if z.CaptureProgress <= 0 {
		t.Fatalf("expected positive progress for reinforcement, got %v", z.CaptureProgress)
	}
}

// TestHonorDiminishingReturns covers the 10th kill of the
// same victim within the DR window, with DR kicking in past the 5th kill,
// should award at most base/10 honor.
func TestHonorDiminishingReturns(t *testing.T) {
	mustLoadConfig(t)
	got := Honor(50, 10, false)
	if got > 5 {
		t.Fatalf("Honor(50, 10, false) = %d, want <= 5", got)
	}
}

func TestHonorBelowDRThreshold(t *testing.T) {
	got := Honor(50, 3, false)
	if got != 50 {
		t.Fatalf("Honor(50, 3, false) = %d, want 50 (no DR below threshold)", got)
	}
}

func TestHonorEnemyTerritoryMultiplier(t *testing.T) {
	base := Honor(50, 1, false)
	bonus := Honor(50, 1, true)
	if bonus <= base {
		t.Fatalf("expected enemy-territory honor (%d) to exceed base (%d)", bonus, base)
	}
}

func TestCanAttackRequiresSameZoneAndFlag(t *testing.T) {
	s := &Service{
		zones:       map[string]*Zone{"z1": {ID: "z1", PvPEnabled: true}},
		players:     map[string]*PlayerStatus{},
		killHistory: map[string]*killRecord{},
	}
	s.players["a"] = &PlayerStatus{PlayerID: "a", Faction: "A", ZoneID: "z1", Flagged: true}
	s.players["b"] = &PlayerStatus{PlayerID: "b", Faction: "B", ZoneID: "z1", Flagged: true}
	if !s.CanAttack("a", "b") {
		t.Fatalf("expected flagged opposing-faction players in same PvP zone to be able to attack")
	}

	s.players["c"] = &PlayerStatus{PlayerID: "c", Faction: "A", ZoneID: "z1", Flagged: true}
	if s.CanAttack("a", "c") {
		t.Fatalf("expected same-faction players to be denied in a non-free-for-all zone")
	}

	s.players["d"] = &PlayerStatus{PlayerID: "d", Faction: "B", ZoneID: "", Flagged: true}
	if s.CanAttack("a", "d") {
		t.Fatalf("expected players in different zones to be denied")
	}
}
