package guildwar

import (
	"context"
	"testing"

	"github.com/ironspire/pvpcore/internal/config"
)

func mustLoadConfig(t *testing.T) config.WarConfig {
	t.Helper()
	if err := config.Load(); err != nil {
		t.Fatalf("config.Load() error: %v", err)
	}
	return config.Get().War
}

func TestPhaseAdvancesOnAcceptance(t *testing.T) {
	wc := mustLoadConfig(t)
	w := newWar("w1", Config{GuildA: "A", GuildB: "B", Flavor: FlavorInstanced}, 0, wc)
	w.Accepted = true
	if advancePhase(w, 0, wc) {
		t.Fatalf("did not expect cleanup on acceptance")
	}
	if w.Phase != PhasePreparation {
		t.Fatalf("expected Preparation, got %s", w.Phase)
	}
}

func TestDeclarationExpiresWithoutAcceptance(t *testing.T) {
	wc := mustLoadConfig(t)
	w := newWar("w1", Config{GuildA: "A", GuildB: "B"}, 0, wc)
	entered := advancePhase(w, wc.DeclarationWindowSeconds+1, wc)
	if !entered || w.Phase != PhaseCleanup {
		t.Fatalf("expected declaration to expire into Cleanup, got phase=%s entered=%v", w.Phase, entered)
	}
}

func TestScoreCapVictory(t *testing.T) {
	wc := mustLoadConfig(t)
	w := newWar("w1", Config{GuildA: "A", GuildB: "B"}, 0, wc)
	w.Phase = PhaseActive
	w.ActiveEndUnix = 1_000_000
	w.ScoreA = wc.ScoreCap
	if !checkVictory(w, 0, wc) {
		t.Fatalf("expected score cap to end the war")
	}
	if w.Winner != "A" {
		t.Fatalf("expected GuildA to win, got %q", w.Winner)
	}
}

func TestTimeLimitDraw(t *testing.T) {
	wc := mustLoadConfig(t)
	w := newWar("w1", Config{GuildA: "A", GuildB: "B"}, 0, wc)
	w.Phase = PhaseActive
	w.ActiveEndUnix = 100
	w.ScoreA, w.ScoreB = 5, 5
	if !checkVictory(w, 100, wc) {
		t.Fatalf("expected time limit to end the war")
	}
	if !w.Draw || w.Winner != "" {
		t.Fatalf("expected a draw, got winner=%q draw=%v", w.Winner, w.Draw)
	}
}

func TestObjectiveCaptureAwardsPointsAndFlips(t *testing.T) {
	wc := mustLoadConfig(t)
	w := newWar("w1", Config{GuildA: "A", GuildB: "B"}, 0, wc)
	obj := &Objective{ID: "node1", CaptureRadius: 10, CaptureSeconds: 5, PointValue: 20}
	w.Objectives = []*Objective{obj}
	w.Phase = PhaseActive
	w.ActiveEndUnix = 1_000_000
	w.Participants["p1"] = &Participant{PlayerID: "p1", GuildID: "A", InInstance: true}

	positions := map[string]config.Vec3{"p1": {}}
	for i := 0; i < 5; i++ {
		AdvanceObjectiveCapture(w, positions, 1)
	}
	if obj.ControllingGuild != "A" {
		t.Fatalf("expected GuildA to capture the objective, got %q", obj.ControllingGuild)
	}
	if w.ScoreA != 20 {
		t.Fatalf("expected 20 points awarded, got %d", w.ScoreA)
	}
}

func TestTerritoryControlAwardsPerMinute(t *testing.T) {
	wc := mustLoadConfig(t)
	w := newWar("w1", Config{GuildA: "A", GuildB: "B"}, 0, wc)
	w.Phase = PhaseActive
	present := []string{"A", "A", "B"}
	for i := 0; i < 60; i++ {
		IntegrateTerritoryControl(w, present, 1, wc)
	}
	if w.ScoreA != wc.PointsPerTerritoryMinute {
		t.Fatalf("expected %d points after one minute of majority control, got %d", wc.PointsPerTerritoryMinute, w.ScoreA)
	}
}

func TestJoinEnforcesAtMostOneActiveWar(t *testing.T) {
	mustLoadConfig(t)
	s := New(nil, nil, nil)
	s.wars["w1"] = &War{ID: "w1", GuildA: "A", GuildB: "B", Participants: map[string]*Participant{}}
	s.wars["w2"] = &War{ID: "w2", GuildA: "A", GuildB: "C", Participants: map[string]*Participant{}}

	ctx := context.Background()
	if err := s.Join(ctx, "w1", "p1", "A"); err != nil {
		t.Fatalf("unexpected error joining w1: %v", err)
	}
	if err := s.Join(ctx, "w2", "p1", "A"); err == nil {
		t.Fatalf("expected error joining a second active war")
	}
}

func TestTerritoryYieldSkippedWhileContested(t *testing.T) {
	mustLoadConfig(t)
	terr := newTerritoryFromConfig(config.TerritoryConfig{ID: "t1", Owner: "A", ResourceYieldPerHour: 100})

	terr.accrueYield(0)
	terr.accrueYield(resourcePayoutIntervalSeconds)
	if terr.AccruedResources != 100 {
		t.Fatalf("expected 100 banked after one uncontested hour, got %d", terr.AccruedResources)
	}

	terr.claims["w1"] = true
	terr.accrueYield(2 * resourcePayoutIntervalSeconds)
	if terr.AccruedResources != 100 {
		t.Fatalf("expected contested hour to be forfeited, got %d", terr.AccruedResources)
	}

	delete(terr.claims, "w1")
	terr.accrueYield(3 * resourcePayoutIntervalSeconds)
	if terr.AccruedResources != 200 {
		t.Fatalf("expected accrual to resume after contest ends, got %d", terr.AccruedResources)
	}
}
