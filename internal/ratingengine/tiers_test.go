package ratingengine

import (
	"testing"

	"github.com/ironspire/pvpcore/internal/config"
)

func TestTierMonotonicity(t *testing.T) {
	if err := config.Load(); err != nil {
		t.Fatalf("config.Load() error: %v", err)
	}
	ratings := []int32{0, 999, 1000, 1199, 1200, 2399, 2400, 9999}
	prevIndex := -1
	names := sortedTierNames()
	indexOf := func(name string) int {
		for i, n := range names {
			if n == name {
				return i
			}
		}
		return -1
	}
	for _, r := range ratings {
		idx := indexOf(Tier(r))
		if idx < prevIndex {
			t.Fatalf("tier regressed at rating %d: index %d < previous %d", r, idx, prevIndex)
		}
		prevIndex = idx
	}
}

func TestTierBoundaries(t *testing.T) {
	if err := config.Load(); err != nil {
		t.Fatalf("config.Load() error: %v", err)
	}
	if got := Tier(999); got != "Unranked" {
		t.Fatalf("Tier(999) = %s, want Unranked", got)
	}
	if got := Tier(1000); got != "Bronze" {
		t.Fatalf("Tier(1000) = %s, want Bronze", got)
	}
	if got := Tier(2400); got != "Challenger" {
		t.Fatalf("Tier(2400) = %s, want Challenger", got)
	}
}
