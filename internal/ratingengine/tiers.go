package ratingengine

import (
	"context"
	"sort"
	"time"

	"github.com/ironspire/pvpcore/internal/config"
)

// Tier returns the tier name for a given rating. Tier is a pure function of
// rating — no lookups, no side effects — and monotone
// non-decreasing by construction since the table is sorted ascending by
// MinRating.
func Tier(rating int32) string {
	tiers := config.Get().Tiers
	name := "Unranked"
	for _, t := range tiers {
		if rating >= t.MinRating {
			name = t.Name
		}
	}
	return name
}

func tierConfig(name string) (config.TierConfig, bool) {
	for _, t := range config.Get().Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return config.TierConfig{}, false
}

// ApplyDecay applies the per-tier daily-rating-loss policy to the given
// roster of players (typically this mode's leaderboard listing) who are
// inactive past their tier's inactive_days threshold, down to the tier's
// floor. Invoked by the tick driver on a scheduled, absolute-timestamp basis
// basis, never on every tick.
func (e *Engine) ApplyDecay(ctx context.Context, mode string, playerIDs []string) (int, error) {
	now := time.Now().Unix()
	decayed := 0
	for _, pid := range playerIDs {
		rec, err := e.Get(ctx, pid, mode)
		if err != nil {
			return decayed, err
		}
		tier, ok := tierConfig(Tier(rec.Current))
		if !ok || tier.InactiveDays <= 0 {
			continue
		}
		inactiveFor := now - rec.LastMatchUnix
		inactiveDaysThreshold := int64(tier.InactiveDays) * 86400
		if inactiveFor < inactiveDaysThreshold {
			continue
		}
		daysOverdue := (inactiveFor - inactiveDaysThreshold) / 86400
		if daysOverdue < 1 {
			daysOverdue = 1
		}
		loss := tier.DailyRatingLoss * int32(daysOverdue)
		next := rec.Current - loss
		if next < tier.MinRatingFloor {
			next = tier.MinRatingFloor
		}
		if next == rec.Current {
			continue
		}
		rec.Current = next
		if err := e.put(ctx, rec); err != nil {
			return decayed, err
		}
		decayed++
	}
	return decayed, nil
}

// sortedTierNames is a small helper used by analytics and tests that need a
// stable, rating-ascending listing of configured tiers.
func sortedTierNames() []string {
	tiers := append([]config.TierConfig(nil), config.Get().Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinRating < tiers[j].MinRating })
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = t.Name
	}
	return names
}
