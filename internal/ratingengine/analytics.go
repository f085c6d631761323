package ratingengine

import "context"

// Trend summarizes a player's rating trajectory over their stored history
// ring, in the style of the rating_system.h progression analytics
// (RankingAnalytics) the original engine carried.
type Trend struct {
	PlayerID       string
	Mode           string
	SlopePerMatch  float64 // linear-regression slope over History
	SamplesUsed    int
	CurrentRating  int32
	Direction      string // "rising", "falling", "flat"
}

// Trend computes a simple linear-regression slope over a player's recent
// rating history ring. With fewer than two samples the direction is "flat".
func (e *Engine) Trend(ctx context.Context, playerID, mode string) (Trend, error) {
	rec, err := e.Get(ctx, playerID, mode)
	if err != nil {
		return Trend{}, err
	}
	t := Trend{PlayerID: playerID, Mode: mode, CurrentRating: rec.Current, SamplesUsed: len(rec.History)}
	if len(rec.History) < 2 {
		t.Direction = "flat"
		return t, nil
	}

	n := float64(len(rec.History))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range rec.History {
		x := float64(i)
		sumX += x
		sumY += float64(y)
		sumXY += x * float64(y)
		sumXX += x * x
	}
	denominator := n*sumXX - sumX*sumX
	if denominator == 0 {
		t.Direction = "flat"
		return t, nil
	}
	slope := (n*sumXY - sumX*sumY) / denominator
	t.SlopePerMatch = slope
	switch {
	case slope > 0.5:
		t.Direction = "rising"
	case slope < -0.5:
		t.Direction = "falling"
	default:
		t.Direction = "flat"
	}
	return t, nil
}

// OpponentBandStats reports win rate against opponents whose average rating
// fell within a given band, derived from recent match history. Kept as a
// lightweight aggregate rather than a stored index: callers that need this
// supply the match-level samples (e.g. from the arena match log) since the
// rating engine itself only persists the rolled-up Record.
type OpponentBandStats struct {
	BandLabel string
	Matches   int
	Wins      int
}

// WinRate returns the band's win rate, or 0 with no matches sampled.
func (s OpponentBandStats) WinRate() float64 {
	if s.Matches == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Matches)
}

// BandLabel buckets an opponent average rating into a coarse band label
// ("same", "higher", "lower") relative to a reference rating, for a
// match-history-by-opponent-band breakdown.
func BandLabel(reference, opponentAvg int32) string {
	diff := opponentAvg - reference
	switch {
	case diff > 100:
		return "higher"
	case diff < -100:
		return "lower"
	default:
		return "same"
	}
}
