package matchmaker

// qualityThreshold is the minimum acceptable formed-group quality before
// the relaxation escape hatch applies.
const qualityThreshold = 0.3

// Quality computes the match-quality score for a formed group:
// 0.5*rating_balance + 0.3*wait_time_score + 0.2*ping_score.
func Quality(teamAverages []float64, avgWaitSeconds, avgPingMs float64) float64 {
	ratingBalance := ratingBalanceScore(teamAverages)
	waitScore := waitTimeScore(avgWaitSeconds)
	pingScore := pingScore(avgPingMs)
	return 0.5*ratingBalance + 0.3*waitScore + 0.2*pingScore
}

// ratingBalanceScore: max(0, 1 - teamSpread/500).
func ratingBalanceScore(teamAverages []float64) float64 {
	if len(teamAverages) < 2 {
		return 1
	}
	min, max := teamAverages[0], teamAverages[0]
	for _, a := range teamAverages[1:] {
		if a < min {
			min = a
		}
		if a > max {
			max = a
		}
	}
	spread := max - min
	score := 1 - spread/500
	if score < 0 {
		score = 0
	}
	return score
}

// waitTimeScore: min(1, avgWaitSeconds/60).
func waitTimeScore(avgWaitSeconds float64) float64 {
	score := avgWaitSeconds / 60
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// pingScore: max(0, 1 - avgPingMs/200).
func pingScore(avgPingMs float64) float64 {
	score := 1 - avgPingMs/200
	if score < 0 {
		score = 0
	}
	return score
}
