// Package ranking holds the scoring policy shared by every pipeline stage
// and the small numeric helpers used to report scores.
package ranking

import "math"

// Round2 rounds to two decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// MatchPercentage expresses score as a share of maxScore, capped at 100 and
// rounded to two decimals. A non-positive maxScore yields 0.
//
// Formula: min(100, score / maxScore * 100)
func MatchPercentage(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return Round2(math.Min(100, score/maxScore*100))
}

// BoostPercent returns how much a booster moved a score, as a whole
// percentage of maxScore.
//
// Formula: round((final - base) / maxScore * 100)
func BoostPercent(final, base, maxScore float64) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round((final - base) / maxScore * 100))
}
