// Package boost raises ranked scores using signals beyond the observer's
// sky: aggregate interaction trends and per-user preference vectors.
package boost

import (
	"math"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/ranking"
)

// Labels for the preference boosters' descriptions.
const (
	LabelMatrix  = "Matrix"
	LabelLearned = "NN"
)

// Affinity returns a preference boost function for one category. The item's
// key is looked up in prefs (unknown keys are neutral), normalized to [0, 1]
// and raised to policy.Power:
//
//	boost = maxPossible * capRatio * (clamp(v, 0, 10)/10)^power
//
// Items with a non-positive base score are rejected.
func Affinity[T any](acc Accessor[T], prefs *catalog.PreferenceVector, category catalog.Category, policy ranking.AffinityPolicy) BoostFunc[T] {
	return func(item T, base, maxPossible float64) (float64, bool) {
		if base <= 0 {
			return 0, false
		}
		p := ranking.Clamp(prefs.Affinity(category, acc.Key(item)), 0, 10) / 10
		return maxPossible * policy.CapRatio * math.Pow(p, policy.Power), true
	}
}
