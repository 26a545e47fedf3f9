// Package boost raises ranked scores using signals beyond the observer's
// sky: aggregate interaction trends and per-user preference vectors.
package boost

import (
	"math/rand"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/ranking"
)

// Trend returns the Layer 2 boost function for one category.
//
// An object with an interaction row gets
//
//	factor = volumeWeight*(total/maxTotal) + trendWeight*clamp(trend, 0, 100)/100
//
// An object without one gets a halo derived from the category average:
//
//	factor = (avgFactor + haloBaseWeight*base/maxPossible) * haloMultiplier * jitter
//
// with jitter drawn from rng in [haloJitterMin, haloJitterMax). The boost is
// maxPossible*capRatio*factor. A category with no rows is not boosted.
func Trend[T any](acc Accessor[T], records []catalog.InteractionRecord, policy ranking.TrendPolicy, rng *rand.Rand) BoostFunc[T] {
	if len(records) == 0 {
		return func(T, float64, float64) (float64, bool) { return 0, true }
	}

	maxTotal := 0.0
	for _, r := range records {
		if r.TotalInteractions > maxTotal {
			maxTotal = r.TotalInteractions
		}
	}

	factor := func(r catalog.InteractionRecord) float64 {
		volume := 0.0
		if maxTotal > 0 {
			volume = r.TotalInteractions / maxTotal
		}
		trend := ranking.Clamp(r.TrendingScore, 0, 100) / 100
		return policy.VolumeWeight*volume + policy.TrendWeight*trend
	}

	direct := make(map[int]float64, len(records))
	sum := 0.0
	for _, r := range records {
		f := factor(r)
		direct[r.ObjectID] = f
		sum += f
	}
	avg := sum / float64(len(records))

	return func(item T, base, maxPossible float64) (float64, bool) {
		limit := maxPossible * policy.CapRatio

		if f, ok := direct[acc.ID(item)]; ok {
			return limit * f, true
		}

		jitter := policy.HaloJitterMin + rng.Float64()*(policy.HaloJitterMax-policy.HaloJitterMin)
		halo := (avg + policy.HaloBaseWeight*base/maxPossible) * policy.HaloMultiplier * jitter
		return limit * halo, true
	}
}

// FilterInteractions returns the records belonging to category.
func FilterInteractions(records []catalog.InteractionRecord, category catalog.Category) []catalog.InteractionRecord {
	var out []catalog.InteractionRecord
	for _, r := range records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}
