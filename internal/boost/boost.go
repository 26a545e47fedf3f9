// Package boost raises ranked scores using signals beyond the observer's
// sky: aggregate interaction trends and per-user preference vectors.
//
// Every booster runs through Apply, which is generic over the ranked item
// type. Callers describe how to read and write an item with an Accessor and
// supply a BoostFunc that decides how much to add.
package boost

import (
	"fmt"
	"math"
	"sort"

	"github.com/onnwee/skyrank/internal/ranking"
)

const (
	// DefaultMaxPossible is used when no item reveals its score ceiling.
	DefaultMaxPossible = 100.0

	// DescriptionNone marks an item a booster refused to score.
	DescriptionNone = "none"
	// DescriptionNoBoost marks an item whose score did not move.
	DescriptionNoBoost = "No boost"
)

// Accessor reads and writes the fields a booster needs on T.
type Accessor[T any] struct {
	ID             func(T) int
	Key            func(T) string
	Score          func(T) float64
	Match          func(T) float64
	SetScore       func(item T, score, match float64)
	SetDescription func(item T, description string)
}

// BoostFunc returns the amount to add to an item's base score. Returning
// ok=false rejects the item: its score is left alone and it is dropped from
// the output.
type BoostFunc[T any] func(item T, base, maxPossible float64) (boost float64, ok bool)

// Options configures a single Apply call.
type Options struct {
	// TopN truncates the output; zero or negative keeps every item.
	TopN int
	// Label prefixes the description, e.g. "Matrix" gives
	// "Matrix Boosted by 12%".
	Label string
}

// MaxPossible recovers the score ceiling from the items as
// max(score / (match/100)). It falls back to DefaultMaxPossible when no item
// has both a positive score and a positive match.
func MaxPossible[T any](items []T, acc Accessor[T]) float64 {
	maxPossible := 0.0
	for _, item := range items {
		score, match := acc.Score(item), acc.Match(item)
		if score > 0 && match > 0 {
			maxPossible = math.Max(maxPossible, score/(match/100))
		}
	}
	if maxPossible <= 0 {
		return DefaultMaxPossible
	}
	return maxPossible
}

// Apply boosts items in place and returns them sorted by boosted score
// descending, then base score descending, truncated to opts.TopN.
//
// Boosted scores never exceed the recovered ceiling; match percentages are
// recomputed against it and capped at 100.
func Apply[T any](items []T, acc Accessor[T], fn BoostFunc[T], opts Options) []T {
	if len(items) == 0 {
		return nil
	}

	maxPossible := MaxPossible(items, acc)

	type scored struct {
		item  T
		base  float64
		final float64
	}
	kept := make([]scored, 0, len(items))

	for _, item := range items {
		base := acc.Score(item)
		boost, ok := fn(item, base, maxPossible)
		if !ok {
			acc.SetDescription(item, DescriptionNone)
			continue
		}

		final := ranking.Round2(math.Min(maxPossible, base+math.Max(0, boost)))
		acc.SetScore(item, final, ranking.MatchPercentage(final, maxPossible))
		acc.SetDescription(item, describe(opts.Label, ranking.BoostPercent(final, base, maxPossible)))

		kept = append(kept, scored{item: item, base: base, final: final})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].final != kept[j].final {
			return kept[i].final > kept[j].final
		}
		return kept[i].base > kept[j].base
	})

	if opts.TopN > 0 && len(kept) > opts.TopN {
		kept = kept[:opts.TopN]
	}

	out := make([]T, len(kept))
	for i, s := range kept {
		out[i] = s.item
	}
	return out
}

func describe(label string, percent int) string {
	if percent <= 0 {
		return DescriptionNoBoost
	}
	if label == "" {
		return fmt.Sprintf("Boosted by %d%%", percent)
	}
	return fmt.Sprintf("%s Boosted by %d%%", label, percent)
}
