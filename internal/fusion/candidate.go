// Package fusion combines the four upstream rankings of each category into a
// single consensus ranking by evolving per-request layer weights with a
// genetic algorithm.
package fusion

import (
	"sort"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/visibility"
)

// Layers is the number of upstream rankings that are fused.
const Layers = 4

// Rank is a 0-based position in one upstream ranking.
type Rank int

// Unranked marks an object absent from an upstream ranking. It is a large
// position rather than a negative one so it still takes part in the weighted
// arithmetic and always sorts behind every real rank.
const Unranked Rank = 998

// IsRanked reports whether r is a real position.
func (r Rank) IsRanked() bool {
	return r >= 0 && r < Unranked
}

// Candidate is one object entering rank fusion.
type Candidate struct {
	Category catalog.Category `json:"category"`
	ID       int              `json:"id"`
	Name     string           `json:"name"`

	// Ranks holds the Layer 1 through Layer 4 positions, in order.
	Ranks [Layers]Rank `json:"ranks"`

	// Estimate is the fused weighted rank; lower is better.
	Estimate  float64 `json:"estimate"`
	FinalRank int     `json:"final_rank"`

	// View is the most recent upstream view of the object, carried forward
	// for display.
	View *visibility.View `json:"view,omitempty"`
}

// BuildCandidates creates one candidate per Layer 1 view. Layer 1 rank is
// the view's index; the other ranks are looked up by object id and default
// to Unranked.
func BuildCandidates(layer1, layer2, layer3, layer4 []*visibility.View) []Candidate {
	later := [Layers - 1][]*visibility.View{layer2, layer3, layer4}

	var positions [Layers - 1]map[int]int
	for i, views := range later {
		positions[i] = indexByID(views)
	}

	candidates := make([]Candidate, 0, len(layer1))
	for i, v := range layer1 {
		c := Candidate{
			Category: v.Category,
			ID:       v.ID,
			Name:     v.Name,
			View:     v,
		}
		c.Ranks[0] = Rank(i)

		for layer, pos := range positions {
			idx, ok := pos[v.ID]
			if !ok {
				c.Ranks[layer+1] = Unranked
				continue
			}
			c.Ranks[layer+1] = Rank(idx)
			c.View = later[layer][idx]
		}
		candidates = append(candidates, c)
	}
	return candidates
}

func indexByID(views []*visibility.View) map[int]int {
	m := make(map[int]int, len(views))
	for i, v := range views {
		if _, seen := m[v.ID]; !seen {
			m[v.ID] = i
		}
	}
	return m
}

// rankCandidates applies weights and orders candidates by ascending
// estimate, ties broken by Layer 1 rank. FinalRank is the 0-based position.
func rankCandidates(candidates []Candidate, weights Chromosome) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		out[i].Estimate = weights.Estimate(out[i].Ranks)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Estimate != out[j].Estimate {
			return out[i].Estimate < out[j].Estimate
		}
		return out[i].Ranks[0] < out[j].Ranks[0]
	})
	for i := range out {
		out[i].FinalRank = i
	}
	return out
}
