package boost

import (
	"math"
	"math/rand"
	"testing"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/ranking"
)

type item struct {
	id    int
	key   string
	score float64
	match float64
	desc  string
}

var itemAccessor = Accessor[*item]{
	ID:    func(i *item) int { return i.id },
	Key:   func(i *item) string { return i.key },
	Score: func(i *item) float64 { return i.score },
	Match: func(i *item) float64 { return i.match },
	SetScore: func(i *item, score, match float64) {
		i.score = score
		i.match = match
	},
	SetDescription: func(i *item, d string) { i.desc = d },
}

// newItem builds an item whose score ceiling is 10.
func newItem(id int, key string, score float64) *item {
	return &item{id: id, key: key, score: score, match: score * 10}
}

func TestMaxPossible(t *testing.T) {
	tests := []struct {
		name  string
		items []*item
		want  float64
	}{
		{"single", []*item{{score: 5, match: 50}}, 10},
		{"largest wins", []*item{{score: 5, match: 50}, {score: 2, match: 10}}, 20},
		{"no usable item", []*item{{score: 0, match: 50}, {score: 3, match: 0}}, DefaultMaxPossible},
		{"empty", nil, DefaultMaxPossible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxPossible(tt.items, itemAccessor); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MaxPossible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrend_DirectRow(t *testing.T) {
	items := []*item{newItem(1, "", 5)}
	records := []catalog.InteractionRecord{{Category: catalog.CategoryStar, ObjectID: 1, TotalInteractions: 100, TrendingScore: 50}}
	rng := rand.New(rand.NewSource(1))

	out := Apply(items, itemAccessor, Trend(itemAccessor, records, ranking.DefaultPolicy().Trend, rng), Options{TopN: 5})

	// factor 0.6*1 + 0.4*0.5 = 0.8, boost 10*0.35*0.8 = 2.8
	if len(out) != 1 || out[0].score != 7.8 {
		t.Fatalf("out = %+v, want score 7.8", out)
	}
	if out[0].match != 78 {
		t.Errorf("match = %v, want 78", out[0].match)
	}
	if out[0].desc != "Boosted by 28%" {
		t.Errorf("desc = %q", out[0].desc)
	}
}

func TestTrend_ZeroInteractionVolume(t *testing.T) {
	items := []*item{newItem(1, "", 5), newItem(2, "", 5)}
	records := []catalog.InteractionRecord{
		{ObjectID: 1, TotalInteractions: 0, TrendingScore: 100},
		{ObjectID: 2, TotalInteractions: 0, TrendingScore: 0},
	}

	out := Apply(items, itemAccessor, Trend(itemAccessor, records, ranking.DefaultPolicy().Trend, rand.New(rand.NewSource(1))), Options{})

	// Only the trend term contributes: 0.4*1 for the first, nothing for the second.
	if out[0].id != 1 || out[0].score != 6.4 {
		t.Errorf("first = %+v, want id 1 with 6.4", out[0])
	}
	if out[1].score != 5 || out[1].desc != DescriptionNoBoost {
		t.Errorf("second = %+v, want unboosted", out[1])
	}
}

func TestTrend_NoRecords(t *testing.T) {
	items := []*item{newItem(1, "", 2), newItem(2, "", 6), newItem(3, "", 4)}

	out := Apply(items, itemAccessor, Trend(itemAccessor, nil, ranking.DefaultPolicy().Trend, rand.New(rand.NewSource(1))), Options{TopN: 2})

	if len(out) != 2 || out[0].id != 2 || out[1].id != 3 {
		t.Fatalf("out = %+v, want ids 2, 3", out)
	}
	for _, it := range items {
		if it.desc != DescriptionNoBoost {
			t.Errorf("item %d desc = %q", it.id, it.desc)
		}
	}
}

func TestTrend_HaloWithinJitterBounds(t *testing.T) {
	policy := ranking.DefaultPolicy().Trend
	records := []catalog.InteractionRecord{{ObjectID: 1, TotalInteractions: 100, TrendingScore: 50}}

	for seed := int64(0); seed < 20; seed++ {
		halo := newItem(2, "", 5)
		Apply([]*item{newItem(1, "", 5), halo}, itemAccessor, Trend(itemAccessor, records, policy, rand.New(rand.NewSource(seed))), Options{})

		// avg 0.8, base/max 0.5: factor (0.8 + 0.025) * 0.45 * [0.9, 1.1)
		lo := 5 + 3.5*0.825*0.45*0.9
		hi := 5 + 3.5*0.825*0.45*1.1
		if halo.score < lo-0.01 || halo.score > hi+0.01 {
			t.Errorf("seed %d: halo score %v outside [%v, %v]", seed, halo.score, lo, hi)
		}
	}
}

func TestTrend_DeterministicForSeed(t *testing.T) {
	policy := ranking.DefaultPolicy().Trend
	records := []catalog.InteractionRecord{{ObjectID: 9, TotalInteractions: 10, TrendingScore: 80}}

	run := func() []float64 {
		items := []*item{newItem(1, "", 3), newItem(2, "", 4), newItem(3, "", 5)}
		out := Apply(items, itemAccessor, Trend(itemAccessor, records, policy, rand.New(rand.NewSource(42))), Options{})
		scores := make([]float64, len(out))
		for i, it := range out {
			scores[i] = it.score
		}
		return scores
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("run differs at %d: %v vs %v", i, a, b)
		}
	}
}

func TestAffinity(t *testing.T) {
	prefs := &catalog.PreferenceVector{Stars: map[string]float64{"G": 10, "M": 0}}

	tests := []struct {
		name     string
		key      string
		policy   ranking.AffinityPolicy
		label    string
		want     float64
		wantDesc string
	}{
		{"full affinity caps at max", "G", ranking.DefaultPolicy().Matrix, LabelMatrix, 10, "Matrix Boosted by 50%"},
		{"unknown key is neutral", "B", ranking.DefaultPolicy().Matrix, LabelMatrix, 7.5, "Matrix Boosted by 25%"},
		{"zero affinity", "M", ranking.DefaultPolicy().Matrix, LabelMatrix, 5, DescriptionNoBoost},
		{"learned power", "B", ranking.DefaultPolicy().Learned, LabelLearned, ranking.Round2(5 + 7.5*math.Pow(0.5, 1.2)), "NN Boosted by 33%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := newItem(1, tt.key, 5)
			fn := Affinity(itemAccessor, prefs, catalog.CategoryStar, tt.policy)
			out := Apply([]*item{it}, itemAccessor, fn, Options{Label: tt.label})

			if len(out) != 1 || out[0].score != tt.want {
				t.Fatalf("score = %v, want %v", it.score, tt.want)
			}
			if it.desc != tt.wantDesc {
				t.Errorf("desc = %q, want %q", it.desc, tt.wantDesc)
			}
			if it.match > 100 {
				t.Errorf("match = %v above 100", it.match)
			}
		})
	}
}

func TestAffinity_RejectsNonPositiveBase(t *testing.T) {
	zero := &item{id: 2, key: "G", score: 0, match: 0}
	items := []*item{newItem(1, "G", 4), zero}

	fn := Affinity(itemAccessor, nil, catalog.CategoryStar, ranking.DefaultPolicy().Matrix)
	out := Apply(items, itemAccessor, fn, Options{Label: LabelMatrix})

	if len(out) != 1 || out[0].id != 1 {
		t.Fatalf("out = %+v, want only id 1", out)
	}
	if zero.score != 0 || zero.desc != DescriptionNone {
		t.Errorf("rejected item = %+v", zero)
	}
}

func TestApply_Monotonic(t *testing.T) {
	policy := ranking.DefaultPolicy()
	records := func(total1, trend1 float64) []catalog.InteractionRecord {
		return []catalog.InteractionRecord{
			{ObjectID: 1, TotalInteractions: total1, TrendingScore: trend1},
			{ObjectID: 3, TotalInteractions: 400, TrendingScore: 10},
		}
	}
	prefs := func(g float64) *catalog.PreferenceVector {
		return &catalog.PreferenceVector{Stars: map[string]float64{"G": g, "K": 7, "A": 3}}
	}
	trend := func(recs []catalog.InteractionRecord) BoostFunc[*item] {
		return Trend(itemAccessor, recs, policy.Trend, rand.New(rand.NewSource(3)))
	}
	matrix := func(p *catalog.PreferenceVector) BoostFunc[*item] {
		return Affinity(itemAccessor, p, catalog.CategoryStar, policy.Matrix)
	}
	learned := func(p *catalog.PreferenceVector) BoostFunc[*item] {
		return Affinity(itemAccessor, p, catalog.CategoryStar, policy.Learned)
	}

	tests := []struct {
		name          string
		before, after BoostFunc[*item]
	}{
		{"more interactions", trend(records(40, 50)), trend(records(200, 50))},
		{"interactions past the category maximum", trend(records(40, 50)), trend(records(900, 50))},
		{"higher trending score", trend(records(40, 20)), trend(records(40, 90))},
		{"higher matrix affinity", matrix(prefs(2)), matrix(prefs(8))},
		{"higher learned affinity", learned(prefs(2)), learned(prefs(8))},
		{"affinity past the scale", learned(prefs(9)), learned(prefs(15))},
	}

	// Item 1 is the one whose input changes. Its base of 1.5 stays well
	// below the ceiling of 10, so every raise must show up in its score.
	final := func(fn BoostFunc[*item]) (float64, bool) {
		items := []*item{newItem(1, "G", 1.5), newItem(2, "K", 9.8), newItem(3, "A", 6), newItem(4, "Z", 0.3)}
		for _, it := range Apply(items, itemAccessor, fn, Options{}) {
			if it.id == 1 {
				return it.score, true
			}
		}
		return 0, false
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, ok := final(tt.before)
			if !ok {
				t.Fatal("item 1 missing from the baseline output")
			}
			after, ok := final(tt.after)
			if !ok {
				t.Fatal("item 1 missing after raising its input")
			}
			if after < before {
				t.Errorf("final score decreased from %v to %v", before, after)
			}
			if after > 10 {
				t.Errorf("final score %v above the ceiling", after)
			}
		})
	}

	t.Run("raise is visible", func(t *testing.T) {
		before, _ := final(matrix(prefs(2)))
		after, _ := final(matrix(prefs(8)))
		if after <= before {
			t.Errorf("matrix affinity 2 -> 8 gave %v -> %v, want an increase", before, after)
		}
	})
}

func TestApply_SortsByFinalThenBase(t *testing.T) {
	// Both reach the ceiling; the higher base wins the tie.
	low := newItem(1, "G", 6)
	high := newItem(2, "G", 8)
	prefs := &catalog.PreferenceVector{Stars: map[string]float64{"G": 10}}

	out := Apply([]*item{low, high}, itemAccessor, Affinity(itemAccessor, prefs, catalog.CategoryStar, ranking.DefaultPolicy().Matrix), Options{})
	if out[0].id != 2 || out[1].id != 1 {
		t.Errorf("order = %d, %d, want 2, 1", out[0].id, out[1].id)
	}
	if out[0].score != 10 || out[1].score != 10 {
		t.Errorf("scores = %v, %v, want both capped at 10", out[0].score, out[1].score)
	}
}

func TestApply_Empty(t *testing.T) {
	fn := Affinity(itemAccessor, nil, catalog.CategoryStar, ranking.DefaultPolicy().Matrix)
	if out := Apply(nil, itemAccessor, fn, Options{TopN: 5}); out != nil {
		t.Errorf("Apply(nil) = %v", out)
	}
}

func TestFilterInteractions(t *testing.T) {
	records := catalog.SampleInteractions()
	for _, cat := range catalog.Categories {
		for _, r := range FilterInteractions(records, cat) {
			if r.Category != cat {
				t.Errorf("%s filter returned %+v", cat, r)
			}
		}
	}
	if got := FilterInteractions(records, catalog.Category("comet")); got != nil {
		t.Errorf("unknown category = %v", got)
	}
}
