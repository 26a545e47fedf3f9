// Package visibility places catalog objects in an observer's sky and scores
// the visible ones against the observer's stated preferences.
package visibility

import (
	"sort"
	"strings"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/ephemeris"
	"github.com/onnwee/skyrank/internal/ranking"
)

// View is the per-request projection of one catalog object. Layer 1 creates
// it; the boosters rewrite Score, MatchPercentage and BoostDescription in
// place.
type View struct {
	Category catalog.Category `json:"category"`
	ID       int              `json:"id"`
	Name     string           `json:"name"`

	// Key is the preference key for the object: the spectral class of a
	// star, the type of a planet, or the parent of a moon.
	Key string `json:"key"`

	Altitude       float64           `json:"altitude"`
	Azimuth        float64           `json:"azimuth"`
	RightAscension float64           `json:"right_ascension"` // degrees
	Declination    float64           `json:"declination"`
	Geocentric     *ephemeris.Vector `json:"geocentric,omitempty"`
	Visible        bool              `json:"visible"`

	BaseScore        float64 `json:"base_score"`
	Score            float64 `json:"score"`
	MatchPercentage  float64 `json:"match_percentage"`
	VisibilityChance float64 `json:"visibility_chance"`
	ChanceReason     string  `json:"chance_reason"`
	BoostDescription string  `json:"boost_description,omitempty"`

	// MaxScore is the theoretical maximum the match percentage is taken
	// against.
	MaxScore float64 `json:"-"`
}

// Clone returns an independent copy so a later layer can mutate scores
// without touching an earlier layer's output.
func (v *View) Clone() *View {
	c := *v
	if v.Geocentric != nil {
		g := *v.Geocentric
		c.Geocentric = &g
	}
	return &c
}

// SetScore stores a new score and recomputes the match percentage against
// MaxScore.
func (v *View) SetScore(score float64) {
	v.Score = ranking.Round2(score)
	v.MatchPercentage = ranking.MatchPercentage(score, v.MaxScore)
}

// CloneAll copies every view in views.
func CloneAll(views []*View) []*View {
	out := make([]*View, len(views))
	for i, v := range views {
		out[i] = v.Clone()
	}
	return out
}

// SortByScore orders views by score descending, then by name ascending.
func SortByScore(views []*View) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Score != views[j].Score {
			return views[i].Score > views[j].Score
		}
		return strings.ToLower(views[i].Name) < strings.ToLower(views[j].Name)
	})
}
