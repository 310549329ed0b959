// Package interpret labels clusters by the synthetic band that dominates
// their mean response.
package interpret

import (
	"math"

	"go-cosmic-inspector/internal/cluster"

	"gonum.org/v1/gonum/stat"
)

// Labels
const (
	LabelDarkSpace  = "Dark Space"
	LabelBright     = "Bright Regions (Stars)"
	LabelDust       = "Dust / Nebula"
	LabelHighEnergy = "High Energy Regions"
	LabelMedium     = "Medium Intensity"
)

const (
	darkThreshold   = 50
	brightThreshold = 150
)

// Means holds the per-band averages of a cluster
type Means struct {
	Optical  float64
	Infrared float64
	XRay     float64
}

// Max returns the largest of the three averages
func (m Means) Max() float64 {
	return math.Max(m.Optical, math.Max(m.Infrared, m.XRay))
}

// Interpretation is the fixed text attached to a label
type Interpretation struct {
	Label       string
	Description string
	Icon        string
}

var catalogue = map[string]Interpretation{
	LabelDarkSpace:  {LabelDarkSpace, "Low energy regions with minimal emissions", "🌌"},
	LabelBright:     {LabelBright, "High optical brightness indicating stellar objects", "⭐"},
	LabelDust:       {LabelDust, "Strong infrared signature from dust and gas clouds", "🌫️"},
	LabelHighEnergy: {LabelHighEnergy, "Intense X-ray emissions from energetic processes", "💥"},
	LabelMedium:     {LabelMedium, "Moderate energy emissions across wavelengths", "🔆"},
}

// Lookup returns the interpretation for a label
func Lookup(label string) (Interpretation, bool) {
	in, ok := catalogue[label]
	return in, ok
}

type rule struct {
	label string
	match func(m Means) bool
}

// rules are evaluated in order; the first match wins. An optical maximum at
// or below the bright threshold falls through to the infrared and x-ray
// checks and can end at the catch-all.
var rules = []rule{
	{LabelDarkSpace, func(m Means) bool { return m.Max() < darkThreshold }},
	{LabelBright, func(m Means) bool { return m.Optical == m.Max() && m.Optical > brightThreshold }},
	{LabelDust, func(m Means) bool { return m.Infrared == m.Max() }},
	{LabelHighEnergy, func(m Means) bool { return m.XRay == m.Max() }},
}

// Classify maps cluster means onto an interpretation
func Classify(m Means) Interpretation {
	label := LabelMedium
	for _, r := range rules {
		if r.match(m) {
			label = r.label
			break
		}
	}
	in, _ := Lookup(label)
	return in
}

// Record is the interpretation of one non-empty cluster
type Record struct {
	ClusterID int
	Interpretation
	// Means are rounded to one decimal place
	Means  Means
	Pixels int
}

// Interpret computes band means per cluster id in [0, k) and classifies
// them. Empty clusters are omitted; records are ordered by cluster id.
func Interpret(points []cluster.Vector, labels []int, k int) []Record {
	bands := make([][3][]float64, k)
	for i, p := range points {
		l := labels[i]
		for d := 0; d < cluster.Dim; d++ {
			bands[l][d] = append(bands[l][d], p[d])
		}
	}

	records := make([]Record, 0, k)
	for id := 0; id < k; id++ {
		if len(bands[id][0]) == 0 {
			continue
		}
		m := Means{
			Optical:  stat.Mean(bands[id][0], nil),
			Infrared: stat.Mean(bands[id][1], nil),
			XRay:     stat.Mean(bands[id][2], nil),
		}
		records = append(records, Record{
			ClusterID:      id,
			Interpretation: Classify(m),
			Means: Means{
				Optical:  round1(m.Optical),
				Infrared: round1(m.Infrared),
				XRay:     round1(m.XRay),
			},
			Pixels: len(bands[id][0]),
		})
	}
	return records
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
