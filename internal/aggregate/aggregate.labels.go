package aggregate

import (
	"math"
	"sort"

	"github.com/itsatony/soundscape/hub/internal/models"
)

// DefaultTopLabels is how many labels the distribution chart shows
const DefaultTopLabels = 10

// LabelCount is one bar of the label distribution chart
type LabelCount struct {
	Label    string  `json:"label"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

// LabelDistribution counts occurrences and averages scores per label, sorted
// by count descending. Ties keep the order in which labels were first
// encountered. top <= 0 means DefaultTopLabels.
func LabelDistribution(events []models.ClassificationEvent, top int) []LabelCount {
	if top <= 0 {
		top = DefaultTopLabels
	}

	type acc struct {
		count int
		sum   float64
	}
	order := make([]string, 0)
	byLabel := make(map[string]*acc)

	for _, e := range events {
		a, ok := byLabel[e.Label]
		if !ok {
			a = &acc{}
			byLabel[e.Label] = a
			order = append(order, e.Label)
		}
		a.count++
		a.sum += sanitizeScore(e.Score)
	}

	out := make([]LabelCount, 0, len(order))
	for _, label := range order {
		a := byLabel[label]
		out = append(out, LabelCount{
			Label:    label,
			Count:    a.count,
			AvgScore: a.sum / float64(a.count),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})

	if len(out) > top {
		out = out[:top]
	}
	return out
}

// Scores are averaged as reported, out-of-range values included. Only NaN
// is neutralized since it would poison the whole label.
func sanitizeScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return s
}
