// Package aggregate turns the live document windows into the derived views
// the dashboard renders. Every function here is pure and recomputes from the
// full window it is given.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/itsatony/soundscape/hub/internal/models"
)

// TimeLabelLayout is how chart and table times are labelled
const TimeLabelLayout = "15:04:05"

// SPLPoint is one audio sample on the SPL chart
type SPLPoint struct {
	SyncID string    `json:"sync_id"`
	Time   time.Time `json:"time"`
	Label  string    `json:"label"`
	SPL    float64   `json:"spl"`
}

// SPLStats summarises the plotted series
type SPLStats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SPLSeries is the chart input. HasData is false for an empty series, in
// which case Stats is all zeros.
type SPLSeries struct {
	Points  []SPLPoint `json:"points"`
	Stats   SPLStats   `json:"stats"`
	HasData bool       `json:"has_data"`
}

// SPLTimeline builds the chronological SPL series from a window of
// classifications. Rows sharing a sync id describe one audio sample, so only
// the first row seen per sync id contributes, and only when it has both an
// SPL reading and a sync time. Values are rounded to one decimal and the
// stats are computed over the rounded values.
func SPLTimeline(events []models.ClassificationEvent) SPLSeries {
	seen := make(map[string]struct{}, len(events))
	points := make([]SPLPoint, 0, len(events))

	for _, e := range events {
		if e.SPL == nil || e.SyncTime == nil {
			continue
		}
		if math.IsNaN(*e.SPL) || math.IsInf(*e.SPL, 0) {
			continue
		}
		if _, dup := seen[e.SyncID]; dup {
			continue
		}
		seen[e.SyncID] = struct{}{}
		points = append(points, SPLPoint{
			SyncID: e.SyncID,
			Time:   *e.SyncTime,
			Label:  e.SyncTime.Format(TimeLabelLayout),
			SPL:    round1(*e.SPL),
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})

	series := SPLSeries{Points: points}
	if len(points) == 0 {
		return series
	}

	series.HasData = true
	series.Stats.Min = points[0].SPL
	series.Stats.Max = points[0].SPL
	var sum float64
	for _, p := range points {
		sum += p.SPL
		series.Stats.Min = math.Min(series.Stats.Min, p.SPL)
		series.Stats.Max = math.Max(series.Stats.Max, p.SPL)
	}
	series.Stats.Avg = sum / float64(len(points))
	return series
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
