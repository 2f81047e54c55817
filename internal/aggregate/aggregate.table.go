package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/itsatony/soundscape/hub/internal/models"
)

// ClassificationRow is one row of the recent classifications table
type ClassificationRow struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Score     string     `json:"score"`
	ScoreBar  float64    `json:"score_bar"` // 0..100
	SPL       string     `json:"spl"`
	Device    string     `json:"device"`
	SyncTime  *time.Time `json:"sync_time,omitempty"`
	TimeLabel string     `json:"time_label"`
}

// RecentClassifications returns the limit most recent rows, newest first
func RecentClassifications(events []models.ClassificationEvent, limit int) []ClassificationRow {
	if limit <= 0 {
		limit = DefaultTableRows
	}

	sorted := make([]models.ClassificationEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return newer(sorted[i].SyncTime, sorted[j].SyncTime)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	rows := make([]ClassificationRow, 0, len(sorted))
	for _, c := range sorted {
		score := sanitizeScore(c.Score)
		row := ClassificationRow{
			ID:        c.ID,
			Label:     c.Label,
			Score:     fmt.Sprintf("%.1f%%", score*100),
			ScoreBar:  score * 100,
			SPL:       models.Placeholder,
			Device:    c.Device,
			SyncTime:  c.SyncTime,
			TimeLabel: models.Placeholder,
		}
		if c.SPL != nil {
			row.SPL = fmt.Sprintf("%.1f", *c.SPL)
		}
		if c.SyncTime != nil {
			row.TimeLabel = c.SyncTime.Format(TimeLabelLayout)
		}
		rows = append(rows, row)
	}
	return rows
}
