package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/itsatony/soundscape/hub/internal/models"
)

const (
	// MaxFeedItems caps the bat detection feed
	MaxFeedItems = 50
	// DefaultTableRows is how many classifications the recent table shows
	DefaultTableRows = 20

	feedTimeLayout = "2006-01-02 15:04:05"
)

// ClipResolver returns a playable URL for a detection without an audio URL,
// or "" when no clip is available
type ClipResolver func(models.BatDetectionEvent) string

// DetectionFeedItem is one entry of the bat detection feed
type DetectionFeedItem struct {
	ID             string     `json:"id"`
	Species        string     `json:"species"`
	CommonName     string     `json:"common_name"`
	Confidence     string     `json:"confidence"`
	FrequencyRange string     `json:"frequency_range"`
	Duration       string     `json:"duration"`
	Device         string     `json:"device"`
	AudioURL       string     `json:"audio_url,omitempty"`
	DetectionTime  *time.Time `json:"detection_time,omitempty"`
	TimeLabel      string     `json:"time_label"`
}

// DetectionFeed lists up to limit detections newest first. Detections
// without a time sort last. resolve may be nil.
func DetectionFeed(bats []models.BatDetectionEvent, limit int, resolve ClipResolver) []DetectionFeedItem {
	if limit <= 0 || limit > MaxFeedItems {
		limit = MaxFeedItems
	}

	sorted := make([]models.BatDetectionEvent, len(bats))
	copy(sorted, bats)
	sort.SliceStable(sorted, func(i, j int) bool {
		return newer(sorted[i].DetectionTime, sorted[j].DetectionTime)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	items := make([]DetectionFeedItem, 0, len(sorted))
	for _, b := range sorted {
		item := DetectionFeedItem{
			ID:             b.ID,
			Species:        b.Species,
			CommonName:     b.CommonName,
			Confidence:     fmt.Sprintf("%.0f%%", sanitizeScore(b.DetectionProb)*100),
			FrequencyRange: fmt.Sprintf("%.1f–%.1f kHz", b.LowFreq/1000, b.HighFreq/1000),
			Duration:       models.Placeholder,
			Device:         b.Device,
			AudioURL:       b.AudioURL,
			DetectionTime:  b.DetectionTime,
			TimeLabel:      models.Placeholder,
		}
		if b.DurationMs != nil {
			item.Duration = fmt.Sprintf("%.0f ms", *b.DurationMs)
		}
		if b.DetectionTime != nil {
			item.TimeLabel = b.DetectionTime.Format(feedTimeLayout)
		}
		if item.AudioURL == "" && resolve != nil {
			item.AudioURL = resolve(b)
		}
		items = append(items, item)
	}
	return items
}

// newer orders nil times after every real time
func newer(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}
