package aggregate

import (
	"fmt"

	"github.com/itsatony/soundscape/hub/internal/models"
)

// Summary holds the headline numbers of the current window
type Summary struct {
	Classifications int     `json:"classifications"`
	BatDetections   int     `json:"bat_detections"`
	AvgSPL          float64 `json:"avg_spl"`
	UniqueLabels    int     `json:"unique_labels"`
}

// Summarize computes the headline numbers. A classification without an SPL
// reading counts as 0 dB in the average.
func Summarize(classifications []models.ClassificationEvent, bats []models.BatDetectionEvent) Summary {
	s := Summary{
		Classifications: len(classifications),
		BatDetections:   len(bats),
	}
	if len(classifications) == 0 {
		return s
	}

	labels := make(map[string]struct{})
	var sum float64
	for _, c := range classifications {
		if c.SPL != nil {
			sum += *c.SPL
		}
		labels[c.Label] = struct{}{}
	}
	s.AvgSPL = sum / float64(len(classifications))
	s.UniqueLabels = len(labels)
	return s
}

// StatCard is one of the four headline cards
type StatCard struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// StatCards renders the summary as the four dashboard cards
func StatCards(s Summary) []StatCard {
	return []StatCard{
		{Key: "classifications", Label: "Classifications", Value: fmt.Sprintf("%d", s.Classifications)},
		{Key: "bat_detections", Label: "Bat Detections", Value: fmt.Sprintf("%d", s.BatDetections)},
		{Key: "avg_spl", Label: "Avg SPL", Value: fmt.Sprintf("%.1f dB", s.AvgSPL)},
		{Key: "sound_classes", Label: "Sound Classes", Value: fmt.Sprintf("%d", s.UniqueLabels)},
	}
}
