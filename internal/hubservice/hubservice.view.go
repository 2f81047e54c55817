package hubservice

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/itsatony/soundscape/hub/internal/aggregate"
	"github.com/itsatony/soundscape/hub/internal/errors"
	"github.com/itsatony/soundscape/hub/internal/health"
	"github.com/itsatony/soundscape/hub/internal/models"
	"github.com/itsatony/soundscape/hub/internal/repository"
	"github.com/itsatony/soundscape/hub/internal/repository/files"
	nuts "github.com/vaudience/go-nuts"
)

// View is everything the dashboard shows, derived from one monitor state
type View struct {
	GeneratedAt     time.Time                     `json:"generated_at"`
	Connected       bool                          `json:"connected"`
	Degraded        []string                      `json:"degraded,omitempty"`
	Stats           []aggregate.StatCard          `json:"stats"`
	Summary         aggregate.Summary             `json:"summary"`
	Labels          []aggregate.LabelCount        `json:"labels"`
	SPL             aggregate.SPLSeries           `json:"spl"`
	Detections      []aggregate.DetectionFeedItem `json:"detections"`
	Classifications []aggregate.ClassificationRow `json:"classifications"`
	Device          health.Panel                  `json:"device"`
}

// StatsView is the headline part of the view
type StatsView struct {
	Connected bool                 `json:"connected"`
	Stats     []aggregate.StatCard `json:"stats"`
	Summary   aggregate.Summary    `json:"summary"`
}

// BuildView derives the full view from the current monitor state
func (s *HubService) BuildView() View {
	state := s.Monitor.Snapshot()
	summary := aggregate.Summarize(state.Classifications, state.BatDetections)

	return View{
		GeneratedAt:     s.now(),
		Connected:       state.Connected,
		Degraded:        state.Degraded,
		Stats:           aggregate.StatCards(summary),
		Summary:         summary,
		Labels:          aggregate.LabelDistribution(state.Classifications, aggregate.DefaultTopLabels),
		SPL:             aggregate.SPLTimeline(state.Classifications),
		Detections:      aggregate.DetectionFeed(state.BatDetections, aggregate.MaxFeedItems, s.clipURL),
		Classifications: aggregate.RecentClassifications(state.Classifications, aggregate.DefaultTableRows),
		Device:          health.Derive(state.Health, s.now()),
	}
}

// Stats returns the stat cards and summary
func (s *HubService) Stats() StatsView {
	state := s.Monitor.Snapshot()
	summary := aggregate.Summarize(state.Classifications, state.BatDetections)
	return StatsView{
		Connected: state.Connected,
		Stats:     aggregate.StatCards(summary),
		Summary:   summary,
	}
}

// Labels returns the top label distribution
func (s *HubService) Labels(top int) []aggregate.LabelCount {
	return aggregate.LabelDistribution(s.Monitor.Snapshot().Classifications, top)
}

// SPL returns the SPL series and its stats
func (s *HubService) SPL() aggregate.SPLSeries {
	return aggregate.SPLTimeline(s.Monitor.Snapshot().Classifications)
}

// Detections returns the bat detection feed
func (s *HubService) Detections(limit int) []aggregate.DetectionFeedItem {
	return aggregate.DetectionFeed(s.Monitor.Snapshot().BatDetections, limit, s.clipURL)
}

// Classifications returns the most recent classification rows
func (s *HubService) Classifications(limit int) []aggregate.ClassificationRow {
	return aggregate.RecentClassifications(s.Monitor.Snapshot().Classifications, limit)
}

// Device returns the device health panel
func (s *HubService) Device() health.Panel {
	return health.Derive(s.Monitor.Snapshot().Health, s.now())
}

// CachedView returns the last view written to the cache, as JSON
func (s *HubService) CachedView(ctx context.Context) ([]byte, error) {
	if s.Cache == nil {
		return nil, errors.NewUnavailableError("view cache is not configured", nil)
	}
	data, err := s.Cache.Latest(ctx)
	if err == repository.ErrNotFound {
		return nil, errors.NewNotFoundError("no view has been cached yet", err)
	}
	if err != nil {
		return nil, errors.NewUnavailableError("view cache unavailable", err)
	}
	return data, nil
}

// ViewJSON renders the current view
func (s *HubService) ViewJSON() ([]byte, error) {
	return json.Marshal(s.BuildView())
}

func (s *HubService) publish(ctx context.Context) {
	data, err := s.ViewJSON()
	if err != nil {
		s.Monitoring.RecordError("view.failed", err, nil)
		return
	}

	s.broadcast(data)

	if s.Cache != nil {
		saveCtx, cancel := context.WithTimeout(ctx, cacheSaveTimeout)
		defer cancel()
		if err := s.Cache.Save(saveCtx, data, s.cacheTTL); err != nil {
			s.Monitoring.RecordError("cache.failed", err, nil)
			nuts.L.Warnf("[HubService] Failed to cache view: %v", err)
			return
		}
	}
	s.Monitoring.RecordEvent("view.published", nil)
}

// clipURL points detections at a locally stored clip when the record itself
// carries no audio URL
func (s *HubService) clipURL(b models.BatDetectionEvent) string {
	if s.Clips == nil {
		return ""
	}
	name := files.ClipName(b.AudioPath)
	if name == "" && b.SyncID != "" {
		name = b.SyncID + ".wav"
	}
	if name == "" || !s.Clips.Exists(name) {
		return ""
	}
	return s.clipBaseURL + "/" + url.PathEscape(name)
}
