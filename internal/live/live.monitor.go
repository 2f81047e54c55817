// Package live keeps the most recent window of each document stream in
// memory and tells interested parties when a window was replaced.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/itsatony/soundscape/hub/internal/models"
	"github.com/itsatony/soundscape/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Stream names, also used as event prefixes ("<stream>.updated")
const (
	StreamClassifications = "classifications"
	StreamBatDetections   = "batDetections"
	StreamDeviceStatus    = "deviceStatus"
)

// Streams holds the query of every stream
type Streams struct {
	Classifications repository.Query
	BatDetections   repository.Query
	DeviceStatus    repository.Query
}

// DefaultStreams returns the standard windows: the 100 newest
// classifications, the 50 newest bat detections and the latest heartbeat
func DefaultStreams() Streams {
	return Streams{
		Classifications: repository.Query{
			Collection: models.CollectionClassifications,
			OrderBy:    "syncTime",
			Direction:  repository.Descending,
			Limit:      100,
		},
		BatDetections: repository.Query{
			Collection: models.CollectionBatDetections,
			OrderBy:    "detectionTime",
			Direction:  repository.Descending,
			Limit:      50,
		},
		DeviceStatus: repository.Query{
			Collection: models.CollectionDeviceStatus,
			OrderBy:    "recordedAt",
			Direction:  repository.Descending,
			Limit:      1,
		},
	}
}

// State is a point-in-time copy of the monitor's windows. The slices are
// never modified after publication and may be shared freely.
type State struct {
	Connected       bool
	Classifications []models.ClassificationEvent
	BatDetections   []models.BatDetectionEvent
	Health          *models.DeviceHealthSnapshot
	Degraded        []string // streams running on their fallback query
	UpdatedAt       time.Time
}

// Monitor subscribes to the classification, bat detection and device status
// streams and holds their latest snapshots
type Monitor struct {
	store      repository.DocumentStore
	streams    Streams
	probeLimit int
	events     *nuts.EventEmitter

	mu     sync.RWMutex
	state  State
	closed bool
	feeds  []*feed

	cancel    context.CancelFunc
	startOnce sync.Once
	closeOnce sync.Once
}

// NewMonitor creates a monitor on an established store. Nothing is opened
// until Start.
func NewMonitor(store repository.DocumentStore, streams Streams) *Monitor {
	return &Monitor{
		store:      store,
		streams:    streams,
		probeLimit: defaultProbeLimit,
		events:     nuts.NewEventEmitter(),
	}
}

// WithProbeLimit sets how many documents the diagnostic probe reads
func (m *Monitor) WithProbeLimit(n int) *Monitor {
	if n > 0 {
		m.probeLimit = n
	}
	return m
}

// Start opens all streams and fires the diagnostic probe. Calling Start more
// than once, or after Close, does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		ctx, cancel := context.WithCancel(ctx)
		m.cancel = cancel
		m.feeds = []*feed{
			newFeed(StreamClassifications, m.store, m.streams.Classifications, m.applyClassifications, m.classificationsFailed),
			newFeed(StreamBatDetections, m.store, m.streams.BatDetections, m.applyBatDetections, nil),
			newFeed(StreamDeviceStatus, m.store, m.streams.DeviceStatus, m.applyDeviceStatus, nil),
		}
		feeds := m.feeds
		m.mu.Unlock()

		nuts.L.Infof("[Live] Opening %d streams", len(feeds))
		go m.probe(ctx, m.streams.Classifications)
		for _, f := range feeds {
			f.start(ctx)
		}
	})
}

// Close releases every subscription. After Close returns no delivery changes
// the state. Close is idempotent.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		feeds := m.feeds
		cancel := m.cancel
		m.mu.Unlock()

		for _, f := range feeds {
			f.close()
		}
		if cancel != nil {
			cancel()
		}
		nuts.L.Infof("[Live] Monitor closed")
	})
}

// Snapshot returns the current state
func (m *Monitor) Snapshot() State {
	m.mu.RLock()
	s := m.state
	m.mu.RUnlock()

	s.Degraded = nil
	for _, f := range m.feedList() {
		if f.degraded() {
			s.Degraded = append(s.Degraded, f.name)
		}
	}
	return s
}

// Connected reports whether the classification stream has answered at all
func (m *Monitor) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Connected
}

// OnUpdate registers fn for updates of every stream. fn receives the stream
// name. handlerID must be unique per registration.
func (m *Monitor) OnUpdate(handlerID string, fn func(stream string)) {
	for _, stream := range []string{StreamClassifications, StreamBatDetections, StreamDeviceStatus} {
		// The emitter matches listener parameters against the emitted
		// arguments, so the listener must take exactly one string
		m.events.On(stream+".updated", handlerID+"_"+stream, fn)
	}
}

func (m *Monitor) feedList() []*feed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.feeds
}

func (m *Monitor) applyClassifications(docs []repository.Document) {
	events := repository.DecodeClassifications(docs)
	m.apply(StreamClassifications, func(s *State) {
		s.Classifications = events
		s.Connected = true
	})
}

// A handled classification error still counts as connected; the fallback
// feed takes over from here
func (m *Monitor) classificationsFailed(error) {
	m.apply(StreamClassifications, func(s *State) {
		s.Connected = true
	})
}

func (m *Monitor) applyBatDetections(docs []repository.Document) {
	events := repository.DecodeBatDetections(docs)
	m.apply(StreamBatDetections, func(s *State) {
		s.BatDetections = events
	})
}

func (m *Monitor) applyDeviceStatus(docs []repository.Document) {
	snapshots := repository.DecodeDeviceHealth(docs)
	latest := latestSnapshot(snapshots)
	m.apply(StreamDeviceStatus, func(s *State) {
		s.Health = latest
	})
}

func (m *Monitor) apply(stream string, mutate func(s *State)) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	mutate(&m.state)
	m.state.UpdatedAt = time.Now()
	m.mu.Unlock()

	if err := m.events.Emit(stream+".updated", stream); err != nil {
		nuts.L.Errorf("[Live] Failed to announce %s update: %v", stream, err)
	}
}

// The fallback query is unordered, so pick the newest heartbeat explicitly
func latestSnapshot(snapshots []models.DeviceHealthSnapshot) *models.DeviceHealthSnapshot {
	var latest *models.DeviceHealthSnapshot
	for i := range snapshots {
		s := &snapshots[i]
		switch {
		case latest == nil:
			latest = s
		case s.RecordedAt == nil:
		case latest.RecordedAt == nil || s.RecordedAt.After(*latest.RecordedAt):
			latest = s
		}
	}
	return latest
}
