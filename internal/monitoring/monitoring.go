package monitoring

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	nuts "github.com/vaudience/go-nuts"
)

const defaultRetention = time.Hour

// Config holds monitoring configuration
type Config struct {
	Retention time.Duration // how long individual events stay queryable
}

type record struct {
	name   string
	labels string
	at     time.Time
}

// Service counts pipeline events in memory
type Service struct {
	config Config

	mu      sync.Mutex
	totals  map[string]int64
	records []record
	started time.Time
	now     func() time.Time
}

// NewService creates a new monitoring service
func NewService(config Config) *Service {
	if config.Retention <= 0 {
		config.Retention = defaultRetention
	}
	return &Service{
		config:  config,
		totals:  make(map[string]int64),
		started: time.Now(),
		now:     time.Now,
	}
}

// RecordEvent records a monitored event with labels
func (s *Service) RecordEvent(eventName string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	s.totals[eventName]++
	s.records = append(s.records, record{name: eventName, labels: labelKey(labels), at: ts})
	s.prune(ts)
}

// RecordError records a failure event and logs it
func (s *Service) RecordError(eventName string, err error, labels map[string]string) {
	nuts.L.Errorf("[Monitoring] %s: %v (labels: %v)", eventName, err, labels)
	s.RecordEvent(eventName, labels)
}

// GetEventMetrics counts events of eventType seen within duration, keyed by
// their labels
func (s *Service) GetEventMetrics(eventType string, duration time.Duration) (map[string]int64, error) {
	if duration <= 0 || duration > s.config.Retention {
		return nil, fmt.Errorf("duration must be within (0, %s]", s.config.Retention)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	since := s.now().Add(-duration)
	out := make(map[string]int64)
	for _, r := range s.records {
		if r.name == eventType && !r.at.Before(since) {
			out[r.labels]++
		}
	}
	return out, nil
}

// Counts returns the lifetime total of every event name
func (s *Service) Counts() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64, len(s.totals))
	for k, v := range s.totals {
		out[k] = v
	}
	return out
}

// Uptime is the time since the service was created
func (s *Service) Uptime() time.Duration {
	return s.now().Sub(s.started)
}

// prune drops records older than the retention window; s.mu must be held
func (s *Service) prune(now time.Time) {
	cutoff := now.Add(-s.config.Retention)
	i := 0
	for i < len(s.records) && s.records[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.records = append(s.records[:0], s.records[i:]...)
	}
}

func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
