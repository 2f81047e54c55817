package hubservice

import (
	"context"
	"sync"
	"time"

	"github.com/itsatony/soundscape/hub/internal/cleanup"
	"github.com/itsatony/soundscape/hub/internal/errors"
	"github.com/itsatony/soundscape/hub/internal/live"
	"github.com/itsatony/soundscape/hub/internal/monitoring"
	"github.com/itsatony/soundscape/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

const (
	defaultCacheTTL    = 10 * time.Minute
	defaultClipBaseURL = "/api/v1/clips"
	subscriberBuffer   = 4
	cacheSaveTimeout   = 5 * time.Second
)

// Options tunes the view publishing
type Options struct {
	ClipBaseURL string
	CacheTTL    time.Duration
}

// HubService contains the live monitor, the optional view cache and clip
// store, and the service-wide monitoring and cleanup
type HubService struct {
	Store      repository.DocumentStore
	Monitor    *live.Monitor
	Cache      repository.ViewCache // nil when no cache is configured
	Clips      repository.ClipStore // nil when no clip directory is configured
	Monitoring *monitoring.Service
	Cleanup    *cleanup.CleanupService

	clipBaseURL string
	cacheTTL    time.Duration
	now         func() time.Time

	mu          sync.Mutex
	subscribers map[string]chan []byte
	dirty       chan struct{}
	stop        chan struct{}
	done        chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
}

// New creates a new HubService instance
func New(
	store repository.DocumentStore,
	monitor *live.Monitor,
	cache repository.ViewCache,
	clips repository.ClipStore,
	mon *monitoring.Service,
	opts Options,
) *HubService {
	if opts.ClipBaseURL == "" {
		opts.ClipBaseURL = defaultClipBaseURL
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if mon == nil {
		mon = monitoring.NewService(monitoring.Config{})
	}
	return &HubService{
		Store:       store,
		Monitor:     monitor,
		Cache:       cache,
		Clips:       clips,
		Monitoring:  mon,
		Cleanup:     cleanup.New(),
		clipBaseURL: opts.ClipBaseURL,
		cacheTTL:    opts.CacheTTL,
		now:         time.Now,
		subscribers: make(map[string]chan []byte),
		dirty:       make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Validate checks if all required dependencies are initialized
func (s *HubService) Validate() error {
	if s.Store == nil {
		return ErrMissingRepository("store")
	}
	if s.Monitor == nil {
		return ErrMissingRepository("monitor")
	}
	return nil
}

// Start opens the live streams and begins publishing views. The monitor,
// the cache and the store are released by Close in reverse order.
func (s *HubService) Start(ctx context.Context) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.startOnce.Do(func() {
		s.Cleanup.Register("store", s.Store.Close)
		if s.Cache != nil {
			s.Cleanup.Register("cache", s.Cache.Close)
		}
		s.Cleanup.Register("monitor", func() error {
			s.Monitor.Close()
			return nil
		})
		s.Cleanup.Register("publisher", func() error {
			s.stopPublisher()
			return nil
		})

		s.Monitor.OnUpdate("hubservice", s.markDirty)
		go s.publishLoop(ctx)
		s.Monitor.Start(ctx)
		nuts.L.Infof("[HubService] Started")
	})
	return nil
}

// Close tears everything down
func (s *HubService) Close(ctx context.Context) error {
	return s.Cleanup.Run(ctx)
}

// Subscribe returns a channel that receives every published view as JSON.
// Slow subscribers only get the newest view.
func (s *HubService) Subscribe() (string, <-chan []byte) {
	id := nuts.NID("sub", 12)
	ch := make(chan []byte, subscriberBuffer)

	s.mu.Lock()
	s.subscribers[id] = ch
	s.mu.Unlock()

	s.Monitoring.RecordEvent("live.subscribed", nil)
	return id, ch
}

// Unsubscribe stops delivery to a subscriber and closes its channel
func (s *HubService) Unsubscribe(id string) {
	s.mu.Lock()
	ch, ok := s.subscribers[id]
	delete(s.subscribers, id)
	s.mu.Unlock()

	if ok {
		close(ch)
	}
}

func (s *HubService) markDirty(stream string) {
	s.Monitoring.RecordEvent("snapshot.applied", map[string]string{"stream": stream})
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *HubService) publishLoop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-s.dirty:
			s.publish(ctx)
		}
	}
}

func (s *HubService) stopPublisher() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

func (s *HubService) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- data:
		default:
			// drop the oldest pending view
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- data:
			default:
			}
		}
	}
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
