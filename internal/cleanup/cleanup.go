package cleanup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	nuts "github.com/vaudience/go-nuts"
)

type resource struct {
	name    string
	release func() error
}

// CleanupService coordinates the teardown of long-lived resources (the
// monitor, store clients, cache connections). Resources are released in
// reverse registration order, exactly once.
type CleanupService struct {
	mu        sync.Mutex
	resources []resource
	done      bool
	events    *nuts.EventEmitter
}

// New creates a new CleanupService
func New() *CleanupService {
	return &CleanupService{
		events: nuts.NewEventEmitter(),
	}
}

// Register adds a resource to release on Run. Registering after Run
// releases the resource immediately.
func (s *CleanupService) Register(name string, release func() error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		s.release(resource{name: name, release: release})
		return
	}
	s.resources = append(s.resources, resource{name: name, release: release})
	s.mu.Unlock()
}

// Run releases every registered resource. Failures are collected and do not
// stop the remaining releases. Only the first call does any work.
func (s *CleanupService) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	resources := s.resources
	s.resources = nil
	s.mu.Unlock()

	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			nuts.L.Warnf("[Cleanup] Deadline passed, still releasing %s", resources[i].name)
		}
		if err := s.release(resources[i]); err != nil {
			errs = append(errs, err)
		}
	}

	s.emit("cleanup.completed", fmt.Sprintf("%d", len(resources)))
	return errors.Join(errs...)
}

func (s *CleanupService) release(r resource) error {
	if r.release != nil {
		if err := r.release(); err != nil {
			nuts.L.Errorf("[Cleanup] Failed to release %s: %v", r.name, err)
			return fmt.Errorf("failed to release %s: %w", r.name, err)
		}
	}
	nuts.L.Infof("[Cleanup] Released %s", r.name)
	s.emit(r.name+".released", r.name)
	return nil
}

// OnCleanup registers a callback for cleanup events. The callback receives
// the resource name, or the resource count for "cleanup.completed".
func (s *CleanupService) OnCleanup(event string, handler func(id string)) {
	s.events.On(event, nuts.NID("cleanup", 8), handler)
}

func (s *CleanupService) emit(event, id string) {
	if err := s.events.Emit(event, id); err != nil {
		nuts.L.Warnf("[Cleanup] Failed to emit %s: %v", event, err)
	}
}
