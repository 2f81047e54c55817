package live

import (
	"context"
	"sync"

	"github.com/itsatony/soundscape/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// feed is one live stream. It runs an ordered primary query and, on the
// primary's first failure, a single unordered fallback over the same
// collection and limit. The ordered query is never retried.
type feed struct {
	name    string
	store   repository.DocumentStore
	query   repository.Query
	deliver func(docs []repository.Document)
	failed  func(err error)

	mu       sync.Mutex
	unsubs   []repository.Unsubscribe
	fellBack bool
	closed   bool
}

func newFeed(name string, store repository.DocumentStore, q repository.Query, deliver func([]repository.Document), failed func(error)) *feed {
	return &feed{
		name:    name,
		store:   store,
		query:   q,
		deliver: deliver,
		failed:  failed,
	}
}

func (f *feed) start(ctx context.Context) {
	unsub, err := f.store.Listen(ctx, f.query, repository.Listener{
		OnSnapshot: f.deliver,
		OnError: func(err error) {
			f.fallback(ctx, err)
		},
	})
	if err != nil {
		f.fallback(ctx, err)
		return
	}
	f.keep(unsub)
}

func (f *feed) fallback(ctx context.Context, cause error) {
	f.mu.Lock()
	if f.closed || f.fellBack {
		f.mu.Unlock()
		return
	}
	f.fellBack = true
	f.mu.Unlock()

	nuts.L.Warnf("[Live] %s query %s failed, falling back to unordered query: %v", f.name, f.query, cause)
	if f.failed != nil {
		f.failed(cause)
	}

	q := f.query.Unordered()
	unsub, err := f.store.Listen(ctx, q, repository.Listener{
		OnSnapshot: f.deliver,
		OnError: func(err error) {
			nuts.L.Errorf("[Live] %s fallback query %s failed: %v", f.name, q, err)
		},
	})
	if err != nil {
		nuts.L.Errorf("[Live] %s fallback query %s could not be opened: %v", f.name, q, err)
		return
	}
	f.keep(unsub)
}

// keep holds on to unsub, or releases it at once when the feed is closed
func (f *feed) keep(unsub repository.Unsubscribe) {
	if unsub == nil {
		return
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		unsub()
		return
	}
	f.unsubs = append(f.unsubs, unsub)
	f.mu.Unlock()
}

func (f *feed) degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fellBack
}

func (f *feed) close() {
	f.mu.Lock()
	f.closed = true
	unsubs := f.unsubs
	f.unsubs = nil
	f.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
