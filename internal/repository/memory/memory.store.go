// FilePath: internal/repository/memory/memory.store.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/itsatony/soundscape/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Store is an in-process document store. It backs the demo mode and stands in
// for the managed store in tests. Live queries are re-evaluated on every Put.
type Store struct {
	mu          sync.Mutex
	collections map[string][]repository.Document
	listeners   map[int]*listener
	nextID      int
	failOrdered map[string]error
	failListen  map[string]error
	failGet     error
	closed      bool
}

type listener struct {
	query    repository.Query
	l        repository.Listener
	queue    chan []repository.Document
	done     chan struct{}
	stopOnce sync.Once
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		collections: make(map[string][]repository.Document),
		listeners:   make(map[int]*listener),
		failOrdered: make(map[string]error),
		failListen:  make(map[string]error),
	}
}

// FailOrderedQueries makes every ordered live query on collection report err
// asynchronously, the way a managed store reports a missing composite index.
func (s *Store) FailOrderedQueries(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOrdered[collection] = err
}

// FailListen makes Listen on collection return err synchronously, ordered or not
func (s *Store) FailListen(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failListen[collection] = err
}

// FailGet makes every one-shot Get return err
func (s *Store) FailGet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet = err
}

// Put appends documents to a collection and notifies matching live queries.
// Documents without an id get one.
func (s *Store) Put(collection string, docs ...repository.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = nuts.NID("doc", 16)
		}
		s.collections[collection] = append(s.collections[collection], doc)
	}
	for _, ln := range s.listeners {
		if ln.query.Collection == collection {
			ln.push(s.evaluate(ln.query))
		}
	}
}

// Listen implements repository.DocumentStore
func (s *Store) Listen(ctx context.Context, q repository.Query, l repository.Listener) (repository.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, repository.ErrClosed
	}
	if err := s.failListen[q.Collection]; err != nil {
		return nil, err
	}

	ln := &listener{
		query: q,
		l:     l,
		queue: make(chan []repository.Document, 16),
		done:  make(chan struct{}),
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = ln

	if err, ok := s.failOrdered[q.Collection]; ok && q.Ordered() {
		delete(s.listeners, id)
		go func() {
			select {
			case <-ln.done:
			case <-ctx.Done():
			default:
				if l.OnError != nil {
					l.OnError(fmt.Errorf("query %s: %w", q, err))
				}
			}
		}()
		return ln.stop, nil
	}

	go ln.run(ctx)
	ln.push(s.evaluate(q))

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
		ln.stop()
	}, nil
}

// Get implements repository.DocumentStore
func (s *Store) Get(ctx context.Context, q repository.Query) ([]repository.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, repository.ErrClosed
	}
	if s.failGet != nil {
		return nil, s.failGet
	}
	return s.evaluate(q), nil
}

// Close stops every live query
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ln := range s.listeners {
		ln.stop()
		delete(s.listeners, id)
	}
	return nil
}

// evaluate must be called with s.mu held
func (s *Store) evaluate(q repository.Query) []repository.Document {
	docs := append([]repository.Document(nil), s.collections[q.Collection]...)
	if q.Ordered() {
		sort.SliceStable(docs, func(i, j int) bool {
			a, b := docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy]
			if q.Direction == repository.Descending {
				return less(b, a)
			}
			return less(a, b)
		})
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs
}

// less orders values of the same kind; missing values sort first
func less(a, b interface{}) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case nil:
		return b != nil
	}
	return false
}

func (ln *listener) push(docs []repository.Document) {
	select {
	case <-ln.done:
		return
	default:
	}
	// Keep only the newest snapshot when the consumer lags behind
	for {
		select {
		case ln.queue <- docs:
			return
		default:
			select {
			case <-ln.queue:
			default:
			}
		}
	}
}

func (ln *listener) run(ctx context.Context) {
	for {
		select {
		case <-ln.done:
			return
		case <-ctx.Done():
			return
		case docs := <-ln.queue:
			if ln.l.OnSnapshot != nil {
				ln.l.OnSnapshot(docs)
			}
		}
	}
}

func (ln *listener) stop() {
	ln.stopOnce.Do(func() { close(ln.done) })
}
