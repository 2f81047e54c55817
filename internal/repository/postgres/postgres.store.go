// FilePath: internal/repository/postgres/postgres.store.go
package postgres

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/itsatony/soundscape/hub/internal/database"
	"github.com/itsatony/soundscape/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

const (
	defaultPollInterval = 5 * time.Second
	maxLimit            = 1000
)

// Store reads the edge device's PostgreSQL tables directly. Live queries are
// polled; a snapshot is delivered whenever the window of document ids changes.
type Store struct {
	PostgresBaseRepo
	interval time.Duration
}

// NewStore creates a polling document store on top of db
func NewStore(db database.DB, interval time.Duration) *Store {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Store{
		PostgresBaseRepo: PostgresBaseRepo{db: db},
		interval:         interval,
	}
}

// Listen implements repository.DocumentStore. Unknown collections or order
// fields fail synchronously; a failing first poll goes to l.OnError. Later
// poll failures are logged and the previous snapshot stays current.
func (s *Store) Listen(ctx context.Context, q repository.Query, l repository.Listener) (repository.Unsubscribe, error) {
	stmt, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	var once sync.Once
	stop := func() { once.Do(cancel) }

	go s.poll(ctx, stmt, q, l)
	return stop, nil
}

func (s *Store) poll(ctx context.Context, stmt string, q repository.Query, l repository.Listener) {
	docs, err := s.run(ctx, stmt, q.Limit)
	if err != nil {
		if ctx.Err() == nil && l.OnError != nil {
			l.OnError(err)
		}
		return
	}
	last := fingerprint(docs)
	if l.OnSnapshot != nil {
		l.OnSnapshot(docs)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			docs, err := s.run(ctx, stmt, q.Limit)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				nuts.L.Warnf("[PostgresStore] Poll of %s failed: %v", q, err)
				continue
			}
			fp := fingerprint(docs)
			if fp == last {
				continue
			}
			last = fp
			if ctx.Err() == nil && l.OnSnapshot != nil {
				l.OnSnapshot(docs)
			}
		}
	}
}

// Get implements repository.DocumentStore
func (s *Store) Get(ctx context.Context, q repository.Query) ([]repository.Document, error) {
	stmt, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, stmt, q.Limit)
}

func (s *Store) run(ctx context.Context, stmt string, limit int) ([]repository.Document, error) {
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	rows, err := s.QueryxContext(ctx, stmt, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []repository.Document{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		docs = append(docs, toDocument(row))
	}
	return docs, rows.Err()
}

func toDocument(row map[string]interface{}) repository.Document {
	var id string
	switch v := row["id"].(type) {
	case string:
		id = v
	case []byte:
		id = string(v)
	}
	delete(row, "id")
	return repository.Document{ID: id, Data: row}
}

// Documents are immutable once written, so the ordered id list identifies a window
func fingerprint(docs []repository.Document) string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return strings.Join(ids, ",")
}
