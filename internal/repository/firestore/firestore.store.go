// FilePath: internal/repository/firestore/firestore.store.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gfs "cloud.google.com/go/firestore"
	"github.com/itsatony/soundscape/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config holds the connection parameters for the managed store
type Config struct {
	ProjectID       string
	CredentialsFile string
	DatabaseID      string
}

// Store reads documents from Cloud Firestore using realtime query snapshots
type Store struct {
	client *gfs.Client
}

// NewStore connects to Firestore. Without a credentials file the application
// default credentials are used.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var (
		client *gfs.Client
		err    error
	)
	if cfg.DatabaseID != "" {
		client, err = gfs.NewClientWithDatabase(ctx, cfg.ProjectID, cfg.DatabaseID, opts...)
	} else {
		client, err = gfs.NewClient(ctx, cfg.ProjectID, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("error connecting to Firestore: %w", err)
	}

	nuts.L.Infof("[Firestore] Connected to project %s", cfg.ProjectID)
	return &Store{client: client}, nil
}

func (s *Store) query(q repository.Query) gfs.Query {
	query := s.client.Collection(q.Collection).Query
	if q.Ordered() {
		dir := gfs.Asc
		if q.Direction == repository.Descending {
			dir = gfs.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

// Listen implements repository.DocumentStore. Firestore reports query errors
// such as a missing composite index on the first Next, so they reach l.OnError.
func (s *Store) Listen(ctx context.Context, q repository.Query, l repository.Listener) (repository.Unsubscribe, error) {
	if q.Collection == "" {
		return nil, repository.ErrUnknownCollection
	}

	ctx, cancel := context.WithCancel(ctx)
	it := s.query(q).Snapshots(ctx)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			it.Stop()
		})
	}

	go func() {
		for {
			snap, err := it.Next()
			if err != nil {
				if isStopped(ctx, err) {
					return
				}
				if l.OnError != nil {
					l.OnError(describe(q, err))
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				if isStopped(ctx, err) {
					return
				}
				if l.OnError != nil {
					l.OnError(describe(q, err))
				}
				return
			}
			if l.OnSnapshot != nil {
				l.OnSnapshot(convert(docs))
			}
		}
	}()

	return stop, nil
}

// Get implements repository.DocumentStore
func (s *Store) Get(ctx context.Context, q repository.Query) ([]repository.Document, error) {
	docs, err := s.query(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, describe(q, err)
	}
	return convert(docs), nil
}

// Close releases the client
func (s *Store) Close() error {
	return s.client.Close()
}

func convert(snaps []*gfs.DocumentSnapshot) []repository.Document {
	docs := make([]repository.Document, 0, len(snaps))
	for _, snap := range snaps {
		if snap == nil || !snap.Exists() {
			continue
		}
		docs = append(docs, repository.Document{
			ID:   snap.Ref.ID,
			Data: snap.Data(),
		})
	}
	return docs
}

func isStopped(ctx context.Context, err error) bool {
	if errors.Is(err, iterator.Done) {
		return true
	}
	if ctx.Err() != nil {
		return true
	}
	return status.Code(err) == codes.Canceled
}

func describe(q repository.Query, err error) error {
	if status.Code(err) == codes.FailedPrecondition {
		return fmt.Errorf("query %s needs an index: %w", q, err)
	}
	return fmt.Errorf("query %s: %w", q, err)
}
