// FilePath: internal/repository/repository.go
package repository

//go:generate mockgen -destination=mock_repository.go -package=repository github.com/itsatony/soundscape/hub/internal/repository DocumentStore,ViewCache,ClipStore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrUnknownCollection indicates that a backend has no mapping for a collection
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrUnknownField indicates that a query references a field the backend cannot order by
	ErrUnknownField = errors.New("unknown field")
	// ErrClosed indicates that the store was closed
	ErrClosed = errors.New("store closed")
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
)

// Direction of an ordering clause
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Query selects the most recent documents of one collection.
// An empty OrderBy means unordered (store-native order).
type Query struct {
	Collection string
	OrderBy    string
	Direction  Direction
	Limit      int
}

// Ordered reports whether the query carries an ordering clause
func (q Query) Ordered() bool {
	return q.OrderBy != ""
}

// Unordered returns a copy of q with the ordering clause dropped
func (q Query) Unordered() Query {
	q.OrderBy = ""
	q.Direction = Ascending
	return q
}

func (q Query) String() string {
	if !q.Ordered() {
		return fmt.Sprintf("%s limit %d", q.Collection, q.Limit)
	}
	return fmt.Sprintf("%s order by %s %s limit %d", q.Collection, q.OrderBy, q.Direction, q.Limit)
}

// Document is a stored document: a stable id plus arbitrary fields
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Listener receives the deliveries of one live query.
// OnSnapshot always carries the full current result set.
// OnError is called at most once; the subscription is dead afterwards.
type Listener struct {
	OnSnapshot func(docs []Document)
	OnError    func(err error)
}

// Unsubscribe releases a live query. Calling it more than once is harmless.
type Unsubscribe func()

// DocumentStore is the managed document database the dashboard reads from
type DocumentStore interface {
	// Listen opens a live query. An error returned here means the query could
	// not be established at all; errors after establishment go to l.OnError.
	Listen(ctx context.Context, q Query, l Listener) (Unsubscribe, error)
	// Get runs q once
	Get(ctx context.Context, q Query) ([]Document, error)
	Close() error
}

// ViewCache keeps the latest rendered dashboard view for other readers
type ViewCache interface {
	Save(ctx context.Context, view []byte, ttl time.Duration) error
	Latest(ctx context.Context) ([]byte, error)
	Close() error
}

// Clip describes a stored bat call recording
type Clip struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// ClipStore serves bat call recordings saved by the edge detector
type ClipStore interface {
	Get(ctx context.Context, name string) (*Clip, error)
	Exists(name string) bool
	Stream(ctx context.Context, clip *Clip, w io.Writer) error
}
