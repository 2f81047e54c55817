// FilePath: internal/repository/redis/redis.viewcache.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itsatony/soundscape/hub/internal/repository"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultKey     = "soundscape:dashboard:view"
	defaultChannel = "soundscape:dashboard:updates"
)

// ViewCache stores the latest dashboard view under a key and announces each
// new view on a pub/sub channel
type ViewCache struct {
	client  *goredis.Client
	key     string
	channel string
}

// NewViewCache creates a cache on an established client. Empty key or
// channel fall back to the defaults.
func NewViewCache(client *goredis.Client, key, channel string) *ViewCache {
	if key == "" {
		key = defaultKey
	}
	if channel == "" {
		channel = defaultChannel
	}
	return &ViewCache{client: client, key: key, channel: channel}
}

// Save implements repository.ViewCache
func (c *ViewCache) Save(ctx context.Context, view []byte, ttl time.Duration) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key, view, ttl)
	pipe.Publish(ctx, c.channel, view)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save view: %w", err)
	}
	return nil
}

// Latest implements repository.ViewCache
func (c *ViewCache) Latest(ctx context.Context) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read view: %w", err)
	}
	return data, nil
}

// Close implements repository.ViewCache
func (c *ViewCache) Close() error {
	return c.client.Close()
}
