package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"inkwell/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by FeedCache.Get when no live snapshot exists.
var ErrCacheMiss = errors.New("cache: miss")

// FeedCache stores one snapshot of the presented index listing.
// Writes to posts never touch it; a snapshot lives until its TTL expires or Clear is called.
type FeedCache interface {
	Get(ctx context.Context) ([]models.Post, error)
	Set(ctx context.Context, posts []models.Post) error
	Clear(ctx context.Context) error
	TTL() time.Duration
}

// NewFeedCache returns a Redis-backed cache when client is non-nil, otherwise an in-process one.
func NewFeedCache(client *redis.Client, ttl time.Duration) FeedCache {
	if client != nil {
		return NewRedisFeedCache(client, ttl)
	}
	return NewMemoryFeedCache(ttl)
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultFeedTTL
	}
	return ttl
}

// RedisFeedCache keeps the snapshot as a JSON document under FeedIndexKey.
type RedisFeedCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisFeedCache creates a feed cache stored in Redis.
func NewRedisFeedCache(client *redis.Client, ttl time.Duration) *RedisFeedCache {
	return &RedisFeedCache{client: client, key: FeedIndexKey, ttl: normalizeTTL(ttl)}
}

func (c *RedisFeedCache) Get(ctx context.Context) ([]models.Post, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get feed snapshot: %w", err)
	}

	var posts []models.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("decode feed snapshot: %w", err)
	}
	return posts, nil
}

func (c *RedisFeedCache) Set(ctx context.Context, posts []models.Post) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("encode feed snapshot: %w", err)
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}

func (c *RedisFeedCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

func (c *RedisFeedCache) TTL() time.Duration { return c.ttl }

// MemoryFeedCache keeps the snapshot in process memory.
type MemoryFeedCache struct {
	mu      sync.RWMutex
	posts   []models.Post
	expires time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryFeedCache creates an in-process feed cache.
func NewMemoryFeedCache(ttl time.Duration) *MemoryFeedCache {
	return &MemoryFeedCache{ttl: normalizeTTL(ttl), now: time.Now}
}

func (c *MemoryFeedCache) Get(_ context.Context) ([]models.Post, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.posts == nil || !c.now().Before(c.expires) {
		return nil, ErrCacheMiss
	}
	out := make([]models.Post, len(c.posts))
	copy(out, c.posts)
	return out, nil
}

func (c *MemoryFeedCache) Set(_ context.Context, posts []models.Post) error {
	snapshot := make([]models.Post, len(posts))
	copy(snapshot, posts)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = snapshot
	c.expires = c.now().Add(c.ttl)
	return nil
}

func (c *MemoryFeedCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = nil
	c.expires = time.Time{}
	return nil
}

func (c *MemoryFeedCache) TTL() time.Duration { return c.ttl }
