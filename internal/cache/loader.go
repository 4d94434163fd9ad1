package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// LoadFunc produces a fresh index listing from the database.
type LoadFunc func(ctx context.Context) ([]models.Post, error)

// Feed serves the index listing through a FeedCache, loading it on a miss.
// Concurrent misses share a single load. A Clear bumps the generation, so a
// load that started before it neither stores its snapshot nor serves later callers.
type Feed struct {
	store FeedCache
	load  LoadFunc
	group singleflight.Group
	gen   atomic.Uint64
	// mu orders a snapshot write against Clear
	mu sync.Mutex
}

// NewFeed wires a cache store to its loader.
func NewFeed(store FeedCache, load LoadFunc) *Feed {
	return &Feed{store: store, load: load}
}

// Posts returns the cached snapshot, or loads and stores a new one.
// Cache backend failures degrade to a direct load.
func (f *Feed) Posts(ctx context.Context) ([]models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "feed", "posts")

	posts, err := f.store.Get(ctx)
	switch {
	case err == nil:
		observability.FeedCacheRequests.WithLabelValues(observability.CacheHit).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		observability.EndSpan(span, nil)
		return posts, nil
	case errors.Is(err, ErrCacheMiss):
		observability.FeedCacheRequests.WithLabelValues(observability.CacheMiss).Inc()
	default:
		observability.FeedCacheRequests.WithLabelValues(observability.CacheError).Inc()
		middleware.Logger.WarnContext(ctx, "feed cache read failed", slog.String("error", err.Error()))
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	gen := f.gen.Load()
	// the shared load outlives any single caller's cancellation
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := f.group.Do(FeedIndexKey+":"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		loaded, loadErr := f.load(loadCtx)
		if loadErr != nil {
			return nil, loadErr
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.gen.Load() != gen {
			return loaded, nil
		}
		if setErr := f.store.Set(loadCtx, loaded); setErr != nil {
			middleware.Logger.WarnContext(loadCtx, "feed cache write failed", slog.String("error", setErr.Error()))
		}
		return loaded, nil
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return v.([]models.Post), nil
}

// Clear drops the snapshot so the next read reloads it.
func (f *Feed) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen.Add(1)
	if err := f.store.Clear(ctx); err != nil {
		return err
	}
	observability.FeedCacheClears.Inc()
	return nil
}

// TTL reports how long a snapshot lives.
func (f *Feed) TTL() time.Duration {
	return f.store.TTL()
}
