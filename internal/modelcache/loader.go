package modelcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fronts an expensive lookup with a Cache and collapses concurrent
// loads of the same key into one call.
type Loader struct {
	cache  Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func NewLoader(cache Cache, ttl time.Duration, logger *slog.Logger) *Loader {
	return &Loader{cache: cache, ttl: ttl, logger: logger}
}

// Invalidate drops a cached value, e.g. after a new job is submitted.
func (l *Loader) Invalidate(ctx context.Context, key string) {
	if err := l.cache.Delete(ctx, key); err != nil {
		l.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// Load returns the cached value for key or calls load and caches its
// result. Cache failures are logged and fall through to load. Errors from
// load are never cached.
func Load[T any](ctx context.Context, l *Loader, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if data, err := l.cache.Get(ctx, key); err != nil {
		l.logger.Warn("cache get failed", "key", key, "error", err)
	} else if data != nil {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
	}

	res, err, _ := l.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(v); err == nil {
			if err := l.cache.Set(ctx, key, data, l.ttl); err != nil {
				l.logger.Warn("cache set failed", "key", key, "error", err)
			}
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}
