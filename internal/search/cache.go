package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/yagnikpt/tunebox/internal/shared"
)

const (
	cachePrefix = "tunebox:search"
	// VersionKey holds the catalog version embedded in every cache key.
	VersionKey = cachePrefix + ":version"
	// InvalidateChannel carries the new catalog version after each write.
	InvalidateChannel = cachePrefix + ":invalidate"
	// DefaultCacheTTL is used when NewCache is given a non-positive TTL.
	DefaultCacheTTL = time.Minute
)

// RedisClient is the subset of [redis.Client] used by [Cache].
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Subscriber is the subset of [redis.Client] used by [Cache.Watch].
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// NewRedisClient parses a redis:// URL and connects lazily.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: redis url: %v", shared.ErrInvalidConfig, err)
	}
	return redis.NewClient(opts), nil
}

// Cache stores aggregated results in Redis keyed by catalog version and normalized query.
//
// Redis is never required: any cache error is logged and the search falls through to the wrapped
// [Searcher]. Failed searches are not cached.
type Cache struct {
	client   RedisClient
	searcher Searcher
	ttl      time.Duration
	logger   *log.Logger
}

// NewCache wraps searcher with a Redis read-through cache.
func NewCache(client RedisClient, searcher Searcher, ttl time.Duration, logger *log.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Cache{
		client:   client,
		searcher: searcher,
		ttl:      ttl,
		logger:   shared.WithLogger(logger, "component", "search-cache"),
	}
}

// Search returns cached results for query, or runs and caches the wrapped search.
func (c *Cache) Search(ctx context.Context, query string) (Results, error) {
	normalized := shared.NormalizeQuery(query)
	if normalized == "" {
		return c.searcher.Search(ctx, query)
	}

	key, ok := c.key(ctx, normalized)
	if !ok {
		return c.searcher.Search(ctx, query)
	}

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached Results
		if err := json.Unmarshal(data, &cached); err != nil {
			c.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
			break
		}
		cached.Query = query
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	results, err := c.searcher.Search(ctx, query)
	if err != nil {
		return results, err
	}

	if data, err := json.Marshal(results); err != nil {
		c.logger.Warn("failed to encode results", "query", normalized, "error", err)
	} else if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return results, nil
}

// Invalidate bumps the catalog version so every cached entry becomes unreachable, then announces
// the new version on [InvalidateChannel].
func (c *Cache) Invalidate(ctx context.Context) error {
	version, err := c.client.Incr(ctx, VersionKey).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to bump search cache version: %v", shared.ErrServiceUnavailable, err)
	}
	if err := c.client.Publish(ctx, InvalidateChannel, version).Err(); err != nil {
		return fmt.Errorf("%w: failed to publish search cache invalidation: %v", shared.ErrServiceUnavailable, err)
	}
	c.logger.Debug("search cache invalidated", "version", version)
	return nil
}

// Watch calls fn for every invalidation announced on [InvalidateChannel] until ctx is done.
func (c *Cache) Watch(ctx context.Context, sub Subscriber, fn func(version string)) error {
	pubsub := sub.Subscribe(ctx, InvalidateChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", InvalidateChannel, err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}

func (c *Cache) key(ctx context.Context, normalized string) (string, bool) {
	version, err := c.client.Get(ctx, VersionKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		version = "0"
	case err != nil:
		c.logger.Warn("cache version read failed", "error", err)
		return "", false
	}
	return fmt.Sprintf("%s:%s:%s", cachePrefix, version, normalized), true
}
