package search

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// fakeRedis is an in-memory [RedisClient]. Setting err makes every command fail.
type fakeRedis struct {
	mu        sync.Mutex
	values    map[string]string
	ttls      map[string]time.Duration
	published []string
	err       error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	n, _ := strconv.ParseInt(f.values[key], 10, 64)
	n++
	f.values[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.published = append(f.published, channel)
	return redis.NewIntResult(1, nil)
}

// failingSearcher counts calls and always fails.
type failingSearcher struct{ calls int }

func (s *failingSearcher) Search(ctx context.Context, query string) (Results, error) {
	s.calls++
	return Results{Query: query, HasSearched: true}, errors.New("catalog offline")
}

func newTestCache(client RedisClient, s Searcher) *Cache {
	return NewCache(client, s, time.Minute, shared.NewLogger(io.Discard))
}

func TestCache(t *testing.T) {
	ctx := context.Background()

	t.Run("read through", func(t *testing.T) {
		client, s := newFakeRedis(), &stubSearcher{}
		cache := newTestCache(client, s)

		first, err := cache.Search(ctx, "Love")
		require.NoError(t, err)
		second, err := cache.Search(ctx, "  LOVE ")
		require.NoError(t, err)

		assert.Equal(t, []string{"Love"}, s.calls())
		assert.Equal(t, "  LOVE ", second.Query)
		require.Equal(t, first.Len(), second.Len())
		assert.Equal(t, first.Items[0].Score(), second.Items[0].Score())
		assert.Equal(t, time.Minute, client.ttls["tunebox:search:0:love"])
	})

	t.Run("invalidate bumps version", func(t *testing.T) {
		client, s := newFakeRedis(), &stubSearcher{}
		cache := newTestCache(client, s)

		_, err := cache.Search(ctx, "love")
		require.NoError(t, err)
		require.NoError(t, cache.Invalidate(ctx))
		_, err = cache.Search(ctx, "love")
		require.NoError(t, err)

		assert.Len(t, s.calls(), 2)
		assert.Equal(t, "1", client.values[VersionKey])
		assert.Contains(t, client.values, "tunebox:search:1:love")
		assert.Equal(t, []string{InvalidateChannel}, client.published)
	})

	t.Run("redis errors fall back", func(t *testing.T) {
		client, s := newFakeRedis(), &stubSearcher{}
		client.err = errors.New("connection refused")
		cache := newTestCache(client, s)

		for range 2 {
			results, err := cache.Search(ctx, "love")
			require.NoError(t, err)
			assert.Equal(t, 1, results.Len())
		}
		assert.Len(t, s.calls(), 2)
		assert.ErrorIs(t, cache.Invalidate(ctx), shared.ErrServiceUnavailable)
	})

	t.Run("corrupt entry is replaced", func(t *testing.T) {
		client, s := newFakeRedis(), &stubSearcher{}
		client.values["tunebox:search:0:love"] = "{not json"
		cache := newTestCache(client, s)

		results, err := cache.Search(ctx, "love")
		require.NoError(t, err)
		assert.Equal(t, 1, results.Len())
		assert.NotEqual(t, "{not json", client.values["tunebox:search:0:love"])
	})

	t.Run("failures are not cached", func(t *testing.T) {
		client, s := newFakeRedis(), &failingSearcher{}
		cache := newTestCache(client, s)

		_, err := cache.Search(ctx, "love")
		require.Error(t, err)
		_, err = cache.Search(ctx, "love")
		require.Error(t, err)

		assert.Equal(t, 2, s.calls)
		assert.NotContains(t, client.values, "tunebox:search:0:love")
	})

	t.Run("blank query bypasses redis", func(t *testing.T) {
		client, s := newFakeRedis(), &stubSearcher{}
		cache := newTestCache(client, s)

		_, err := cache.Search(ctx, "  ")
		require.NoError(t, err)
		assert.Empty(t, client.values)
		assert.Equal(t, []string{"  "}, s.calls())
	})
}
