package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/senja/pkg/agent"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, 30*time.Minute), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("should round-trip an entry", func(t *testing.T) {
		s, _ := newTestRedisStore(t)
		entry := Entry{
			Messages:     []agent.Message{{Role: agent.RoleUser, Content: "hi"}},
			LastActivity: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		}
		require.NoError(t, s.Set(ctx, "s1", entry))

		got, ok, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entry.Messages, got.Messages)
		assert.True(t, entry.LastActivity.Equal(got.LastActivity))
	})

	t.Run("should report absent ids", func(t *testing.T) {
		s, _ := newTestRedisStore(t)
		_, ok, err := s.Get(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should store entries under the key prefix with a TTL", func(t *testing.T) {
		s, mr := newTestRedisStore(t)
		require.NoError(t, s.Set(ctx, "s1", Entry{LastActivity: time.Now()}))

		key := redisKey("s1")
		assert.True(t, mr.Exists(key))
		assert.Greater(t, mr.TTL(key), time.Duration(0))
	})

	t.Run("should treat backend-expired keys as absent", func(t *testing.T) {
		s, mr := newTestRedisStore(t)
		require.NoError(t, s.Set(ctx, "s1", Entry{LastActivity: time.Now()}))

		mr.FastForward(31 * time.Minute)

		_, ok, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should delete entries", func(t *testing.T) {
		s, _ := newTestRedisStore(t)
		require.NoError(t, s.Set(ctx, "s1", Entry{LastActivity: time.Now()}))
		require.NoError(t, s.Delete(ctx, "s1"))

		_, ok, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should sweep entries stale by last activity", func(t *testing.T) {
		s, _ := newTestRedisStore(t)
		base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return base }

		require.NoError(t, s.Set(ctx, "stale", Entry{LastActivity: base.Add(-45 * time.Minute)}))
		require.NoError(t, s.Set(ctx, "fresh", Entry{LastActivity: base.Add(-1 * time.Minute)}))

		evicted, err := s.Cleanup(ctx, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, evicted)

		_, ok, _ := s.Get(ctx, "stale")
		assert.False(t, ok)
		_, ok, _ = s.Get(ctx, "fresh")
		assert.True(t, ok)
	})

	t.Run("should drop undecodable entries during the sweep", func(t *testing.T) {
		s, mr := newTestRedisStore(t)
		require.NoError(t, mr.Set(redisKey("junk"), "not json"))

		evicted, err := s.Cleanup(ctx, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, evicted)
		assert.False(t, mr.Exists(redisKey("junk")))
	})

	t.Run("should ignore keys outside the prefix", func(t *testing.T) {
		s, mr := newTestRedisStore(t)
		require.NoError(t, mr.Set("unrelated", "value"))

		evicted, err := s.Cleanup(ctx, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 0, evicted)
		assert.True(t, mr.Exists("unrelated"))
	})
}
