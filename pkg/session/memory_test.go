package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/senja/pkg/agent"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("should round-trip an entry", func(t *testing.T) {
		s := NewMemoryStore()
		entry := Entry{
			Messages:     []agent.Message{{Role: agent.RoleUser, Content: "hi"}},
			LastActivity: time.Now(),
		}
		require.NoError(t, s.Set(ctx, "s1", entry))

		got, ok, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entry.Messages, got.Messages)
	})

	t.Run("should report absent ids", func(t *testing.T) {
		s := NewMemoryStore()
		_, ok, err := s.Get(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should isolate sessions by id", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Set(ctx, "a", Entry{Messages: []agent.Message{{Role: agent.RoleUser, Content: "for a"}}}))
		require.NoError(t, s.Set(ctx, "b", Entry{Messages: []agent.Message{{Role: agent.RoleUser, Content: "for b"}}}))

		gotA, _, err := s.Get(ctx, "a")
		require.NoError(t, err)
		gotB, _, err := s.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "for a", gotA.Messages[0].Content)
		assert.Equal(t, "for b", gotB.Messages[0].Content)
	})

	t.Run("should delete without error for absent ids", func(t *testing.T) {
		s := NewMemoryStore()
		assert.NoError(t, s.Delete(ctx, "ghost"))
	})

	t.Run("should evict only entries older than maxAge", func(t *testing.T) {
		s := NewMemoryStore()
		base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return base }

		require.NoError(t, s.Set(ctx, "stale", Entry{LastActivity: base.Add(-31 * time.Minute)}))
		require.NoError(t, s.Set(ctx, "fresh", Entry{LastActivity: base.Add(-5 * time.Minute)}))

		evicted, err := s.Cleanup(ctx, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, evicted)

		_, ok, _ := s.Get(ctx, "stale")
		assert.False(t, ok)
		_, ok, _ = s.Get(ctx, "fresh")
		assert.True(t, ok)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("should keep an entry exactly at maxAge", func(t *testing.T) {
		s := NewMemoryStore()
		base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return base }

		require.NoError(t, s.Set(ctx, "edge", Entry{LastActivity: base.Add(-30 * time.Minute)}))

		evicted, err := s.Cleanup(ctx, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 0, evicted)
	})
}

func TestEntryAppend(t *testing.T) {
	t.Run("should append without mutating the original", func(t *testing.T) {
		base := Entry{
			Messages:     []agent.Message{{Role: agent.RoleUser, Content: "first"}},
			LastActivity: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
		}
		now := time.Date(2026, 8, 26, 11, 0, 0, 0, time.UTC)

		next := base.Append(now,
			agent.Message{Role: agent.RoleAssistant, Content: "second"},
		)

		assert.Len(t, base.Messages, 1)
		require.Len(t, next.Messages, 2)
		assert.Equal(t, "second", next.Messages[1].Content)
		assert.Equal(t, now, next.LastActivity)
	})
}
