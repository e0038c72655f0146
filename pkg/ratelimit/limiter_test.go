package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllow(t *testing.T) {
	t.Run("should admit up to rpm plus burst in one window", func(t *testing.T) {
		l := NewLimiter(2, 0)

		assert.True(t, l.Allow("1.2.3.4").Allowed)
		assert.True(t, l.Allow("1.2.3.4").Allowed)

		d := l.Allow("1.2.3.4")
		assert.False(t, d.Allowed)
		assert.GreaterOrEqual(t, d.RetryAfter, 1)
		assert.LessOrEqual(t, d.RetryAfter, 60)
	})

	t.Run("should count burst on top of rpm", func(t *testing.T) {
		l := NewLimiter(1, 2)

		for i := 0; i < 3; i++ {
			assert.True(t, l.Allow("k").Allowed, "request %d", i+1)
		}
		assert.False(t, l.Allow("k").Allowed)
	})

	t.Run("should track keys independently", func(t *testing.T) {
		l := NewLimiter(1, 0)

		assert.True(t, l.Allow("a").Allowed)
		assert.False(t, l.Allow("a").Allowed)
		assert.True(t, l.Allow("b").Allowed)
	})

	t.Run("should reset after the window elapses", func(t *testing.T) {
		l := NewLimiter(1, 0)
		base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return base }

		assert.True(t, l.Allow("k").Allowed)
		assert.False(t, l.Allow("k").Allowed)

		l.now = func() time.Time { return base.Add(Window) }
		assert.True(t, l.Allow("k").Allowed)
	})

	t.Run("should round retry-after up to whole seconds", func(t *testing.T) {
		l := NewLimiter(1, 0)
		base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return base }

		require.True(t, l.Allow("k").Allowed)

		// 10.5s into the window leaves 49.5s; clients must wait 50.
		l.now = func() time.Time { return base.Add(10*time.Second + 500*time.Millisecond) }
		d := l.Allow("k")
		require.False(t, d.Allowed)
		assert.Equal(t, 50, d.RetryAfter)
	})

	t.Run("should never report a retry-after below one second", func(t *testing.T) {
		l := NewLimiter(1, 0)
		base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return base }

		require.True(t, l.Allow("k").Allowed)

		l.now = func() time.Time { return base.Add(Window - time.Millisecond) }
		d := l.Allow("k")
		require.False(t, d.Allowed)
		assert.Equal(t, 1, d.RetryAfter)
	})
}

func TestLimiterPrune(t *testing.T) {
	t.Run("should drop fully elapsed windows", func(t *testing.T) {
		l := NewLimiter(1, 0)
		base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return base }

		l.Allow("old")
		l.now = func() time.Time { return base.Add(30 * time.Second) }
		l.Allow("recent")

		l.now = func() time.Time { return base.Add(Window) }
		l.Prune()

		l.mu.Lock()
		defer l.mu.Unlock()
		assert.NotContains(t, l.windows, "old")
		assert.Contains(t, l.windows, "recent")
	})
}
