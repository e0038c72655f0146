// Package ratelimit provides per-key fixed-window admission control placed
// in front of the agent loop.
package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/senja/internal/observability"
)

// Window is the fixed admission window length.
const Window = 60 * time.Second

// windowEntry tracks one key's current window.
type windowEntry struct {
	count       int
	windowStart time.Time
}

// Decision is the outcome of one admission check. RetryAfter is only
// meaningful when Allowed is false: the remaining whole seconds in the
// current window, rounded up, never below 1.
type Decision struct {
	Allowed    bool
	RetryAfter int
}

// Limiter is a fixed-window counter keyed by caller identity. The effective
// per-window ceiling is rpm + burst.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*windowEntry
	rpm     int
	burst   int
	now     func() time.Time
}

// NewLimiter creates a limiter admitting rpm+burst requests per 60s window.
func NewLimiter(rpm, burst int) *Limiter {
	return &Limiter{
		windows: make(map[string]*windowEntry),
		rpm:     rpm,
		burst:   burst,
		now:     time.Now,
	}
}

// Allow performs one admission check for key. A fresh or expired window is
// restarted with count 1 and admitted; otherwise the count is incremented and
// compared against the ceiling.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ceiling := l.rpm + l.burst

	entry, ok := l.windows[key]
	if !ok || now.Sub(entry.windowStart) >= Window {
		l.windows[key] = &windowEntry{count: 1, windowStart: now}
		return Decision{Allowed: true}
	}

	entry.count++
	if entry.count <= ceiling {
		return Decision{Allowed: true}
	}

	remaining := entry.windowStart.Add(Window).Sub(now)
	retryAfter := int(remaining / time.Second)
	if remaining%time.Second > 0 {
		retryAfter++
	}
	if retryAfter < 1 {
		retryAfter = 1
	}

	observability.RecordRateLimitRejection()
	log.Debug().
		Str("key", key).
		Int("count", entry.count).
		Int("ceiling", ceiling).
		Int("retry_after", retryAfter).
		Msg("Request rejected by rate limiter")

	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// Prune drops windows that have fully elapsed, bounding the key map.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, entry := range l.windows {
		if now.Sub(entry.windowStart) >= Window {
			delete(l.windows, key)
		}
	}
}
