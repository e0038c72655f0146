// Package session holds conversation history keyed by an opaque session id,
// with TTL-based eviction. Backends are pluggable so the HTTP layer can pick
// one without the agent loop knowing which.
package session

import (
	"context"
	"time"

	"github.com/harun/senja/pkg/agent"
)

// DefaultTTL is how long a stored entry survives without activity.
const DefaultTTL = 30 * time.Minute

// Entry is one session's conversation state. Entries are append-only within
// a session id: callers append messages and bump LastActivity, never edit in
// place.
type Entry struct {
	Messages     []agent.Message `json:"messages"`
	LastActivity time.Time       `json:"last_activity"`
}

// Append returns a copy of the entry with msgs appended and LastActivity
// bumped to now.
func (e Entry) Append(now time.Time, msgs ...agent.Message) Entry {
	combined := make([]agent.Message, 0, len(e.Messages)+len(msgs))
	combined = append(combined, e.Messages...)
	combined = append(combined, msgs...)
	return Entry{Messages: combined, LastActivity: now}
}

// Store is the session backend contract.
type Store interface {
	// Get returns the entry for id, reporting whether it exists.
	Get(ctx context.Context, id string) (Entry, bool, error)

	// Set stores the entry for id, replacing any previous value.
	Set(ctx context.Context, id string, entry Entry) error

	// Delete removes the entry for id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup evicts every entry whose LastActivity is older than maxAge at
	// evaluation time and returns how many were removed.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
}
