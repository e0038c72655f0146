package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/senja/internal/observability"
)

// MemoryStore is the in-process backend: a mutex-guarded map cleared only by
// Cleanup or process exit.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Get returns the entry for id.
func (s *MemoryStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	return entry, ok, nil
}

// Set stores the entry for id.
func (s *MemoryStore) Set(ctx context.Context, id string, entry Entry) error {
	s.mu.Lock()
	s.entries[id] = entry
	count := len(s.entries)
	s.mu.Unlock()

	observability.SetActiveSessions(count)
	return nil
}

// Delete removes the entry for id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	count := len(s.entries)
	s.mu.Unlock()

	observability.SetActiveSessions(count)
	return nil
}

// Cleanup evicts entries whose LastActivity is older than maxAge.
func (s *MemoryStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	now := s.now()

	s.mu.Lock()
	evicted := 0
	for id, entry := range s.entries {
		if now.Sub(entry.LastActivity) > maxAge {
			delete(s.entries, id)
			evicted++
		}
	}
	count := len(s.entries)
	s.mu.Unlock()

	observability.SetActiveSessions(count)
	observability.RecordSessionsEvicted(evicted)

	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Msg("Session cleanup pass completed")
	}
	return evicted, nil
}

// Len returns the current entry count.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
