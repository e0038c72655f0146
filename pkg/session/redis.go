package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/harun/senja/internal/observability"
)

const redisKeyPrefix = "senja:session:"

// RedisStore fronts a redis backend. Entries are stored with a fixed native
// TTL; Cleanup additionally sweeps by application-level LastActivity, because
// the native TTL measures "stored since", not "used since".
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a redis-backed store. ttl <= 0 uses DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Get returns the entry for id. A key expired by the backend is absent, not
// an error.
func (s *RedisStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return entry, true, nil
}

// Set stores the entry for id with the store's fixed TTL.
func (s *RedisStore) Set(ctx context.Context, id string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", id, err)
	}

	if err := s.client.Set(ctx, redisKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session %s: %w", id, err)
	}
	return nil
}

// Delete removes the entry for id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Cleanup sweeps the key prefix and removes entries whose LastActivity has
// exceeded maxAge even if the native TTL has not yet fired. Keys the backend
// expired mid-sweep are treated as already absent.
func (s *RedisStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	now := s.now()
	evicted := 0

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return evicted, fmt.Errorf("failed to read %s during sweep: %w", key, err)
		}

		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			// Undecodable entries cannot age out on their own; drop them.
			log.Warn().Str("key", key).Err(err).Msg("Removing undecodable session entry")
			s.client.Del(ctx, key)
			evicted++
			continue
		}

		if now.Sub(entry.LastActivity) > maxAge {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return evicted, fmt.Errorf("failed to evict %s: %w", key, err)
			}
			evicted++
		}
	}
	if err := iter.Err(); err != nil {
		return evicted, fmt.Errorf("session sweep scan failed: %w", err)
	}

	observability.RecordSessionsEvicted(evicted)
	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Msg("Session cleanup pass completed")
	}
	return evicted, nil
}
