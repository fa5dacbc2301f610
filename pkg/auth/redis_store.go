package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "session:"

// RedisStore reads sessions from Redis. Used when multiple replicas share
// session state; the identity subsystem writes entries with a TTL so
// expiry needs no sweeping.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Lookup returns the session for a token hash, or (nil, nil) when absent.
func (s *RedisStore) Lookup(ctx context.Context, tokenHash string) (*Session, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+tokenHash).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis session lookup failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		// Corrupt entry: drop it rather than failing every validation.
		s.client.Del(ctx, redisKeyPrefix+tokenHash)
		return nil, fmt.Errorf("corrupt session entry: %w", err)
	}
	if session.Expired(time.Now()) {
		return nil, nil
	}
	return &session, nil
}

// Put stores a session with a TTL matching its expiry.
func (s *RedisStore) Put(ctx context.Context, token, userID string, expiresAt time.Time) error {
	session := Session{UserID: userID, ExpiresAt: expiresAt}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	if err := s.client.Set(ctx, redisKeyPrefix+HashToken(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis session write failed: %w", err)
	}
	return nil
}
