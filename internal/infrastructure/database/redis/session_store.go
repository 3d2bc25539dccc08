// internal/infrastructure/database/redis/session_store.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps one JSON document per session under
// "<namespace>:<session id>". Every save refreshes the TTL.
type SessionStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewSessionStore creates a store for the given key namespace
func NewSessionStore(client *redis.Client, namespace string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
	}
}

func (s *SessionStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.namespace, sessionID)
}

// Load decodes the stored document into dest. It reports false when
// nothing is stored for the session.
func (s *SessionStore) Load(ctx context.Context, sessionID string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", s.namespace, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", s.namespace, err)
	}
	return true, nil
}

// Save encodes value and stores it for the session
func (s *SessionStore) Save(ctx context.Context, sessionID string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.namespace, err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.namespace, err)
	}
	return nil
}

// Delete drops the session's document
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", s.namespace, err)
	}
	return nil
}
