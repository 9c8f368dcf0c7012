package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the in-flight session state cached for quick access.
// Entries expire by TTL, which is how abandoned sessions disappear.
type ActiveSession struct {
	SessionID      int64  `json:"session_id"`
	UserID         int64  `json:"user_id"`
	ProfessionalID int64  `json:"professional_id"`
	Type           string `json:"consultation_type"`
	State          string `json:"state"`
}

// ActiveStore manages the redis cache of in-flight sessions.
type ActiveStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewActiveStore returns a redis-backed store.
func NewActiveStore(client *redis.Client, ttl time.Duration) *ActiveStore {
	return &ActiveStore{client: client, ttl: ttl}
}

func (s *ActiveStore) key(sessionID int64) string {
	return fmt.Sprintf("quickconnect:sessions:active:%d", sessionID)
}

// Save caches the session state.
func (s *ActiveStore) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.SessionID), data, s.ttl).Err()
}

// Get returns the cached state.
func (s *ActiveStore) Get(ctx context.Context, sessionID int64) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the cached state.
func (s *ActiveStore) Delete(ctx context.Context, sessionID int64) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}
