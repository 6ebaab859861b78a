package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// Session is the server side half of a login; the cookie only carries its id.
type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionStore struct {
	client *redisv9.Client
}

func NewSessionStore(client *redisv9.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) SaveSession(ctx context.Context, session Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	return nil
}

// GetSession returns nil, nil for unknown or expired sessions.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session failed: %w", err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

func (s *SessionStore) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, stateKey(state), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set oauth state failed: %w", err)
	}
	return nil
}

// ConsumeState reports whether state was issued and not yet used.
func (s *SessionStore) ConsumeState(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	err := s.client.GetDel(ctx, stateKey(state)).Err()
	if errors.Is(err, redisv9.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis consume oauth state failed: %w", err)
	}
	return true, nil
}

func sessionKey(id string) string {
	return "auth:session:" + id
}

func stateKey(state string) string {
	return "auth:oauth_state:" + state
}
