// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	xerrors "subpass-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// Manager tracks issued sessions in Redis. A token is only honored while its
// (address, jti) record exists, so logout and revocation take effect
// immediately regardless of the token's own expiry.
type Manager struct {
	client *redis.Client
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{client: client}
}

// CreateSession stores a new session record under the token's TTL.
func (m *Manager) CreateSession(ctx context.Context, s *SessionData) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.client.Set(ctx, m.sessionKey(s.Address, s.JTI), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// GetSession retrieves a session. A missing record means the session was
// revoked or expired.
func (m *Manager) GetSession(ctx context.Context, address, jti string) (*SessionData, error) {
	data, err := m.client.Get(ctx, m.sessionKey(address, jti)).Bytes()
	if err == redis.Nil {
		return nil, xerrors.Wrap(xerrors.ErrSessionExpired, "session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s SessionData
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	s.LastActivityAt = time.Now()
	go m.touch(context.Background(), &s)

	return &s, nil
}

// InvalidateSession removes one session record.
func (m *Manager) InvalidateSession(ctx context.Context, address, jti string) error {
	return m.client.Del(ctx, m.sessionKey(address, jti)).Err()
}

// InvalidateAllSessions removes every session held by an address.
func (m *Manager) InvalidateAllSessions(ctx context.Context, address string) error {
	iter := m.client.Scan(ctx, 0, fmt.Sprintf("session:%s:*", address), 0).Iterator()
	for iter.Next(ctx) {
		if err := m.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// ActiveSessions lists the live sessions for an address.
func (m *Manager) ActiveSessions(ctx context.Context, address string) ([]*SessionData, error) {
	var sessions []*SessionData
	iter := m.client.Scan(ctx, 0, fmt.Sprintf("session:%s:*", address), 0).Iterator()
	for iter.Next(ctx) {
		data, err := m.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var s SessionData
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		sessions = append(sessions, &s)
	}
	return sessions, iter.Err()
}

func (m *Manager) sessionKey(address, jti string) string {
	return fmt.Sprintf("session:%s:%s", address, jti)
}

func (m *Manager) touch(ctx context.Context, s *SessionData) {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	m.client.Set(ctx, m.sessionKey(s.Address, s.JTI), data, ttl)
}
