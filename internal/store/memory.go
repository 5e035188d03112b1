package store

import (
	"context"
	"time"

	"github.com/ashureev/orderbot/internal/domain"
	"github.com/patrickmn/go-cache"
)

// MemoryStore implements Repository with an expiring in-process cache.
// Sessions vanish on restart; it is meant for development and tests.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemory creates a memory store whose entries expire after ttl of inactivity.
// Expired entries are purged every cleanupInterval.
func NewMemory(ttl, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(ttl, cleanupInterval)}
}

// GetSession returns a copy of the stored session, or nil when absent.
func (m *MemoryStore) GetSession(_ context.Context, sessionID string) (*domain.OrderSession, error) {
	x, found := m.cache.Get(sessionID)
	if !found {
		return nil, nil
	}
	return cloneSession(x.(*domain.OrderSession)), nil
}

// SaveSession stores a copy of the session and refreshes its expiration.
func (m *MemoryStore) SaveSession(_ context.Context, session *domain.OrderSession) error {
	session.UpdatedAt = time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}
	m.cache.Set(session.SessionID, cloneSession(session), cache.DefaultExpiration)
	return nil
}

// DeleteSession removes a session.
func (m *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	m.cache.Delete(sessionID)
	return nil
}

// CleanupExpiredSessions removes sessions not updated within ttl.
func (m *MemoryStore) CleanupExpiredSessions(_ context.Context, ttl time.Duration) (int64, error) {
	m.cache.DeleteExpired()

	threshold := time.Now().Add(-ttl)
	var deleted int64
	for id, item := range m.cache.Items() {
		if s, ok := item.Object.(*domain.OrderSession); ok && s.UpdatedAt.Before(threshold) {
			m.cache.Delete(id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close flushes the cache.
func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}

func cloneSession(s *domain.OrderSession) *domain.OrderSession {
	c := *s
	c.Cart = append([]domain.CartItem{}, s.Cart...)
	return &c
}
