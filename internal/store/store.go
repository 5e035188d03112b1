// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/orderbot/internal/domain"
)

// Repository persists order sessions on the assistant backend.
type Repository interface {
	// GetSession retrieves a session by id. It returns nil, nil when the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.OrderSession, error)

	// SaveSession creates or replaces a session.
	SaveSession(ctx context.Context, session *domain.OrderSession) error

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// CleanupExpiredSessions removes sessions not updated within ttl.
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}

// KeyValue is the client-local durable storage used for the session identity.
type KeyValue interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the storage.
	Close() error
}
