package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/orderbot/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes writes to avoid SQLITE_BUSY under WAL
}

// openSQLite opens (creating the directory if needed) a WAL-mode SQLite database.
func openSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		cart_json TEXT NOT NULL DEFAULT '[]',
		name TEXT,
		delivery TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.OrderSession, error) {
	query := `
		SELECT session_id, cart_json, name, delivery, created_at, updated_at
		FROM sessions WHERE session_id = ?`

	var (
		session              domain.OrderSession
		cartJSON             string
		name, delivery       sql.NullString
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.SessionID, &cartJSON, &name, &delivery, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	if err := json.Unmarshal([]byte(cartJSON), &session.Cart); err != nil {
		return nil, fmt.Errorf("decode cart for session %s: %w", sessionID, err)
	}
	if session.Cart == nil {
		session.Cart = []domain.CartItem{}
	}
	session.Name = name.String
	session.Delivery = delivery.String
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)
	return &session, nil
}

// SaveSession creates or replaces a session.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.OrderSession) error {
	cart := session.Cart
	if cart == nil {
		cart = []domain.CartItem{}
	}
	cartJSON, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	query := `
	INSERT INTO sessions (session_id, cart_json, name, delivery, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		cart_json = excluded.cart_json,
		name = excluded.name,
		delivery = excluded.delivery,
		updated_at = excluded.updated_at`

	var name, delivery interface{}
	if session.Name != "" {
		name = session.Name
	}
	if session.Delivery != "" {
		delivery = session.Delivery
	}

	session.UpdatedAt = time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return withBusyRetry(ctx, "save session", func() error {
		_, err := s.db.ExecContext(ctx, query,
			session.SessionID, string(cartJSON), name, delivery,
			session.CreatedAt.Unix(), session.UpdatedAt.Unix(),
		)
		return err
	})
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withBusyRetry(ctx, "delete session", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
		return err
	})
}

// CleanupExpiredSessions removes sessions older than ttl.
func (s *SQLiteStore) CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()

	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	err := withBusyRetry(ctx, "cleanup expired sessions", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, threshold)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Debug("expired sessions removed", "count", deleted)
	}
	return deleted, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
