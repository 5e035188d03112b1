// Package identity provides the durable per-installation session identity and
// the server-side helpers that validate it.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/orderbot/internal/store"
	"github.com/google/uuid"
)

const (
	// StorageKey is the fixed key under which the session id is persisted.
	StorageKey = "orderbot_session_id"
	// SessionHeaderName lets transports that cannot carry a body (WebSocket
	// upgrades) name their session.
	SessionHeaderName = "X-Orderbot-Session-ID"
)

type contextKey int

const sessionIDKey contextKey = iota

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

var fallbackSeq atomic.Uint64

// NewID returns a fresh session id: a UUIDv7, whose leading bits are a
// millisecond timestamp and whose remainder is random, so concurrent first-time
// clients never need to coordinate.
func NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return fmt.Sprintf("%x-%x", time.Now().UnixNano(), fallbackSeq.Add(1))
}

// IsValidSessionID reports whether id is acceptable as a session id.
func IsValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// SanitizeSessionID trims id and validates it. An empty id is valid and means
// stateless single-turn mode; ok is false only for a non-empty malformed id.
func SanitizeSessionID(id string) (clean string, ok bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", true
	}
	if !IsValidSessionID(id) {
		return "", false
	}
	return id, true
}

// Provider hands out the installation's session id, creating and persisting it
// on first use.
//
// If the KeyValue cannot be read or written the provider falls back to an id
// that lives only as long as the process. In that degraded mode the cart does
// not survive a restart; Degraded reports it so callers can tell the user.
type Provider struct {
	kv     store.KeyValue
	logger *slog.Logger

	mu       sync.Mutex
	id       string
	degraded bool
}

// NewProvider creates a provider over kv. A nil kv starts in degraded mode.
func NewProvider(kv store.KeyValue, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{kv: kv, logger: logger}
}

// GetOrCreate returns the session id. It never fails.
func (p *Provider) GetOrCreate(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.id != "" {
		return p.id
	}

	if p.kv == nil {
		p.degrade("no persistent storage configured", nil)
		p.id = NewID()
		return p.id
	}

	stored, found, err := p.kv.Get(ctx, StorageKey)
	if err != nil {
		p.degrade("read session id", err)
		p.id = NewID()
		return p.id
	}
	if found && IsValidSessionID(stored) {
		p.id = stored
		return p.id
	}
	if found {
		p.logger.Warn("discarding malformed persisted session id", "value_len", len(stored))
	}

	id := NewID()
	if err := p.kv.Set(ctx, StorageKey, id); err != nil {
		p.degrade("persist session id", err)
	}
	p.id = id
	return p.id
}

// Degraded reports whether the current id is process-lifetime only.
func (p *Provider) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

// Forget removes the persisted id. The next GetOrCreate mints a new one,
// which starts a fresh server-side cart.
func (p *Provider) Forget(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.id = ""
	if p.kv == nil {
		return nil
	}
	if err := p.kv.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("forget session id: %w", err)
	}
	return nil
}

func (p *Provider) degrade(op string, err error) {
	p.degraded = true
	p.logger.Warn("session identity unavailable, using in-memory id; cart will not survive restart",
		"op", op, "error", err)
}

// SessionIDFromContext extracts the session id placed by Middleware.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID returns a context carrying id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// Middleware reads the session id from the session header or the session_id
// query parameter and stores it on the request context. Malformed ids are
// rejected with 400.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(SessionHeaderName)
			if raw == "" {
				raw = r.URL.Query().Get("session_id")
			}
			id, ok := SanitizeSessionID(raw)
			if !ok {
				http.Error(w, `{"error":"invalid session id"}`, http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}
