package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/orderbot/internal/api"
	"github.com/ashureev/orderbot/internal/domain"
	"github.com/ashureev/orderbot/internal/identity"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// HandlerConfig holds the limits applied by Handler.
type HandlerConfig struct {
	RateLimitRequests   int
	RateLimitWindow     time.Duration
	MaxRequestBodyBytes int64
	AllowedOrigins      []string
}

// Handler serves the chat endpoints.
type Handler struct {
	service        *Service
	rateLimiter    *RateLimiter
	log            ConversationLogger
	maxBodySize    int64
	allowedOrigins []string
	logger         *slog.Logger
}

// RateLimiter implements a per-key sliding-window rate limiter.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a new rate limiter and starts the background eviction
// goroutine. Call Stop to end it.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	rl.startEviction()
	return rl
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Stop ends the eviction goroutine.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

// startEviction periodically removes expired keys so the map does not grow
// without bound.
func (r *RateLimiter) startEviction() {
	go func() {
		ticker := time.NewTicker(r.window)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
				r.evict()
			}
		}
	}()
}

func (r *RateLimiter) evict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-r.window)
	for key, times := range r.requests {
		var fresh []time.Time
		for _, t := range times {
			if t.After(cutoff) {
				fresh = append(fresh, t)
			}
		}
		if len(fresh) == 0 {
			delete(r.requests, key)
		} else {
			r.requests[key] = fresh
		}
	}
}

// NewHandler creates the chat handler. A nil conversation logger disables
// conversation logging.
func NewHandler(service *Service, conversationLogger ConversationLogger, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if conversationLogger == nil {
		conversationLogger = noopConversationLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	rateLimitRequests := cfg.RateLimitRequests
	if rateLimitRequests <= 0 {
		rateLimitRequests = 30
	}
	rateLimitWindow := cfg.RateLimitWindow
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	maxBody := cfg.MaxRequestBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxRequestBodySize
	}

	return &Handler{
		service:        service,
		rateLimiter:    NewRateLimiter(rateLimitRequests, rateLimitWindow),
		log:            conversationLogger,
		maxBodySize:    maxBody,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger,
	}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleChat)
	r.With(identity.Middleware()).Get("/ws/chat", h.HandleWebSocket)
}

// HandleChat handles POST /chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reqID := chiMiddleware.GetReqID(r.Context())
	reply, status, msg := h.chat(r.Context(), req, clientKey(r), "chat_http", reqID)
	if status != http.StatusOK {
		api.Error(w, status, msg)
		return
	}
	api.JSON(w, http.StatusOK, reply)
}

// chat validates and runs one turn. On failure it returns the HTTP status and
// the error text for the client.
func (h *Handler) chat(ctx context.Context, req domain.ChatRequest, fallbackKey, channel, reqID string) (domain.ChatReply, int, string) {
	sessionID, ok := identity.SanitizeSessionID(req.SessionID)
	if !ok {
		return domain.ChatReply{}, http.StatusBadRequest, "invalid session id"
	}
	if req.Message == "" {
		return domain.ChatReply{}, http.StatusBadRequest, "message is required"
	}

	// Stateless callers share their address's budget.
	key := sessionID
	if key == "" {
		key = "addr:" + fallbackKey
	}
	if !h.rateLimiter.Allow(key) {
		return domain.ChatReply{}, http.StatusTooManyRequests, "rate limit exceeded"
	}

	h.logger.Info("Chat request",
		"session_id", sessionID,
		"channel", channel,
		"message_length", len(req.Message),
		"request_id", reqID,
	)
	h.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		SessionID:  sessionID,
		Channel:    channel,
		Direction:  "inbound",
		EventType:  "chat_user_message",
		ContentRaw: req.Message,
		Meta:       map[string]any{"request_id": reqID},
	})

	reply, err := h.service.Chat(ctx, sessionID, req.Message)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyMessage) {
			return domain.ChatReply{}, http.StatusBadRequest, "message is required"
		}
		h.logger.Error("Chat turn failed", "session_id", sessionID, "error", err)
		return domain.ChatReply{}, http.StatusInternalServerError, "internal error"
	}

	meta := map[string]any{"request_id": reqID}
	if reply.Cart != nil {
		meta["cart_items"] = len(reply.Cart.Items)
		meta["cart_total"] = reply.Cart.Total
	}
	h.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		SessionID:  sessionID,
		Channel:    channel,
		Direction:  "outbound",
		EventType:  "chat_assistant_message",
		ContentRaw: reply.Reply,
		Meta:       meta,
	})
	return reply, http.StatusOK, ""
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
	if h.log != nil {
		if err := h.log.Close(); err != nil {
			h.logger.Warn("failed to close conversation logger", "error", err)
		}
	}
}

// clientKey identifies the caller when no session id is given. chi's RealIP
// middleware has already rewritten RemoteAddr when it runs first.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
