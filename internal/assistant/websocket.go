package assistant

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/orderbot/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// WebSocketClient keeps one connection to {baseURL}/ws/chat and exchanges one
// JSON frame each way per turn. The connection is dialed lazily and dropped
// after any error so the next Send redials.
type WebSocketClient struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
}

// NewWebSocketClient creates a WebSocket transport. baseURL may use the http,
// https, ws or wss scheme.
func NewWebSocketClient(baseURL string, timeout time.Duration, logger *slog.Logger) *WebSocketClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// Send writes req and waits for the matching reply frame. Calls are
// serialized; the protocol has no request ids.
func (c *WebSocketClient) Send(ctx context.Context, req domain.ChatRequest) (domain.ChatReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.conn != nil && c.sessionID != req.SessionID {
		c.dropLocked("session changed")
	}
	if c.conn == nil {
		conn, err := c.dial(ctx, req.SessionID)
		if err != nil {
			c.logger.Warn("websocket dial failed", "url", c.baseURL, "error", err)
			return domain.ChatReply{}, &TransportError{Op: "dial websocket", Err: err}
		}
		c.conn = conn
		c.sessionID = req.SessionID
	}

	if err := wsjson.Write(ctx, c.conn, req); err != nil {
		c.dropLocked("write failed")
		return domain.ChatReply{}, &TransportError{Op: "write frame", Err: err}
	}

	var frame domain.ChatFrame
	if err := wsjson.Read(ctx, c.conn, &frame); err != nil {
		c.dropLocked("read failed")
		return domain.ChatReply{}, &TransportError{Op: "read frame", Err: err}
	}
	if frame.Error != "" {
		return domain.ChatReply{}, &TransportError{Op: "chat", Err: errors.New(frame.Error)}
	}
	return frame.ChatReply, nil
}

// Close closes the connection if one is open.
func (c *WebSocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(websocket.StatusNormalClosure, "client closing")
	c.conn = nil
	return err
}

func (c *WebSocketClient) dial(ctx context.Context, sessionID string) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL + "/ws/chat")
	if err != nil {
		return nil, err
	}
	if sessionID != "" {
		q := u.Query()
		q.Set("session_id", sessionID)
		u.RawQuery = q.Encode()
	}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *WebSocketClient) dropLocked(reason string) {
	if c.conn == nil {
		return
	}
	c.logger.Debug("dropping websocket connection", "reason", reason)
	_ = c.conn.CloseNow()
	c.conn = nil
}
