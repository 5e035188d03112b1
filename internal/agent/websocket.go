package agent

import (
	"context"
	"net/http"

	"github.com/ashureev/orderbot/internal/domain"
	"github.com/ashureev/orderbot/internal/identity"
	"github.com/ashureev/orderbot/internal/middleware"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// HandleWebSocket handles GET /ws/chat. Each text frame is a ChatRequest and
// is answered by exactly one ChatFrame. A frame without a session id uses the
// one the connection was opened with.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	connSessionID := identity.SessionIDFromContext(r.Context())
	reqID := chiMiddleware.GetReqID(r.Context())
	h.logger.Info("WebSocket connection request", "session_id", connSessionID, "ip", r.RemoteAddr)

	if !middleware.OriginAllowed(h.allowedOrigins, r.Header.Get("Origin")) {
		h.logger.Warn("WebSocket origin rejected", "origin", r.Header.Get("Origin"))
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "session_id", connSessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "session_id", connSessionID)
		}
	}()
	ws.SetReadLimit(h.maxBodySize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	addr := clientKey(r)
	for {
		var req domain.ChatRequest
		if err := wsjson.Read(ctx, ws, &req); err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("WebSocket closed by client", "session_id", connSessionID)
			} else {
				h.logger.Debug("WebSocket read ended", "error", err, "session_id", connSessionID)
			}
			return
		}
		if req.SessionID == "" {
			req.SessionID = connSessionID
		}

		reply, status, msg := h.chat(ctx, req, addr, "chat_ws", reqID)
		frame := domain.ChatFrame{ChatReply: reply}
		if status != http.StatusOK {
			frame = domain.ChatFrame{Error: msg}
		}
		if err := wsjson.Write(ctx, ws, frame); err != nil {
			h.logger.Debug("WebSocket write failed", "error", err, "session_id", connSessionID)
			return
		}
	}
}
