package assistant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/orderbot/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer answers every frame with the message text and the session id it
// was dialed with, and counts accepted connections.
func echoServer(t *testing.T, accepts *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/chat" {
			http.NotFound(w, r)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.CloseNow() }()
		accepts.Add(1)
		sid := r.URL.Query().Get("session_id")
		for {
			var req domain.ChatRequest
			if err := wsjson.Read(r.Context(), conn, &req); err != nil {
				return
			}
			frame := domain.ChatFrame{ChatReply: domain.ChatReply{Reply: req.Message + "@" + sid}}
			if req.Message == "fail" {
				frame = domain.ChatFrame{Error: "message is required"}
			}
			if err := wsjson.Write(r.Context(), conn, frame); err != nil {
				return
			}
		}
	}))
}

func TestWebSocketClientReusesConnection(t *testing.T) {
	var accepts atomic.Int32
	srv := echoServer(t, &accepts)
	defer srv.Close()

	c := NewWebSocketClient(srv.URL, 2*time.Second, nil)
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	for _, msg := range []string{"cart", "menu"} {
		reply, err := c.Send(ctx, domain.ChatRequest{Message: msg, SessionID: "s-1"})
		require.NoError(t, err)
		assert.Equal(t, msg+"@s-1", reply.Reply)
	}
	assert.Equal(t, int32(1), accepts.Load())

	reply, err := c.Send(ctx, domain.ChatRequest{Message: "cart", SessionID: "s-2"})
	require.NoError(t, err)
	assert.Equal(t, "cart@s-2", reply.Reply)
	assert.Equal(t, int32(2), accepts.Load())
}

func TestWebSocketClientErrorFrame(t *testing.T) {
	var accepts atomic.Int32
	srv := echoServer(t, &accepts)
	defer srv.Close()

	c := NewWebSocketClient(srv.URL, 2*time.Second, nil)
	defer func() { _ = c.Close() }()

	_, err := c.Send(context.Background(), domain.ChatRequest{Message: "fail", SessionID: "s-1"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Error(), "message is required")
}

func TestWebSocketClientDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewWebSocketClient(srv.URL, time.Second, nil)
	_, err := c.Send(context.Background(), domain.ChatRequest{Message: "cart"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "dial websocket", te.Op)
	assert.NoError(t, c.Close())
}
