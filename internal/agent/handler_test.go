package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/orderbot/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, cfg HandlerConfig) (*Handler, http.Handler) {
	t.Helper()
	svc, _ := newTestService(t)
	h := NewHandler(svc, nil, cfg, nil)
	t.Cleanup(h.Close)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return h, r
}

func postChat(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["error"]
}

func TestHandleChat(t *testing.T) {
	_, router := newTestHandler(t, HandlerConfig{})

	w := postChat(t, router, `{"message":"add 2 medium cheeseburgers","session_id":"s-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var reply domain.ChatReply
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reply))
	assert.Contains(t, reply.Reply, "Added 2 x medium Cheeseburger.")
	require.NotNil(t, reply.Cart)
	assert.Equal(t, "12.98", reply.Cart.Total)

	w = postChat(t, router, `{"message":"cart","session_id":"s-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reply))
	assert.Equal(t, "1. 2 x medium Cheeseburger -> $12.98\nTOTAL: $12.98", reply.Reply)
}

func TestHandleChatMenuOmitsCart(t *testing.T) {
	_, router := newTestHandler(t, HandlerConfig{})

	w := postChat(t, router, `{"message":"menu"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"cart"`)
}

func TestHandleChatRejections(t *testing.T) {
	_, router := newTestHandler(t, HandlerConfig{MaxRequestBodyBytes: 64})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"invalid json", `{"message":`, http.StatusBadRequest, "invalid request body"},
		{"missing message", `{"session_id":"s-1"}`, http.StatusBadRequest, "message is required"},
		{"blank message", `{"message":"   "}`, http.StatusBadRequest, "message is required"},
		{"bad session id", `{"message":"cart","session_id":"../../etc"}`, http.StatusBadRequest, "invalid session id"},
		{"too large", `{"message":"` + strings.Repeat("a", 100) + `"}`, http.StatusRequestEntityTooLarge, "request body too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postChat(t, router, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decodeError(t, w))
		})
	}
}

func TestHandleChatRateLimit(t *testing.T) {
	_, router := newTestHandler(t, HandlerConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, postChat(t, router, `{"message":"cart","session_id":"s-1"}`).Code)
	}
	w := postChat(t, router, `{"message":"cart","session_id":"s-1"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", decodeError(t, w))

	// Other sessions have their own budget.
	assert.Equal(t, http.StatusOK, postChat(t, router, `{"message":"cart","session_id":"s-2"}`).Code)
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)
	defer rl.Stop()

	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))
	assert.True(t, rl.Allow("other"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.Allow("k"))

	rl.Stop()
	rl.Stop()
}

func TestHandleWebSocket(t *testing.T) {
	_, router := newTestHandler(t, HandlerConfig{AllowedOrigins: []string{"http://localhost:3000"}})
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/ws/chat?session_id=ws-1", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()

	require.NoError(t, wsjson.Write(ctx, conn, domain.ChatRequest{Message: "add 1 small cheeseburger"}))
	var frame domain.ChatFrame
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Empty(t, frame.Error)
	assert.Contains(t, frame.Reply, "TOTAL: $4.49")

	// The connection's session id carries over to the next frame.
	require.NoError(t, wsjson.Write(ctx, conn, domain.ChatRequest{Message: "cart"}))
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Equal(t, "1. 1 x small Cheeseburger -> $4.49\nTOTAL: $4.49", frame.Reply)

	require.NoError(t, wsjson.Write(ctx, conn, domain.ChatRequest{Message: ""}))
	frame = domain.ChatFrame{}
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Equal(t, "message is required", frame.Error)
}

func TestHandleWebSocketRejectsOrigin(t *testing.T) {
	_, router := newTestHandler(t, HandlerConfig{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleWebSocketRejectsBadSessionID(t *testing.T) {
	_, router := newTestHandler(t, HandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/ws/chat?session_id=bad%20id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
