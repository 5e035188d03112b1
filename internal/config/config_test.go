package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "APP_ENV", "DB_PATH", "MENU_PATH", "ALLOWED_ORIGINS", "SESSION_TTL",
		"SESSION_SWEEP_INTERVAL", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
		"MAX_REQUEST_BODY_BYTES", "GEMINI_API_KEY", "GEMINI_MODEL",
		"CONVERSATION_LOG_ENABLED", "CONVERSATION_LOG_DIR", "CONVERSATION_LOG_QUEUE_SIZE",
	} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "./data/orderbot.db", cfg.DBPath)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, time.Minute, cfg.RateLimit.WindowDuration)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxRequestBodySize)
	assert.False(t, cfg.Gemini.Enabled())
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.True(t, cfg.ConversationLog.Enabled)
	assert.Equal(t, 1000, cfg.ConversationLog.QueueSize)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_PATH", "")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "not-a-duration")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CONVERSATION_LOG_ENABLED", "off")
	t.Setenv("CONVERSATION_LOG_QUEUE_SIZE", "-3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.DBPath)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, time.Minute, cfg.RateLimit.WindowDuration)
	assert.True(t, cfg.Gemini.Enabled())
	assert.False(t, cfg.ConversationLog.Enabled)
	assert.Equal(t, 1000, cfg.ConversationLog.QueueSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadClient(t *testing.T) {
	unsetEnv(t, "ORDERBOT_SERVER_URL")
	unsetEnv(t, "ORDERBOT_STATE_PATH")
	unsetEnv(t, "ORDERBOT_TRANSPORT")
	unsetEnv(t, "ORDERBOT_TIMEOUT")
	unsetEnv(t, "ORDERBOT_TRUST_ECHOED_CART")
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	cfg := LoadClient()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://127.0.0.1:8000", cfg.ServerURL)
	assert.Equal(t, filepath.Join(state, "orderbot", "state.db"), cfg.StatePath)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.False(t, cfg.TrustEchoedCart)

	t.Setenv("ORDERBOT_TRANSPORT", "WS")
	t.Setenv("ORDERBOT_TRUST_ECHOED_CART", "true")
	cfg = LoadClient()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, TransportWebSocket, cfg.Transport)
	assert.True(t, cfg.TrustEchoedCart)

	cfg.Transport = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}
