package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Transport names accepted by ClientConfig.Transport.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "ws"
)

// ClientConfig holds the terminal client configuration.
type ClientConfig struct {
	ServerURL       string
	StatePath       string // SQLite file holding the session id
	Transport       string
	Timeout         time.Duration
	TrustEchoedCart bool
}

// LoadClient reads the client configuration from environment variables.
// Command-line flags are applied on top by the caller, which then calls
// Validate.
func LoadClient() *ClientConfig {
	return &ClientConfig{
		ServerURL:       getEnv("ORDERBOT_SERVER_URL", "http://127.0.0.1:8000"),
		StatePath:       getEnv("ORDERBOT_STATE_PATH", defaultStatePath()),
		Transport:       strings.ToLower(getEnv("ORDERBOT_TRANSPORT", TransportHTTP)),
		Timeout:         getEnvDuration("ORDERBOT_TIMEOUT", 30*time.Second),
		TrustEchoedCart: getEnvBool("ORDERBOT_TRUST_ECHOED_CART", false),
	}
}

// Validate checks the client configuration.
func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("ORDERBOT_SERVER_URL cannot be empty")
	}
	switch c.Transport {
	case TransportHTTP, TransportWebSocket:
	default:
		return fmt.Errorf("ORDERBOT_TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportWebSocket, c.Transport)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("ORDERBOT_TIMEOUT must be >= 0")
	}
	return nil
}

// defaultStatePath follows the XDG base directory layout. An empty result
// leaves the client without durable state.
func defaultStatePath() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "orderbot", "state.db")
}
