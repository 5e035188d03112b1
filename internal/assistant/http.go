package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/orderbot/internal/domain"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// HTTPClient sends chat turns as POST {baseURL}/chat.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPClient creates an HTTP transport. A zero timeout means no timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/chat",
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Send posts req and decodes the reply.
func (c *HTTPClient) Send(ctx context.Context, req domain.ChatRequest) (domain.ChatReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.ChatReply{}, fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ChatReply{}, &TransportError{Op: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("chat request failed", "endpoint", c.endpoint, "error", err)
		return domain.ChatReply{}, &TransportError{Op: "post chat", Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("chat request rejected", "status", resp.StatusCode, "body", string(detail))
		return domain.ChatReply{}, &TransportError{
			Op:         "post chat",
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(detail))),
		}
	}

	var reply domain.ChatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return domain.ChatReply{}, &TransportError{Op: "decode reply", StatusCode: resp.StatusCode, Err: err}
	}
	return reply, nil
}
