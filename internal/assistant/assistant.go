// Package assistant holds the client transports that carry chat turns to the
// order assistant backend.
package assistant

import (
	"context"
	"fmt"

	"github.com/ashureev/orderbot/internal/domain"
)

// OrderAssistant performs one request/reply round trip.
type OrderAssistant interface {
	Send(ctx context.Context, req domain.ChatRequest) (domain.ChatReply, error)
}

// TransportError reports that a round trip could not complete: the network
// failed, the server answered with a non-success status, or the reply body was
// unreadable.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
