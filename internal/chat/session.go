// Package chat implements the client-side conversation with the order
// assistant: the transcript, the cached cart, and the one-request-at-a-time
// state machine that keeps the two in step.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/orderbot/internal/assistant"
	"github.com/ashureev/orderbot/internal/cartline"
	"github.com/ashureev/orderbot/internal/command"
	"github.com/ashureev/orderbot/internal/domain"
)

const (
	// DefaultWelcome seeds every new transcript.
	DefaultWelcome = "Hi! I’m the Food Order Bot. Try 'menu', 'cart', or 'I want 2 medium cheeseburgers'."
	// ErrorMarker prefixes the bot message shown when a turn could not reach the assistant.
	ErrorMarker = "⚠️"

	transportFailureText = ErrorMarker + " Could not reach the order service. Make sure it is running, then try again."
)

// State is the session's position in the request lifecycle.
type State int

const (
	StateIdle State = iota
	StateSending
	// StateFailed is reported only by Turn results; the session itself goes
	// straight back to idle after a failure.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IdentitySource supplies the session id sent with every request.
type IdentitySource interface {
	GetOrCreate(ctx context.Context) string
}

// Turn describes what one Submit did.
type Turn struct {
	Outcome State
	// Reply is the raw reply text, empty on failure.
	Reply string
	// CartRefreshed is true when the cart snapshot was replaced.
	CartRefreshed bool
	// Stale is true when the session was reset while the request was in
	// flight and the reply was discarded.
	Stale bool
}

// Session is one conversation. It is safe for concurrent use; at most one
// request is in flight at a time.
type Session struct {
	assistant   assistant.OrderAssistant
	identity    IdentitySource
	logger      *slog.Logger
	now         func() time.Time
	welcome     string
	trustEchoed bool

	mu         sync.Mutex
	state      State
	transcript []domain.Message
	cart       domain.CartSnapshot
	generation uint64
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWelcome replaces the seeded welcome message.
func WithWelcome(text string) Option {
	return func(s *Session) { s.welcome = text }
}

// WithClock sets the clock used to timestamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTrustEchoedCart skips the follow-up cart request when a mutating reply
// already restates the cart.
func WithTrustEchoedCart(trust bool) Option {
	return func(s *Session) { s.trustEchoed = trust }
}

// New creates an idle session holding only the welcome message and an empty
// cart. Call Start to load the server-side cart.
func New(a assistant.OrderAssistant, id IdentitySource, opts ...Option) *Session {
	s := &Session{
		assistant: a,
		identity:  id,
		logger:    slog.Default(),
		now:       time.Now,
		welcome:   DefaultWelcome,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seedLocked()
	return s
}

// Start fetches the cart without touching the transcript. A failure leaves
// the empty cart in place and is returned for the caller to log or ignore.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSending {
		s.mu.Unlock()
		return domain.ErrSessionBusy
	}
	s.state = StateSending
	gen := s.generation
	s.mu.Unlock()

	defer s.finish(gen)

	_, err := s.refreshCart(ctx, gen)
	return err
}

// Submit sends one intent and applies its reply. It returns ErrSessionBusy
// without side effects while another request is in flight and ErrEmptyMessage
// for a blank message. A transport failure is not returned: it becomes one bot
// message in the transcript and the cart keeps its last known value.
func (s *Session) Submit(ctx context.Context, intent command.Intent) (Turn, error) {
	text := command.Build(intent)
	if strings.TrimSpace(text) == "" {
		return Turn{}, domain.ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state == StateSending {
		s.mu.Unlock()
		return Turn{}, domain.ErrSessionBusy
	}
	s.state = StateSending
	gen := s.generation
	s.appendLocked(domain.RoleUser, text)
	s.mu.Unlock()

	defer s.finish(gen)

	reply, err := s.send(ctx, text)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding reply from before reset", "kind", intent.Kind.String())
		return Turn{Outcome: StateIdle, Stale: true}, nil
	}
	if err != nil {
		s.appendLocked(domain.RoleBot, transportFailureText)
		s.mu.Unlock()
		s.logger.Warn("chat turn failed", "kind", intent.Kind.String(), "error", err)
		return Turn{Outcome: StateFailed}, nil
	}
	s.appendLocked(domain.RoleBot, reply.Reply)
	s.mu.Unlock()

	turn := Turn{Outcome: StateIdle, Reply: reply.Reply}

	switch {
	case intent.IsCartView():
		turn.CartRefreshed = s.applyCart(gen, snapshotFrom(reply))
	case intent.AffectsCart():
		if s.trustEchoed && echoesCart(reply) {
			turn.CartRefreshed = s.applyCart(gen, snapshotFrom(reply))
			break
		}
		refreshed, err := s.refreshCart(ctx, gen)
		if err != nil {
			s.logger.Warn("cart refresh after update failed", "kind", intent.Kind.String(), "error", err)
		}
		turn.CartRefreshed = refreshed
	case reply.Cart != nil:
		turn.CartRefreshed = s.applyCart(gen, reply.Cart.Snapshot())
	}
	return turn, nil
}

// Reset starts a new conversation on the same session id. Any reply still in
// flight is discarded when it arrives.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.state = StateIdle
	s.seedLocked()
}

// Transcript returns a copy of the messages so far.
func (s *Session) Transcript() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Cart returns a copy of the last known cart.
func (s *Session) Cart() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// State reports whether a request is in flight.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the id sent with requests.
func (s *Session) SessionID(ctx context.Context) string {
	return s.identity.GetOrCreate(ctx)
}

func (s *Session) send(ctx context.Context, text string) (domain.ChatReply, error) {
	req := domain.ChatRequest{Message: text, SessionID: s.identity.GetOrCreate(ctx)}
	reply, err := s.assistant.Send(ctx, req)
	if err != nil {
		var te *assistant.TransportError
		if !errors.As(err, &te) {
			err = &assistant.TransportError{Op: "send", Err: err}
		}
		return domain.ChatReply{}, err
	}
	return reply, nil
}

// refreshCart issues the dependent cart request and replaces the snapshot.
func (s *Session) refreshCart(ctx context.Context, gen uint64) (bool, error) {
	reply, err := s.send(ctx, command.Build(command.ViewCart()))
	if err != nil {
		return false, err
	}
	return s.applyCart(gen, snapshotFrom(reply)), nil
}

func (s *Session) applyCart(gen uint64, snap domain.CartSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.cart = snap.Clone()
	return true
}

func (s *Session) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		s.state = StateIdle
	}
}

func (s *Session) appendLocked(role domain.Role, text string) {
	s.transcript = append(s.transcript, domain.Message{Role: role, Text: text, At: s.now()})
}

func (s *Session) seedLocked() {
	s.transcript = s.transcript[:0:0]
	s.cart = domain.CartSnapshot{}
	if s.welcome != "" {
		s.appendLocked(domain.RoleBot, s.welcome)
	}
}

// snapshotFrom prefers the structured cart and falls back to the text lines.
func snapshotFrom(reply domain.ChatReply) domain.CartSnapshot {
	if reply.Cart != nil {
		return reply.Cart.Snapshot()
	}
	return cartline.Parse(reply.Reply)
}

func echoesCart(reply domain.ChatReply) bool {
	return reply.Cart != nil || cartline.EndsWithCart(reply.Reply)
}
