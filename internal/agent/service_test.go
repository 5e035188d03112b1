package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/orderbot/internal/cartline"
	"github.com/ashureev/orderbot/internal/domain"
	"github.com/ashureev/orderbot/internal/menu"
	"github.com/ashureev/orderbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, store.Repository) {
	t.Helper()
	catalog, err := menu.Default()
	require.NoError(t, err)
	repo := store.NewMemory(time.Hour, 0)
	t.Cleanup(func() { _ = repo.Close() })
	return NewService(repo, catalog, nil, nil), repo
}

func chat(t *testing.T, s *Service, sessionID, msg string) domain.ChatReply {
	t.Helper()
	reply, err := s.Chat(context.Background(), sessionID, msg)
	require.NoError(t, err)
	return reply
}

func TestServiceMenu(t *testing.T) {
	s, _ := newTestService(t)
	reply := chat(t, s, "s-1", "menu")
	assert.True(t, strings.HasPrefix(reply.Reply, "Cheeseburger: small $4.49, medium $6.49, large $8.49\n"))
	assert.Nil(t, reply.Cart)
}

func TestServiceAddShowsCart(t *testing.T) {
	s, _ := newTestService(t)

	reply := chat(t, s, "s-1", "I want 2 medium cheeseburgers")
	assert.Equal(t, "Added 2 x medium Cheeseburger.\n\n1. 2 x medium Cheeseburger -> $12.98\nTOTAL: $12.98", reply.Reply)
	require.NotNil(t, reply.Cart)
	assert.Equal(t, "12.98", reply.Cart.Total)
	require.Len(t, reply.Cart.Items, 1)
	assert.Equal(t, domain.CartLine{Position: 1, Quantity: 2, Size: "medium", Item: "Cheeseburger", Price: "12.98"}, reply.Cart.Items[0])

	// The text form and the structured form agree.
	assert.True(t, cartline.Parse(reply.Reply).Equal(reply.Cart.Snapshot()))
}

func TestServicePersistsPerSession(t *testing.T) {
	s, repo := newTestService(t)

	chat(t, s, "s-1", "add 1 large bbq ribs")
	chat(t, s, "s-1", "add 2 small chocolate cake")

	reply := chat(t, s, "s-1", "cart")
	assert.Equal(t, "1. 1 x large BBQ Ribs -> $15.99\n2. 2 x small Chocolate Cake -> $5.98\nTOTAL: $21.97", reply.Reply)

	other := chat(t, s, "s-2", "cart")
	assert.Equal(t, cartline.EmptyCartText, other.Reply)

	stored, err := repo.GetSession(context.Background(), "s-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Cart, 2)
}

func TestServiceStatelessMode(t *testing.T) {
	s, _ := newTestService(t)

	reply := chat(t, s, "", "add 1 small cheeseburger")
	assert.Contains(t, reply.Reply, "TOTAL: $4.49")

	assert.Equal(t, cartline.EmptyCartText, chat(t, s, "", "cart").Reply)
}

func TestServiceAddErrors(t *testing.T) {
	s, _ := newTestService(t)

	assert.Equal(t, "Error: 'Sushi' is not on the menu.", chat(t, s, "s-1", "add 1 small sushi").Reply)
	assert.Equal(t, "Error: Quantity must be 1 or greater.", chat(t, s, "s-1", "add 0 small cheeseburger").Reply)

	s.parser = stubParser{intent: ParsedIntent{Action: ActionAdd, Item: "Cheeseburger", Size: "huge", Qty: 1}}
	assert.Equal(t, "Error: Invalid size 'huge'. Choose small, medium, or large.", chat(t, s, "s-1", "anything").Reply)

	s.parser = stubParser{intent: ParsedIntent{Action: ActionAdd, Size: "small", Qty: 1}}
	assert.Equal(t, "Error: No item provided.", chat(t, s, "s-1", "anything").Reply)
}

func TestServiceRemoveAndUpdate(t *testing.T) {
	s, _ := newTestService(t)
	chat(t, s, "s-1", "add 1 medium cheeseburger")
	chat(t, s, "s-1", "add 1 small fried rice")

	reply := chat(t, s, "s-1", "update 1 large qty 2")
	assert.Equal(t, "Updated item 1.\n\n1. 2 x large Cheeseburger -> $16.98\n2. 1 x small Fried Rice -> $4.99\nTOTAL: $21.97", reply.Reply)

	reply = chat(t, s, "s-1", "remove 2")
	assert.Equal(t, "Removed 1 x small Fried Rice.\n\n1. 2 x large Cheeseburger -> $16.98\nTOTAL: $16.98", reply.Reply)

	assert.Equal(t, "Error: Invalid item number to remove.", chat(t, s, "s-1", "remove 5").Reply)
	assert.Equal(t, "Error: Invalid item number to update.", chat(t, s, "s-1", "update 9 small").Reply)
	assert.Equal(t, "Error: Nothing to update. Give a size or a quantity.", chat(t, s, "s-1", "update 1").Reply)

	s.parser = stubParser{intent: ParsedIntent{Action: ActionUpdate, Index: 1, Size: "huge", Qty: 5}}
	assert.Equal(t, "Error: Invalid size 'huge'.", chat(t, s, "s-1", "anything").Reply)

	// A rejected update changes nothing.
	s.parser = NewHeuristicParser()
	assert.Contains(t, chat(t, s, "s-1", "cart").Reply, "1. 2 x large Cheeseburger -> $16.98")
}

func TestServiceClear(t *testing.T) {
	s, _ := newTestService(t)
	chat(t, s, "s-1", "add 1 medium cheeseburger")

	reply := chat(t, s, "s-1", "clear cart")
	assert.Equal(t, "Cart cleared.", reply.Reply)
	require.NotNil(t, reply.Cart)
	assert.Empty(t, reply.Cart.Items)
	assert.Equal(t, "0.00", reply.Cart.Total)
}

func TestServiceCheckout(t *testing.T) {
	s, _ := newTestService(t)

	assert.Equal(t, "Your cart is empty. Add items before checkout.", chat(t, s, "s-1", "checkout").Reply)

	chat(t, s, "s-1", "add 1 medium veggie wrap")
	assert.Equal(t, "Please provide your name before checkout (e.g., 'My name is Alice').", chat(t, s, "s-1", "checkout").Reply)

	assert.Equal(t, "Got it — I’ll use the name: Alice.", chat(t, s, "s-1", "My name is Alice").Reply)
	assert.Equal(t, "Please provide pickup/delivery address before checkout (e.g., 'Address: 123 Street').", chat(t, s, "s-1", "checkout").Reply)

	assert.Equal(t, "Got it — delivery/pickup set to: 12 Main St.", chat(t, s, "s-1", "deliver to 12 Main St").Reply)

	reply := chat(t, s, "s-1", "checkout")
	assert.Equal(t, "Order confirmed for Alice - 12 Main St\n\n1. 1 x medium Veggie Wrap -> $5.99\nTOTAL: $5.99", reply.Reply)
	require.NotNil(t, reply.Cart)
	assert.Empty(t, reply.Cart.Items)

	assert.Equal(t, cartline.EmptyCartText, chat(t, s, "s-1", "cart").Reply)
}

func TestServiceUnknown(t *testing.T) {
	s, _ := newTestService(t)
	reply := chat(t, s, "s-1", "what's the weather")
	assert.Equal(t, UnknownReply, reply.Reply)
	assert.Nil(t, reply.Cart)
}

func TestServiceEmptyMessage(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.Chat(context.Background(), "s-1", "  ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestServiceParserErrorIsUnknown(t *testing.T) {
	s, _ := newTestService(t)
	s.parser = stubParser{err: errors.New("boom")}
	assert.Equal(t, UnknownReply, chat(t, s, "s-1", "add 1 small cheeseburger").Reply)
}

func TestServiceStorageError(t *testing.T) {
	catalog, err := menu.Default()
	require.NoError(t, err)
	s := NewService(failingRepo{}, catalog, nil, nil)

	_, err = s.Chat(context.Background(), "s-1", "cart")
	assert.Error(t, err)

	// Stateless turns never touch storage.
	reply, err := s.Chat(context.Background(), "", "cart")
	require.NoError(t, err)
	assert.Equal(t, cartline.EmptyCartText, reply.Reply)
}

type stubParser struct {
	intent ParsedIntent
	err    error
}

func (p stubParser) Parse(context.Context, string) (ParsedIntent, error) { return p.intent, p.err }

type failingRepo struct{}

var errRepo = errors.New("database is locked")

func (failingRepo) GetSession(context.Context, string) (*domain.OrderSession, error) {
	return nil, errRepo
}
func (failingRepo) SaveSession(context.Context, *domain.OrderSession) error { return errRepo }
func (failingRepo) DeleteSession(context.Context, string) error             { return errRepo }
func (failingRepo) CleanupExpiredSessions(context.Context, time.Duration) (int64, error) {
	return 0, errRepo
}
func (failingRepo) Ping(context.Context) error { return errRepo }
func (failingRepo) Close() error               { return nil }
