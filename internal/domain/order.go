package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one server-side cart line. Price is the unit price for the chosen size.
type CartItem struct {
	Item  string          `json:"item"`
	Size  string          `json:"size"`
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

// LineTotal returns quantity times unit price.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Qty)))
}

// OrderSession is the server-side state correlated with one client session id.
type OrderSession struct {
	SessionID string
	Cart      []CartItem
	Name      string
	Delivery  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrderSession returns an empty session for the given id.
func NewOrderSession(sessionID string) *OrderSession {
	now := time.Now()
	return &OrderSession{
		SessionID: sessionID,
		Cart:      []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Total returns the sum of all line totals.
func (s *OrderSession) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.Cart {
		total = total.Add(c.LineTotal())
	}
	return total
}

// AddItem appends a line to the cart. Item and size must already be validated against the menu.
func (s *OrderSession) AddItem(item CartItem) error {
	if item.Qty <= 0 {
		return ErrInvalidQuantity
	}
	s.Cart = append(s.Cart, item)
	return nil
}

// RemoveAt removes the line at the 1-based position and returns it.
func (s *OrderSession) RemoveAt(position int) (CartItem, error) {
	idx := position - 1
	if idx < 0 || idx >= len(s.Cart) {
		return CartItem{}, fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}
	removed := s.Cart[idx]
	s.Cart = append(s.Cart[:idx:idx], s.Cart[idx+1:]...)
	return removed, nil
}

// At returns the line at the 1-based position.
func (s *OrderSession) At(position int) (*CartItem, error) {
	idx := position - 1
	if idx < 0 || idx >= len(s.Cart) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}
	return &s.Cart[idx], nil
}

// Clear empties the cart.
func (s *OrderSession) Clear() {
	s.Cart = []CartItem{}
}

// Snapshot projects the server cart into the client-facing entry list.
func (s *OrderSession) Snapshot() CartSnapshot {
	out := make(CartSnapshot, 0, len(s.Cart))
	for i, c := range s.Cart {
		out = append(out, CartEntry{
			Position: i + 1,
			Quantity: c.Qty,
			Size:     c.Size,
			ItemName: c.Item,
			Price:    c.LineTotal(),
		})
	}
	return out
}
