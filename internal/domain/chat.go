package domain

import "github.com/shopspring/decimal"

// ChatRequest is the wire request sent to the order assistant.
// SessionID may be empty for stateless single-turn use.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatReply is the wire reply. Reply is always present; Cart is set only when
// the turn showed or changed the cart.
type ChatReply struct {
	Reply string     `json:"reply"`
	Cart  *CartState `json:"cart,omitempty"`
}

// CartState is the structured cart that accompanies cart-related replies.
type CartState struct {
	Items []CartLine `json:"items"`
	Total string     `json:"total"`
}

// CartLine is one structured cart entry on the wire.
type CartLine struct {
	Position int    `json:"position"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size"`
	Item     string `json:"item"`
	Price    string `json:"price"`
}

// NewCartState builds the wire form of a snapshot.
func NewCartState(snap CartSnapshot) *CartState {
	items := make([]CartLine, 0, len(snap))
	for _, e := range snap {
		items = append(items, CartLine{
			Position: e.Position,
			Quantity: e.Quantity,
			Size:     e.Size,
			Item:     e.ItemName,
			Price:    e.Price.StringFixed(2),
		})
	}
	return &CartState{Items: items, Total: snap.Total().StringFixed(2)}
}

// Snapshot converts the wire cart back into entries. Lines whose price does not
// parse, whose position/quantity are not positive, or whose position repeats
// an earlier line are skipped, mirroring the drop-on-mismatch rule of the text
// protocol.
func (c *CartState) Snapshot() CartSnapshot {
	if c == nil {
		return nil
	}
	out := make(CartSnapshot, 0, len(c.Items))
	seen := make(map[int]bool, len(c.Items))
	for _, l := range c.Items {
		price, err := decimal.NewFromString(l.Price)
		if err != nil || price.IsNegative() || l.Position <= 0 || l.Quantity <= 0 || seen[l.Position] {
			continue
		}
		seen[l.Position] = true
		out = append(out, CartEntry{
			Position: l.Position,
			Quantity: l.Quantity,
			Size:     l.Size,
			ItemName: l.Item,
			Price:    price,
		})
	}
	return out
}

// ChatFrame is one reply frame on the WebSocket transport. Error is set instead
// of the reply when the server rejected the request.
type ChatFrame struct {
	ChatReply
	Error string `json:"error,omitempty"`
}
