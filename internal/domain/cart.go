package domain

import "github.com/shopspring/decimal"

// CartEntry is one line of a cart snapshot as seen by the client.
// Position is 1-based and equals the entry's rank in the reply it was read from.
type CartEntry struct {
	Position int             `json:"position"`
	Quantity int             `json:"quantity"`
	Size     string          `json:"size"`
	ItemName string          `json:"item"`
	Price    decimal.Decimal `json:"price"`
}

// CartSnapshot is the client's derived copy of the server-side cart.
// It is replaced wholesale on every refresh and never edited in place.
type CartSnapshot []CartEntry

// Total sums the entry prices.
func (c CartSnapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c {
		total = total.Add(e.Price)
	}
	return total
}

// Clone returns an independent copy of the snapshot.
func (c CartSnapshot) Clone() CartSnapshot {
	if c == nil {
		return CartSnapshot{}
	}
	out := make(CartSnapshot, len(c))
	copy(out, c)
	return out
}

// Equal reports whether two snapshots hold the same entries in the same order.
func (c CartSnapshot) Equal(other CartSnapshot) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		a, b := c[i], other[i]
		if a.Position != b.Position || a.Quantity != b.Quantity ||
			a.Size != b.Size || a.ItemName != b.ItemName || !a.Price.Equal(b.Price) {
			return false
		}
	}
	return true
}
